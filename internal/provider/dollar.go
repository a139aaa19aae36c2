package provider

import (
	"context"
	"fmt"
	"time"

	"finboard/internal/domain"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"
)

const (
	dolarAPIBaseURL   = "https://dolarapi.com"
	bluelyticsBaseURL = "https://api.bluelytics.com.ar"
)

// Indicator IDs for the dollar family. Derived metrics refer to these.
const (
	IDDollarOfficial  = "usd-oficial"
	IDDollarBlue      = "usd-blue"
	IDDollarMEP       = "usd-mep"
	IDDollarCCL       = "usd-ccl"
	IDDollarCard      = "usd-tarjeta"
	IDDollarWholesale = "usd-mayorista"
	IDDollarCrypto    = "usd-cripto"
)

type dollarDef struct {
	id, name, short string
}

var dolarAPICasas = map[string]dollarDef{
	"oficial":         {IDDollarOfficial, "Dólar Oficial", "Oficial"},
	"blue":            {IDDollarBlue, "Dólar Blue", "Blue"},
	"bolsa":           {IDDollarMEP, "Dólar MEP", "MEP"},
	"contadoconliqui": {IDDollarCCL, "Dólar Contado con Liquidación", "CCL"},
	"tarjeta":         {IDDollarCard, "Dólar Tarjeta", "Tarjeta"},
	"mayorista":       {IDDollarWholesale, "Dólar Mayorista", "Mayorista"},
	"cripto":          {IDDollarCrypto, "Dólar Cripto", "Cripto"},
}

func dollarIndicator(def dollarDef, sell, buy float64, source string, at time.Time) domain.Indicator {
	ind := domain.Indicator{
		ID:              def.id,
		Name:            def.name,
		ShortName:       def.short,
		Category:        domain.CategoryExchangeRate,
		Value:           sell,
		Format:          domain.FormatCurrency,
		Decimals:        2,
		Unit:            "ARS",
		Source:          source,
		LastUpdated:     at,
		UpdateFrequency: "real-time",
	}
	if buy > 0 {
		ind.Buy = floatPtr(buy)
	}
	return ind
}

// DolarAPIProvider reads the dollar quotes published by dolarapi.com.
type DolarAPIProvider struct {
	httpSource
}

func NewDolarAPIProvider(tracer trace.Tracer) *DolarAPIProvider {
	return &DolarAPIProvider{httpSource: newHTTPSource("dolarapi", dolarAPIBaseURL, tracer, time.Second, 5)}
}

func (p *DolarAPIProvider) FetchQuotes(ctx context.Context) ([]domain.Indicator, time.Time, error) {
	ctx, span := p.tracer.Start(ctx, "dolarapi.fetch-quotes")
	defer span.End()

	body, err := p.get(ctx, "/v1/dolares", "")
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("fetch dollar quotes: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, time.Time{}, fmt.Errorf("dolarapi returned invalid json")
	}

	// Response shape: [{"casa":"oficial","compra":1050,"venta":1090,"fechaActualizacion":"2025-03-01T15:00:00.000Z"}, ...]
	var (
		out    []domain.Indicator
		latest time.Time
		seen   = make(map[string]bool)
	)
	for _, row := range gjson.ParseBytes(body).Array() {
		def, ok := dolarAPICasas[row.Get("casa").String()]
		if !ok {
			continue
		}
		sell := row.Get("venta").Float()
		if sell <= 0 {
			continue
		}
		at, _ := time.Parse(time.RFC3339, row.Get("fechaActualizacion").String())
		if at.After(latest) {
			latest = at
		}
		out = append(out, dollarIndicator(def, sell, row.Get("compra").Float(), p.name, at.UTC()))
		seen[def.id] = true
	}
	if !seen[IDDollarOfficial] || !seen[IDDollarBlue] {
		return nil, time.Time{}, fmt.Errorf("dolarapi response missing official or blue quote")
	}
	return out, latest.UTC(), nil
}

// BluelyticsProvider is the secondary source for the official and blue rates.
type BluelyticsProvider struct {
	httpSource
}

func NewBluelyticsProvider(tracer trace.Tracer) *BluelyticsProvider {
	return &BluelyticsProvider{httpSource: newHTTPSource("bluelytics", bluelyticsBaseURL, tracer, time.Second, 5)}
}

func (p *BluelyticsProvider) FetchQuotes(ctx context.Context) ([]domain.Indicator, time.Time, error) {
	ctx, span := p.tracer.Start(ctx, "bluelytics.fetch-quotes")
	defer span.End()

	body, err := p.get(ctx, "/v2/latest", "")
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("fetch bluelytics: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, time.Time{}, fmt.Errorf("bluelytics returned invalid json")
	}

	doc := gjson.ParseBytes(body)
	at, _ := time.Parse(time.RFC3339Nano, doc.Get("last_update").String())
	at = at.UTC()

	official := doc.Get("oficial.value_sell").Float()
	blue := doc.Get("blue.value_sell").Float()
	if official <= 0 || blue <= 0 {
		return nil, time.Time{}, fmt.Errorf("bluelytics response missing official or blue quote")
	}
	return []domain.Indicator{
		dollarIndicator(dolarAPICasas["oficial"], official, doc.Get("oficial.value_buy").Float(), p.name, at),
		dollarIndicator(dolarAPICasas["blue"], blue, doc.Get("blue.value_buy").Float(), p.name, at),
	}, at, nil
}

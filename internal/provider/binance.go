package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finboard/internal/config"
	"finboard/internal/domain"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"
)

const binanceBaseURL = "https://api.binance.com"

// BinanceProvider is the fallback for crypto spot prices, quoted in USDT.
type BinanceProvider struct {
	httpSource
}

func NewBinanceProvider(tracer trace.Tracer) *BinanceProvider {
	return &BinanceProvider{httpSource: newHTTPSource("binance", binanceBaseURL, tracer, 100*time.Millisecond, 10)}
}

func (p *BinanceProvider) FetchPrices(ctx context.Context, assets []config.CryptoAsset) ([]domain.Indicator, time.Time, error) {
	ctx, span := p.tracer.Start(ctx, "binance.fetch-prices")
	defer span.End()

	symbols := make([]string, 0, len(assets))
	for _, a := range assets {
		if a.Binance == "" {
			return nil, time.Time{}, fmt.Errorf("no binance symbol for %s", a.ID)
		}
		symbols = append(symbols, strconv.Quote(a.Binance))
	}
	path := "/api/v3/ticker/24hr?symbols=" + url.QueryEscape("["+strings.Join(symbols, ",")+"]")

	body, err := p.get(ctx, path, "")
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("fetch tickers: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, time.Time{}, fmt.Errorf("binance returned invalid json")
	}

	// Response shape: [{"symbol":"BTCUSDT","lastPrice":"97000.10","priceChangePercent":"2.340","closeTime":1740830000000}, ...]
	bySymbol := make(map[string]gjson.Result)
	for _, row := range gjson.ParseBytes(body).Array() {
		bySymbol[row.Get("symbol").String()] = row
	}

	out := make([]domain.Indicator, 0, len(assets))
	var latest time.Time
	for _, a := range assets {
		row, ok := bySymbol[a.Binance]
		if !ok {
			return nil, time.Time{}, fmt.Errorf("binance response missing %s", a.Binance)
		}
		price := row.Get("lastPrice").Float()
		if price <= 0 {
			return nil, time.Time{}, fmt.Errorf("binance has no price for %s", a.Binance)
		}
		at := time.UnixMilli(row.Get("closeTime").Int()).UTC()
		if at.After(latest) {
			latest = at
		}
		var change *float64
		if c := row.Get("priceChangePercent"); c.Exists() {
			change = floatPtr(c.Float())
		}
		out = append(out, cryptoIndicator(a, price, change, p.name, at))
	}
	return out, latest, nil
}

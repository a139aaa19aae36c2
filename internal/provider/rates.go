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
	bcraBaseURL           = "https://api.bcra.gob.ar"
	argentinaDatosBaseURL = "https://api.argentinadatos.com"
)

const (
	IDRatePolicy        = "rate-policy"
	IDRateBadlar        = "rate-badlar"
	IDRateTM20          = "rate-tm20"
	IDRateFixedTerm     = "rate-plazo-fijo"
	IDInflationMonthly  = "inflation-monthly"
	IDInflationYoY      = "inflation-yoy"
	IDInflationExpected = "inflation-expected"
)

// bcraVariable maps a BCRA statistics series onto an indicator.
type bcraVariable struct {
	seriesID  int64
	id        string
	name      string
	short     string
	category  domain.Category
	frequency string
}

var bcraRateSeries = []bcraVariable{
	{6, IDRatePolicy, "Tasa de Política Monetaria (TNA)", "Tasa BCRA", domain.CategoryInterestRate, "daily"},
	{7, IDRateBadlar, "BADLAR Bancos Privados (TNA)", "BADLAR", domain.CategoryInterestRate, "daily"},
	{8, IDRateTM20, "TM20 Bancos Privados (TNA)", "TM20", domain.CategoryInterestRate, "daily"},
	{12, IDRateFixedTerm, "Plazo Fijo 30 días (TNA)", "Plazo Fijo", domain.CategoryInterestRate, "daily"},
}

var bcraInflationSeries = []bcraVariable{
	{27, IDInflationMonthly, "Inflación mensual (IPC)", "IPC mensual", domain.CategoryInflation, "monthly"},
	{28, IDInflationYoY, "Inflación interanual (IPC)", "IPC interanual", domain.CategoryInflation, "monthly"},
	{29, IDInflationExpected, "Inflación esperada 12 meses (REM)", "REM 12m", domain.CategoryInflation, "monthly"},
}

// BCRAProvider reads the central bank's principal monetary variables.
type BCRAProvider struct {
	httpSource
}

func NewBCRAProvider(tracer trace.Tracer) *BCRAProvider {
	return &BCRAProvider{httpSource: newHTTPSource("bcra", bcraBaseURL, tracer, 2*time.Second, 3)}
}

func (p *BCRAProvider) FetchRates(ctx context.Context) ([]domain.Indicator, time.Time, error) {
	ctx, span := p.tracer.Start(ctx, "bcra.fetch-rates")
	defer span.End()
	return p.fetchSeries(ctx, bcraRateSeries)
}

func (p *BCRAProvider) FetchInflation(ctx context.Context) ([]domain.Indicator, time.Time, error) {
	ctx, span := p.tracer.Start(ctx, "bcra.fetch-inflation")
	defer span.End()
	return p.fetchSeries(ctx, bcraInflationSeries)
}

func (p *BCRAProvider) fetchSeries(ctx context.Context, series []bcraVariable) ([]domain.Indicator, time.Time, error) {
	body, err := p.get(ctx, "/estadisticas/v3.0/monetarias", "")
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("fetch bcra variables: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, time.Time{}, fmt.Errorf("bcra returned invalid json")
	}

	// Response shape: {"status":200,"results":[{"idVariable":6,"fecha":"2025-02-28","valor":29.0}, ...]}
	byID := make(map[int64]gjson.Result)
	for _, row := range gjson.GetBytes(body, "results").Array() {
		byID[row.Get("idVariable").Int()] = row
	}

	out := make([]domain.Indicator, 0, len(series))
	var latest time.Time
	for _, v := range series {
		row, ok := byID[v.seriesID]
		if !ok {
			return nil, time.Time{}, fmt.Errorf("bcra response missing series %d", v.seriesID)
		}
		at, _ := time.Parse("2006-01-02", row.Get("fecha").String())
		if at.After(latest) {
			latest = at
		}
		out = append(out, domain.Indicator{
			ID:              v.id,
			Name:            v.name,
			ShortName:       v.short,
			Category:        v.category,
			Value:           row.Get("valor").Float(),
			Format:          domain.FormatPercent,
			Decimals:        2,
			Source:          p.name,
			LastUpdated:     at.UTC(),
			UpdateFrequency: v.frequency,
		})
	}
	return out, latest.UTC(), nil
}

// ArgentinaDatosProvider reads the community-maintained argentinadatos.com API.
type ArgentinaDatosProvider struct {
	httpSource
}

func NewArgentinaDatosProvider(tracer trace.Tracer) *ArgentinaDatosProvider {
	return &ArgentinaDatosProvider{httpSource: newHTTPSource("argentinadatos", argentinaDatosBaseURL, tracer, time.Second, 3)}
}

// FetchFixedTermRate averages the advertised 30-day fixed-term rate across
// banks. The endpoint reports rates as fractions.
func (p *ArgentinaDatosProvider) FetchFixedTermRate(ctx context.Context) ([]domain.Indicator, time.Time, error) {
	ctx, span := p.tracer.Start(ctx, "argentinadatos.fetch-fixed-term")
	defer span.End()

	body, err := p.get(ctx, "/v1/finanzas/tasas/plazoFijo", "")
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("fetch fixed-term rates: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, time.Time{}, fmt.Errorf("argentinadatos returned invalid json")
	}

	var sum float64
	var n int
	for _, row := range gjson.ParseBytes(body).Array() {
		if tna := row.Get("tnaClientes").Float(); tna > 0 {
			sum += tna
			n++
		}
	}
	if n == 0 {
		return nil, time.Time{}, errNoData
	}
	return []domain.Indicator{{
		ID:              IDRateFixedTerm,
		Name:            "Plazo Fijo 30 días (TNA)",
		ShortName:       "Plazo Fijo",
		Category:        domain.CategoryInterestRate,
		Value:           sum / float64(n) * 100,
		Format:          domain.FormatPercent,
		Decimals:        2,
		Source:          p.name,
		UpdateFrequency: "daily",
	}}, time.Time{}, nil
}

// FetchInflation returns the latest monthly CPI change and the year-over-year
// figure compounded from the last twelve months.
func (p *ArgentinaDatosProvider) FetchInflation(ctx context.Context) ([]domain.Indicator, time.Time, error) {
	ctx, span := p.tracer.Start(ctx, "argentinadatos.fetch-inflation")
	defer span.End()

	body, err := p.get(ctx, "/v1/finanzas/indices/inflacion", "")
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("fetch inflation: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, time.Time{}, fmt.Errorf("argentinadatos returned invalid json")
	}

	// Response shape: [{"fecha":"2024-12-31","valor":2.7}, ...] oldest first.
	rows := gjson.ParseBytes(body).Array()
	if len(rows) == 0 {
		return nil, time.Time{}, errNoData
	}
	last := rows[len(rows)-1]
	at, _ := time.Parse("2006-01-02", last.Get("fecha").String())
	at = at.UTC()

	out := []domain.Indicator{{
		ID:              IDInflationMonthly,
		Name:            "Inflación mensual (IPC)",
		ShortName:       "IPC mensual",
		Category:        domain.CategoryInflation,
		Value:           last.Get("valor").Float(),
		Format:          domain.FormatPercent,
		Decimals:        1,
		Source:          p.name,
		LastUpdated:     at,
		UpdateFrequency: "monthly",
	}}
	if yoy, ok := compoundLast(rows, 12); ok {
		out = append(out, domain.Indicator{
			ID:              IDInflationYoY,
			Name:            "Inflación interanual (IPC)",
			ShortName:       "IPC interanual",
			Category:        domain.CategoryInflation,
			Value:           yoy,
			Format:          domain.FormatPercent,
			Decimals:        1,
			Source:          p.name,
			LastUpdated:     at,
			UpdateFrequency: "monthly",
		})
	}
	return out, at, nil
}

func compoundLast(rows []gjson.Result, months int) (float64, bool) {
	if len(rows) < months {
		return 0, false
	}
	acc := 1.0
	for _, row := range rows[len(rows)-months:] {
		acc *= 1 + row.Get("valor").Float()/100
	}
	return (acc - 1) * 100, true
}

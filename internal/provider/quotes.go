package provider

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finboard/internal/config"
	"finboard/internal/domain"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	yahooBaseURL = "https://query1.finance.yahoo.com"
	stooqBaseURL = "https://stooq.com"
)

func quoteIndicator(sym config.QuoteSymbol, category domain.Category, value float64, change *float64, source string, at time.Time) domain.Indicator {
	short := sym.ShortName
	if short == "" {
		short = sym.Name
	}
	frequency := "intraday"
	return domain.Indicator{
		ID:              sym.ID,
		Name:            sym.Name,
		ShortName:       short,
		Category:        category,
		Value:           value,
		ChangePct:       change,
		Format:          domain.FormatDecimal,
		Decimals:        sym.Decimals,
		Unit:            sym.Unit,
		Source:          source,
		LastUpdated:     at,
		UpdateFrequency: frequency,
	}
}

// YahooProvider reads index and futures quotes from the Yahoo chart API.
type YahooProvider struct {
	httpSource
}

func NewYahooProvider(tracer trace.Tracer) *YahooProvider {
	return &YahooProvider{httpSource: newHTTPSource("yahoo", yahooBaseURL, tracer, 250*time.Millisecond, 8)}
}

// FetchQuotes fetches every symbol concurrently; one failed symbol fails the
// whole call so callers never see a partial set from this source.
func (p *YahooProvider) FetchQuotes(ctx context.Context, symbols []config.QuoteSymbol, category domain.Category) ([]domain.Indicator, time.Time, error) {
	ctx, span := p.tracer.Start(ctx, "yahoo.fetch-quotes")
	defer span.End()
	span.SetAttributes(attribute.String("category", string(category)), attribute.Int("symbols", len(symbols)))

	out := make([]domain.Indicator, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	for i, sym := range symbols {
		g.Go(func() error {
			ind, err := p.fetchOne(gctx, sym, category)
			if err != nil {
				return fmt.Errorf("%s: %w", sym.Yahoo, err)
			}
			out[i] = ind
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, time.Time{}, err
	}

	var latest time.Time
	for _, ind := range out {
		if ind.LastUpdated.After(latest) {
			latest = ind.LastUpdated
		}
	}
	return out, latest, nil
}

func (p *YahooProvider) fetchOne(ctx context.Context, sym config.QuoteSymbol, category domain.Category) (domain.Indicator, error) {
	path := "/v8/finance/chart/" + url.PathEscape(sym.Yahoo) + "?range=5d&interval=1d"
	body, err := p.get(ctx, path, "")
	if err != nil {
		return domain.Indicator{}, err
	}
	if !gjson.ValidBytes(body) {
		return domain.Indicator{}, fmt.Errorf("yahoo returned invalid json")
	}
	if e := gjson.GetBytes(body, "chart.error.description"); e.Exists() && e.String() != "" {
		return domain.Indicator{}, fmt.Errorf("yahoo chart error: %s", e.String())
	}

	meta := gjson.GetBytes(body, "chart.result.0.meta")
	price := meta.Get("regularMarketPrice").Float()
	if price <= 0 {
		return domain.Indicator{}, errNoData
	}
	var change *float64
	if prev := meta.Get("chartPreviousClose").Float(); prev > 0 {
		change = floatPtr((price - prev) / prev * 100)
	}
	at := time.Unix(meta.Get("regularMarketTime").Int(), 0).UTC()
	return quoteIndicator(sym, category, price, change, p.name, at), nil
}

// StooqProvider is the CSV quote fallback for indices and futures.
type StooqProvider struct {
	httpSource
}

func NewStooqProvider(tracer trace.Tracer) *StooqProvider {
	return &StooqProvider{httpSource: newHTTPSource("stooq", stooqBaseURL, tracer, 500*time.Millisecond, 4)}
}

func (p *StooqProvider) FetchQuotes(ctx context.Context, symbols []config.QuoteSymbol, category domain.Category) ([]domain.Indicator, time.Time, error) {
	ctx, span := p.tracer.Start(ctx, "stooq.fetch-quotes")
	defer span.End()

	out := make([]domain.Indicator, 0, len(symbols))
	var latest time.Time
	for _, sym := range symbols {
		if sym.Stooq == "" {
			return nil, time.Time{}, fmt.Errorf("no stooq symbol for %s", sym.ID)
		}
		ind, err := p.fetchOne(ctx, sym, category)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("%s: %w", sym.Stooq, err)
		}
		if ind.LastUpdated.After(latest) {
			latest = ind.LastUpdated
		}
		out = append(out, ind)
	}
	return out, latest, nil
}

func (p *StooqProvider) fetchOne(ctx context.Context, sym config.QuoteSymbol, category domain.Category) (domain.Indicator, error) {
	path := "/q/l/?s=" + url.QueryEscape(sym.Stooq) + "&f=sd2t2ohlcv&h&e=csv"
	body, err := p.get(ctx, path, "text/csv")
	if err != nil {
		return domain.Indicator{}, err
	}

	// Symbol,Date,Time,Open,High,Low,Close,Volume
	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		return domain.Indicator{}, fmt.Errorf("parse stooq csv: %w", err)
	}
	if len(records) < 2 || len(records[1]) < 7 {
		return domain.Indicator{}, errNoData
	}
	row := records[1]
	closeVal, err := strconv.ParseFloat(strings.TrimSpace(row[6]), 64)
	if err != nil || closeVal <= 0 {
		return domain.Indicator{}, fmt.Errorf("stooq has no quote for %s", sym.Stooq)
	}
	at, err := time.Parse("2006-01-02 15:04:05", row[1]+" "+row[2])
	if err != nil {
		at = time.Time{}
	}
	return quoteIndicator(sym, category, closeVal, nil, p.name, at.UTC()), nil
}

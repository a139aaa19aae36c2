package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"finboard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const fearGreedBaseURL = "https://api.alternative.me"

const IDCryptoFearGreed = "crypto-fear-greed"

type FearGreedProvider struct {
	httpSource
}

func NewFearGreedProvider(tracer trace.Tracer) *FearGreedProvider {
	return &FearGreedProvider{httpSource: newHTTPSource("alternative.me", fearGreedBaseURL, tracer, 2*time.Second, 2)}
}

// FetchIndex returns the crypto Fear & Greed index as a single indicator.
// The classification ("Extreme Fear", "Greed", ...) goes into Unit.
func (p *FearGreedProvider) FetchIndex(ctx context.Context) ([]domain.Indicator, time.Time, error) {
	ctx, span := p.tracer.Start(ctx, "feargreed.fetch-latest")
	defer span.End()

	body, err := p.get(ctx, "/fng/?limit=1", "")
	if err != nil {
		return nil, time.Time{}, err
	}

	var payload struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
			Timestamp      string `json:"timestamp"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode fear & greed response: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, time.Time{}, fmt.Errorf("fear & greed response has no rows")
	}

	row := payload.Data[0]
	value, err := strconv.Atoi(strings.TrimSpace(row.Value))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parse fear & greed value: %w", err)
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(row.Timestamp), 10, 64)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parse fear & greed timestamp: %w", err)
	}
	if ts > 1_000_000_000_000 {
		ts = ts / 1000
	}
	at := time.Unix(ts, 0).UTC()

	return []domain.Indicator{{
		ID:              IDCryptoFearGreed,
		Name:            "Crypto Fear & Greed Index",
		ShortName:       "Fear & Greed",
		Category:        domain.CategoryCrypto,
		Value:           float64(value),
		Format:          domain.FormatDecimal,
		Decimals:        0,
		Unit:            row.Classification,
		Source:          p.name,
		LastUpdated:     at,
		UpdateFrequency: "daily",
	}}, at, nil
}

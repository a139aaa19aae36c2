package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"finboard/internal/config"
	"finboard/internal/domain"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider fetches spot prices from the CoinGecko free API.
type CoinGeckoProvider struct {
	httpSource
}

// NewCoinGeckoProvider creates a provider limited to 8 requests per minute,
// the free tier's sustained budget.
func NewCoinGeckoProvider(tracer trace.Tracer) *CoinGeckoProvider {
	return &CoinGeckoProvider{httpSource: newHTTPSource("coingecko", coingeckoBaseURL, tracer, 7500*time.Millisecond, 8)}
}

// FetchPrices fetches USD prices for all assets in a single API call.
func (p *CoinGeckoProvider) FetchPrices(ctx context.Context, assets []config.CryptoAsset) ([]domain.Indicator, time.Time, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-prices")
	defer span.End()

	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		ids = append(ids, a.CoinGecko)
	}
	path := "/simple/price?ids=" + url.QueryEscape(strings.Join(ids, ",")) +
		"&vs_currencies=usd&include_24hr_change=true&include_last_updated_at=true"

	body, err := p.get(ctx, path, "")
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("fetch prices: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, time.Time{}, fmt.Errorf("coingecko returned invalid json")
	}

	// Response shape: {"bitcoin": {"usd": 97000, "usd_24h_change": 2.34, "last_updated_at": 1740830000}, ...}
	doc := gjson.ParseBytes(body)
	out := make([]domain.Indicator, 0, len(assets))
	var latest time.Time
	for _, a := range assets {
		row := doc.Get(gjson.Escape(a.CoinGecko))
		price := row.Get("usd").Float()
		if !row.Exists() || price <= 0 {
			return nil, time.Time{}, fmt.Errorf("coingecko response missing %s", a.CoinGecko)
		}
		at := time.Unix(row.Get("last_updated_at").Int(), 0).UTC()
		if at.After(latest) {
			latest = at
		}
		var change *float64
		if c := row.Get("usd_24h_change"); c.Exists() {
			change = floatPtr(c.Float())
		}
		out = append(out, cryptoIndicator(a, price, change, p.name, at))
	}
	return out, latest, nil
}

func cryptoIndicator(a config.CryptoAsset, price float64, change *float64, source string, at time.Time) domain.Indicator {
	short := a.ShortName
	if short == "" {
		short = strings.ToUpper(a.ID)
	}
	return domain.Indicator{
		ID:              a.ID,
		Name:            a.Name,
		ShortName:       short,
		Category:        domain.CategoryCrypto,
		Value:           price,
		ChangePct:       change,
		Format:          domain.FormatCurrency,
		Decimals:        2,
		Unit:            "USD",
		Source:          source,
		LastUpdated:     at,
		UpdateFrequency: "real-time",
	}
}

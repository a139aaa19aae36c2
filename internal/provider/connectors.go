package provider

import (
	"context"
	"time"

	"finboard/internal/cache"
	"finboard/internal/config"
	"finboard/internal/domain"
	"finboard/internal/metrics"

	"go.opentelemetry.io/otel/trace"
)

// Connector names. They double as snapshot keys and metric labels.
const (
	ConnectorDollar    = "dollar"
	ConnectorRates     = "rates"
	ConnectorInflation = "inflation"
	ConnectorIndices   = "indices"
	ConnectorAgro      = "agro"
	ConnectorCrypto    = "crypto"
	ConnectorFearGreed = "feargreed"
)

type ConnectorDeps struct {
	Tracer    trace.Tracer
	Sources   *config.Sources
	Timeout   time.Duration
	Snapshots *cache.SnapshotStore
	Metrics   *metrics.Recorder
}

// BuildConnectors wires every upstream into its connector, in the priority
// order used when two connectors report the same indicator.
func BuildConnectors(deps ConnectorDeps) []Connector {
	t := deps.Tracer
	src := deps.Sources
	if src == nil {
		src = config.DefaultSources()
	}

	dolarAPI := NewDolarAPIProvider(t)
	bluelytics := NewBluelyticsProvider(t)
	bcra := NewBCRAProvider(t)
	argData := NewArgentinaDatosProvider(t)
	yahoo := NewYahooProvider(t)
	stooq := NewStooqProvider(t)
	coingecko := NewCoinGeckoProvider(t)
	binance := NewBinanceProvider(t)
	fearGreed := NewFearGreedProvider(t)

	chain := func(name string, category domain.Category, ups ...Upstream[[]domain.Indicator]) Connector {
		return NewChainConnector(t, name, category, deps.Timeout, deps.Snapshots, deps.Metrics, ups...)
	}
	quotes := func(fetch func(context.Context, []config.QuoteSymbol, domain.Category) ([]domain.Indicator, time.Time, error), symbols []config.QuoteSymbol, category domain.Category) func(context.Context) ([]domain.Indicator, time.Time, error) {
		return func(ctx context.Context) ([]domain.Indicator, time.Time, error) {
			return fetch(ctx, symbols, category)
		}
	}
	crypto := func(fetch func(context.Context, []config.CryptoAsset) ([]domain.Indicator, time.Time, error)) func(context.Context) ([]domain.Indicator, time.Time, error) {
		return func(ctx context.Context) ([]domain.Indicator, time.Time, error) {
			return fetch(ctx, src.CryptoAssets)
		}
	}

	return []Connector{
		chain(ConnectorDollar, domain.CategoryExchangeRate,
			Upstream[[]domain.Indicator]{Name: dolarAPI.name, Fetch: dolarAPI.FetchQuotes},
			Upstream[[]domain.Indicator]{Name: bluelytics.name, Fetch: bluelytics.FetchQuotes},
		),
		chain(ConnectorRates, domain.CategoryInterestRate,
			Upstream[[]domain.Indicator]{Name: bcra.name, Fetch: bcra.FetchRates},
			Upstream[[]domain.Indicator]{Name: argData.name, Fetch: argData.FetchFixedTermRate},
		),
		chain(ConnectorInflation, domain.CategoryInflation,
			Upstream[[]domain.Indicator]{Name: argData.name, Fetch: argData.FetchInflation},
			Upstream[[]domain.Indicator]{Name: bcra.name, Fetch: bcra.FetchInflation},
		),
		chain(ConnectorIndices, domain.CategoryMarketIndex,
			Upstream[[]domain.Indicator]{Name: yahoo.name, Fetch: quotes(yahoo.FetchQuotes, src.MarketIndices, domain.CategoryMarketIndex)},
			Upstream[[]domain.Indicator]{Name: stooq.name, Fetch: quotes(stooq.FetchQuotes, src.MarketIndices, domain.CategoryMarketIndex)},
		),
		chain(ConnectorAgro, domain.CategoryAgroCommodity,
			Upstream[[]domain.Indicator]{Name: yahoo.name, Fetch: quotes(yahoo.FetchQuotes, src.AgroCommodities, domain.CategoryAgroCommodity)},
			Upstream[[]domain.Indicator]{Name: stooq.name, Fetch: quotes(stooq.FetchQuotes, src.AgroCommodities, domain.CategoryAgroCommodity)},
		),
		chain(ConnectorCrypto, domain.CategoryCrypto,
			Upstream[[]domain.Indicator]{Name: coingecko.name, Fetch: crypto(coingecko.FetchPrices)},
			Upstream[[]domain.Indicator]{Name: binance.name, Fetch: crypto(binance.FetchPrices)},
		),
		chain(ConnectorFearGreed, domain.CategoryCrypto,
			Upstream[[]domain.Indicator]{Name: fearGreed.name, Fetch: fearGreed.FetchIndex},
		),
	}
}

package indicators

import (
	"context"
	"fmt"
	"time"

	"finboard/internal/cache"
	"finboard/internal/config"
	"finboard/internal/domain"
	"finboard/internal/provider"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// unavailableTTL caps how long a view with missing connectors stays cached,
// so a recovered upstream shows up quickly.
const unavailableTTL = 15 * time.Second

const (
	viewCategory = "category"
	viewOverview = "overview"
	viewTicker   = "ticker"
	viewDollar   = "dollar"
)

type Config struct {
	TTLs          config.CategoryTTLs
	Ticker        []string
	DerivedMaxAge time.Duration
}

// Engine merges connector output into the category, overview, ticker and
// dollar views. Connectors are listed in priority order.
type Engine struct {
	tracer     trace.Tracer
	connectors []provider.Connector
	cache      *cache.TTLCache
	cfg        Config
	now        func() time.Time
}

func NewEngine(tracer trace.Tracer, connectors []provider.Connector, c *cache.TTLCache, cfg Config) *Engine {
	if cfg.TTLs == nil {
		cfg.TTLs = config.DefaultCategoryTTLs()
	}
	if cfg.DerivedMaxAge <= 0 {
		cfg.DerivedMaxAge = 6 * time.Hour
	}
	if c == nil {
		c = cache.NewTTLCache()
	}
	return &Engine{
		tracer:     tracer,
		connectors: connectors,
		cache:      c,
		cfg:        cfg,
		now:        time.Now,
	}
}

// collected is the merged output of one aggregation pass.
type collected struct {
	Indicators  []domain.Indicator
	Unavailable []string
}

func (e *Engine) GetByCategory(ctx context.Context, c domain.Category) ([]domain.Indicator, error) {
	ctx, span := e.tracer.Start(ctx, "indicators.get-by-category")
	defer span.End()
	span.SetAttributes(attribute.String("category", string(c)))

	if _, ok := domain.ParseCategory(string(c)); !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, c)
	}

	got, err := e.view(ctx, viewCategory, c, e.cfg.TTLs.For(c), func(ctx context.Context) (collected, error) {
		return e.collect(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return got.Indicators, nil
}

func (e *Engine) GetOverview(ctx context.Context) (domain.Overview, error) {
	ctx, span := e.tracer.Start(ctx, "indicators.get-overview")
	defer span.End()

	got, err := e.view(ctx, viewOverview, "all", e.cfg.TTLs.Shortest(), func(ctx context.Context) (collected, error) {
		return e.collect(ctx, domain.Categories...)
	})
	if err != nil {
		return domain.Overview{}, err
	}

	byCategory := make(map[domain.Category][]domain.Indicator)
	for _, ind := range got.Indicators {
		byCategory[ind.Category] = append(byCategory[ind.Category], ind)
	}
	overview := domain.Overview{
		Groups:      make([]domain.CategoryGroup, 0, len(domain.Categories)),
		Unavailable: got.Unavailable,
		GeneratedAt: e.now().UTC(),
	}
	for _, c := range domain.Categories {
		if inds := byCategory[c]; len(inds) > 0 {
			overview.Groups = append(overview.Groups, domain.CategoryGroup{Category: c, Indicators: inds})
		}
	}
	return overview, nil
}

// GetTicker returns the configured ticker IDs that currently have a value,
// in configured order.
func (e *Engine) GetTicker(ctx context.Context) ([]domain.TickerItem, error) {
	ctx, span := e.tracer.Start(ctx, "indicators.get-ticker")
	defer span.End()

	got, err := e.view(ctx, viewTicker, "all", e.cfg.TTLs.Shortest(), func(ctx context.Context) (collected, error) {
		return e.collect(ctx, domain.Categories...)
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Indicator, len(got.Indicators))
	for _, ind := range got.Indicators {
		byID[ind.ID] = ind
	}
	items := make([]domain.TickerItem, 0, len(e.cfg.Ticker))
	for _, id := range e.cfg.Ticker {
		ind, ok := byID[id]
		if !ok {
			continue
		}
		label := ind.ShortName
		if label == "" {
			label = ind.Name
		}
		items = append(items, domain.TickerItem{
			ID:         ind.ID,
			Label:      label,
			Value:      ind.Value,
			ChangePct:  ind.ChangePct,
			Format:     ind.Format,
			Decimals:   ind.Decimals,
			IsFallback: ind.IsFallback,
		})
	}
	return items, nil
}

func (e *Engine) GetDollarQuotes(ctx context.Context) (domain.DollarQuotes, error) {
	ctx, span := e.tracer.Start(ctx, "indicators.get-dollar-quotes")
	defer span.End()

	c := domain.CategoryExchangeRate
	got, err := e.view(ctx, viewDollar, c, e.cfg.TTLs.For(c), func(ctx context.Context) (collected, error) {
		return e.collect(ctx, c)
	})
	if err != nil {
		return domain.DollarQuotes{}, err
	}
	now := e.now()
	return domain.DollarQuotes{
		Quotes:      got.Indicators,
		Derived:     deriveDollarMetrics(got.Indicators, now, e.cfg.DerivedMaxAge),
		Unavailable: got.Unavailable,
		GeneratedAt: now.UTC(),
	}, nil
}

// Invalidate drops every cached view and connector result.
func (e *Engine) Invalidate() int {
	return e.cache.InvalidatePrefix("indicators:") + e.cache.InvalidatePrefix("connector:")
}

func (e *Engine) view(ctx context.Context, name string, scope domain.Category, ttl time.Duration, load func(context.Context) (collected, error)) (collected, error) {
	key := fmt.Sprintf("indicators:%s:%s", name, scope)
	got, err := cache.Load(ctx, e.cache, key, ttl, load)
	if err != nil {
		return collected{}, err
	}
	if len(got.Unavailable) > 0 && ttl > unavailableTTL {
		e.cache.Set(key, got, unavailableTTL)
	}
	return got, nil
}

// collect fetches every connector serving one of the categories
// concurrently, then merges in connector priority order.
func (e *Engine) collect(ctx context.Context, categories ...domain.Category) (collected, error) {
	want := make(map[domain.Category]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}

	var selected []provider.Connector
	for _, conn := range e.connectors {
		if want[conn.Category()] {
			selected = append(selected, conn)
		}
	}

	results := make([]domain.SourceResult[[]domain.Indicator], len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, conn := range selected {
		g.Go(func() error {
			res, err := e.fetchConnector(gctx, conn)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return collected{}, err
	}

	out := collected{Indicators: merge(results)}
	filtered := out.Indicators[:0]
	for _, ind := range out.Indicators {
		if want[ind.Category] {
			filtered = append(filtered, ind)
		}
	}
	out.Indicators = filtered
	for i, res := range results {
		if res.Unavailable {
			out.Unavailable = append(out.Unavailable, selected[i].Name())
		}
	}
	if len(out.Unavailable) > 0 {
		log.Warn().Strs("connectors", out.Unavailable).Msg("serving partial indicators")
	}
	return out, nil
}

func (e *Engine) fetchConnector(ctx context.Context, conn provider.Connector) (domain.SourceResult[[]domain.Indicator], error) {
	key := "connector:" + conn.Name()
	res, err := cache.Load(ctx, e.cache, key, e.cfg.TTLs.For(conn.Category()), func(ctx context.Context) (domain.SourceResult[[]domain.Indicator], error) {
		return conn.Fetch(ctx), nil
	})
	if err != nil {
		return res, err
	}
	if res.Unavailable {
		e.cache.Set(key, res, unavailableTTL)
	}
	return res, nil
}

// merge de-duplicates by indicator ID. A live value replaces a fallback
// one; otherwise the first connector in priority order keeps the slot.
func merge(results []domain.SourceResult[[]domain.Indicator]) []domain.Indicator {
	out := make([]domain.Indicator, 0)
	index := make(map[string]int)
	for _, res := range results {
		for _, ind := range res.Payload {
			i, seen := index[ind.ID]
			if !seen {
				index[ind.ID] = len(out)
				out = append(out, ind)
				continue
			}
			if out[i].IsFallback && !ind.IsFallback {
				out[i] = ind
			}
		}
	}
	return out
}

package job

import (
	"context"
	"time"

	"finboard/internal/domain"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type OverviewLoader interface {
	GetOverview(ctx context.Context) (domain.Overview, error)
}

// IndicatorWarmer loads the overview on a fixed interval so the indicator
// caches are refilled before readers find them empty.
type IndicatorWarmer struct {
	tracer       trace.Tracer
	engine       OverviewLoader
	pollInterval time.Duration
}

func NewIndicatorWarmer(tracer trace.Tracer, engine OverviewLoader, pollIntervalSecs int) *IndicatorWarmer {
	interval := time.Duration(pollIntervalSecs) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	return &IndicatorWarmer{
		tracer:       tracer,
		engine:       engine,
		pollInterval: interval,
	}
}

// Start blocks until ctx is cancelled.
func (w *IndicatorWarmer) Start(ctx context.Context) {
	log.Info().Dur("interval", w.pollInterval).Msg("Indicator warmer starting")
	pollLoop(ctx, "indicator-warmer", w.pollInterval, w.warmOnce)
	log.Info().Msg("Indicator warmer stopped")
}

func (w *IndicatorWarmer) warmOnce(ctx context.Context) error {
	ctx, span := w.tracer.Start(ctx, "indicator-warmer.warm-once")
	defer span.End()

	overview, err := w.engine.GetOverview(ctx)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.Int("groups", len(overview.Groups)),
		attribute.Int("unavailable", len(overview.Unavailable)),
	)
	if len(overview.Unavailable) > 0 {
		log.Warn().Strs("connectors", overview.Unavailable).Msg("indicator warm-up: connectors unavailable")
	}
	return nil
}

func pollLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	// Run immediately on start
	if err := fn(ctx); err != nil {
		log.Warn().Err(err).Str("job", name).Msg("poller initial run error")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				log.Warn().Err(err).Str("job", name).Msg("poller error")
			}
		}
	}
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finboard/internal/cache"
	"finboard/internal/domain"
	"finboard/internal/metrics"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SnapshotSource prefixes the Source of indicators served from the
// last-known-good store.
const SnapshotSource = "last-known-good"

// Upstream is one way of producing a payload. Fetch returns the payload and
// the time the upstream says it was last updated (zero if unknown).
type Upstream[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (T, time.Time, error)
}

// AttemptError records why one upstream in a chain failed.
type AttemptError struct {
	Upstream string
	Err      error
}

func (e AttemptError) Error() string { return e.Upstream + ": " + e.Err.Error() }

func (e AttemptError) Unwrap() error { return e.Err }

// FirstSuccess tries upstreams in order, each under its own timeout, and
// returns the first that succeeds. Any attempt after the first is flagged as
// fallback with a disclaimer. When every attempt fails the result is marked
// Unavailable and the per-upstream errors are returned for diagnostics.
func FirstSuccess[T any](ctx context.Context, timeout time.Duration, upstreams []Upstream[T]) (domain.SourceResult[T], []AttemptError) {
	var errs []AttemptError
	for i, up := range upstreams {
		if ctx.Err() != nil {
			errs = append(errs, AttemptError{Upstream: up.Name, Err: ctx.Err()})
			break
		}
		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		payload, updated, err := up.Fetch(callCtx)
		cancel()
		if err != nil {
			errs = append(errs, AttemptError{Upstream: up.Name, Err: err})
			continue
		}
		if updated.IsZero() {
			updated = time.Now().UTC()
		}
		res := domain.SourceResult[T]{
			Payload:     payload,
			LastUpdated: updated,
			Source:      up.Name,
		}
		if i > 0 {
			res.IsFallback = true
			res.Disclaimer = fmt.Sprintf("%s unavailable; showing data from %s", upstreams[0].Name, up.Name)
		}
		return res, errs
	}

	var zero T
	return domain.SourceResult[T]{Payload: zero, Source: "unavailable", Unavailable: true}, errs
}

// Connector produces the indicators of one category from an ordered set of
// upstreams. Fetch never returns an error: total failure is reported through
// SourceResult.Unavailable.
type Connector interface {
	Name() string
	Category() domain.Category
	Fetch(ctx context.Context) domain.SourceResult[[]domain.Indicator]
}

type ChainConnector struct {
	name      string
	category  domain.Category
	upstreams []Upstream[[]domain.Indicator]
	timeout   time.Duration
	snapshots *cache.SnapshotStore
	metrics   *metrics.Recorder
	tracer    trace.Tracer
}

func NewChainConnector(
	tracer trace.Tracer,
	name string,
	category domain.Category,
	timeout time.Duration,
	snapshots *cache.SnapshotStore,
	recorder *metrics.Recorder,
	upstreams ...Upstream[[]domain.Indicator],
) *ChainConnector {
	return &ChainConnector{
		name:      name,
		category:  category,
		upstreams: upstreams,
		timeout:   timeout,
		snapshots: snapshots,
		metrics:   recorder,
		tracer:    tracer,
	}
}

func (c *ChainConnector) Name() string              { return c.name }
func (c *ChainConnector) Category() domain.Category { return c.category }

func (c *ChainConnector) Fetch(ctx context.Context) domain.SourceResult[[]domain.Indicator] {
	ctx, span := c.tracer.Start(ctx, "connector.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("connector", c.name))
	started := time.Now()

	live := make([]Upstream[[]domain.Indicator], 0, len(c.upstreams))
	for _, up := range c.upstreams {
		live = append(live, Upstream[[]domain.Indicator]{Name: up.Name, Fetch: nonEmpty(up.Fetch)})
	}

	res, errs := FirstSuccess(ctx, c.timeout, live)
	for _, e := range errs {
		log.Warn().Err(e.Err).Str("connector", c.name).Str("upstream", e.Upstream).Msg("upstream failed")
		c.metrics.UpstreamError(c.name, e.Upstream)
	}

	tier := "primary"
	switch {
	case res.Unavailable:
		if snap, ok := c.fromSnapshot(ctx); ok {
			res = snap
			tier = "snapshot"
		} else {
			tier = "unavailable"
			res.Source = "unavailable:" + c.name
			res.Payload = []domain.Indicator{}
			span.SetStatus(codes.Error, "all upstreams failed")
		}
	case res.IsFallback:
		tier = "fallback"
	}
	res.Payload = c.stamp(res)
	if !res.Unavailable && tier != "snapshot" {
		if err := c.snapshots.Save(ctx, c.name, res); err != nil {
			log.Warn().Err(err).Str("connector", c.name).Msg("snapshot save failed")
		}
	}
	c.metrics.ConnectorResult(c.name, tier, time.Since(started))
	span.SetAttributes(attribute.String("tier", tier), attribute.String("source", res.Source))
	return res
}

func (c *ChainConnector) fromSnapshot(ctx context.Context) (domain.SourceResult[[]domain.Indicator], bool) {
	inds, source, savedAt, err := c.snapshots.Load(ctx, c.name)
	if err != nil {
		if !errors.Is(err, cache.ErrSnapshotMiss) {
			log.Warn().Err(err).Str("connector", c.name).Msg("snapshot read failed")
		}
		return domain.SourceResult[[]domain.Indicator]{}, false
	}
	return domain.SourceResult[[]domain.Indicator]{
		Payload:     inds,
		LastUpdated: savedAt,
		Source:      SnapshotSource,
		IsFallback:  true,
		Disclaimer: fmt.Sprintf("live sources unavailable; showing last known value from %s as of %s",
			source, savedAt.UTC().Format(time.RFC3339)),
	}, true
}

// stamp copies result-level provenance onto each indicator. The payload is
// copied so cached snapshots are never mutated.
func (c *ChainConnector) stamp(res domain.SourceResult[[]domain.Indicator]) []domain.Indicator {
	out := make([]domain.Indicator, len(res.Payload))
	for i, ind := range res.Payload {
		if ind.Category == "" {
			ind.Category = c.category
		}
		if ind.LastUpdated.IsZero() {
			ind.LastUpdated = res.LastUpdated
		}
		if ind.Source == "" {
			ind.Source = res.Source
		}
		if res.IsFallback {
			ind.IsFallback = true
			ind.Disclaimer = res.Disclaimer
		}
		if res.Source == SnapshotSource && !strings.HasPrefix(ind.Source, SnapshotSource) {
			ind.Source = SnapshotSource + ":" + ind.Source
		}
		out[i] = ind
	}
	return out
}

func nonEmpty(fetch func(context.Context) ([]domain.Indicator, time.Time, error)) func(context.Context) ([]domain.Indicator, time.Time, error) {
	return func(ctx context.Context) ([]domain.Indicator, time.Time, error) {
		inds, updated, err := fetch(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		if len(inds) == 0 {
			return nil, time.Time{}, errNoData
		}
		return inds, updated, nil
	}
}

var errNoData = errors.New("no data")

package news

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"finboard/internal/domain"

	"github.com/rs/zerolog/log"
)

// Runner is one pipeline pass.
type Runner interface {
	Run(ctx context.Context) (domain.PipelineRunResult, error)
}

type stateStore interface {
	LastSuccessAt(ctx context.Context) (*time.Time, error)
	ClearAll(ctx context.Context) (int64, error)
}

// Coordinator owns the process-wide single-flight flag: at most one run,
// whether scheduled, triggered by a stale read or requested by an operator,
// is active at a time.
type Coordinator struct {
	runner     Runner
	store      stateStore
	staleAfter time.Duration
	runTimeout time.Duration
	running    atomic.Bool
	wg         sync.WaitGroup
	afterRun   []func(domain.PipelineRunResult)
	now        func() time.Time
}

func NewCoordinator(runner Runner, store stateStore, staleAfter, runTimeout time.Duration) *Coordinator {
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	if runTimeout <= 0 {
		runTimeout = time.Minute
	}
	return &Coordinator{
		runner:     runner,
		store:      store,
		staleAfter: staleAfter,
		runTimeout: runTimeout,
		now:        time.Now,
	}
}

// OnRunComplete registers a hook called after every run that got past
// startup. Register hooks before the first run.
func (c *Coordinator) OnRunComplete(fn func(domain.PipelineRunResult)) {
	c.afterRun = append(c.afterRun, fn)
}

func (c *Coordinator) Running() bool { return c.running.Load() }

// IsStoreStale compares the durable last-success timestamp with the
// threshold. A store that has never completed a run is stale.
func (c *Coordinator) IsStoreStale(ctx context.Context) (domain.Staleness, error) {
	last, err := c.store.LastSuccessAt(ctx)
	if err != nil {
		return domain.Staleness{Stale: true}, err
	}
	if last == nil {
		return domain.Staleness{Stale: true}, nil
	}
	age := c.now().Sub(*last)
	if age < 0 {
		age = 0
	}
	at := last.UTC()
	return domain.Staleness{
		Stale:       age > c.staleAfter,
		MinutesOld:  int(age / time.Minute),
		LastUpdated: &at,
	}, nil
}

// TriggerBackgroundRefresh starts a run on a detached context unless one is
// already active. It never blocks and reports whether a run was started.
func (c *Coordinator) TriggerBackgroundRefresh() bool {
	if !c.running.CompareAndSwap(false, true) {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.running.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), c.runTimeout)
		defer cancel()
		if _, err := c.run(ctx); err != nil {
			log.Warn().Err(err).Msg("background news refresh failed")
		}
	}()
	return true
}

// RunNow runs synchronously, bounded by the run timeout.
func (c *Coordinator) RunNow(ctx context.Context) (domain.PipelineRunResult, error) {
	if !c.running.CompareAndSwap(false, true) {
		return domain.PipelineRunResult{}, domain.ErrRunInProgress
	}
	defer c.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, c.runTimeout)
	defer cancel()
	return c.run(ctx)
}

// ForceReprocess deletes every stored article, then runs.
func (c *Coordinator) ForceReprocess(ctx context.Context) (domain.PipelineRunResult, error) {
	if !c.running.CompareAndSwap(false, true) {
		return domain.PipelineRunResult{}, domain.ErrRunInProgress
	}
	defer c.running.Store(false)

	cleared, err := c.store.ClearAll(ctx)
	if err != nil {
		return domain.PipelineRunResult{Outcome: domain.OutcomeFailed, Errors: []string{err.Error()}}, fmt.Errorf("force reprocess: %w", err)
	}
	log.Info().Int64("cleared", cleared).Msg("news store cleared for reprocess")

	ctx, cancel := context.WithTimeout(ctx, c.runTimeout)
	defer cancel()
	return c.run(ctx)
}

// Wait blocks until any background run has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) run(ctx context.Context) (domain.PipelineRunResult, error) {
	res, err := c.runner.Run(ctx)
	if res.RunID != 0 || err == nil {
		for _, fn := range c.afterRun {
			fn(res)
		}
	}
	return res, err
}

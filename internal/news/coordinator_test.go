package news

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"finboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingRunner counts runs and holds each one until release is closed.
type blockingRunner struct {
	runs    atomic.Int32
	release chan struct{}
	started chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{release: make(chan struct{}), started: make(chan struct{}, 16)}
}

func (b *blockingRunner) Run(ctx context.Context) (domain.PipelineRunResult, error) {
	b.runs.Add(1)
	b.started <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return domain.PipelineRunResult{}, ctx.Err()
	}
	return domain.PipelineRunResult{RunID: int64(b.runs.Load()), Success: true, Outcome: domain.OutcomeSuccess}, nil
}

func TestConcurrentTriggersStartOneRun(t *testing.T) {
	runner := newBlockingRunner()
	c := NewCoordinator(runner, newMemStore(), time.Hour, time.Minute)

	var started atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.TriggerBackgroundRefresh() {
				started.Add(1)
			}
		}()
	}
	wg.Wait()
	<-runner.started

	assert.Equal(t, int32(1), started.Load())
	assert.True(t, c.Running())

	_, err := c.RunNow(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	_, err = c.ForceReprocess(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(runner.release)
	c.Wait()
	assert.Equal(t, int32(1), runner.runs.Load())
	assert.False(t, c.Running())
}

func TestIsStoreStale(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(newBlockingRunner(), store, time.Hour, time.Minute)
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	st, err := c.IsStoreStale(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Stale, "never refreshed counts as stale")
	assert.Nil(t, st.LastUpdated)

	recent := now.Add(-30 * time.Minute)
	store.lastSuccess = &recent
	st, err = c.IsStoreStale(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Stale)
	assert.Equal(t, 30, st.MinutesOld)

	old := now.Add(-2 * time.Hour)
	store.lastSuccess = &old
	st, err = c.IsStoreStale(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Stale)
	assert.Equal(t, 120, st.MinutesOld)
	require.NotNil(t, st.LastUpdated)
	assert.True(t, st.LastUpdated.Equal(old))
}

func TestForceReprocessOnEmptyStore(t *testing.T) {
	store := newMemStore()
	feeds := &fakeFeeds{items: map[string][]domain.RawNewsArticle{"a": rawArticles("a", 4)}}
	p := newTestPipeline(store, feeds, newScriptedClassifier(), threeFeeds[:1])
	c := NewCoordinator(p, store, time.Hour, time.Minute)

	_, err := c.RunNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, store.rowCount())

	res, err := c.ForceReprocess(context.Background())
	require.NoError(t, err)
	counts, err := store.CountArticles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.ProcessedCount)
	assert.Equal(t, res.ProcessedCount, counts.Accepted)
	assert.Equal(t, counts.Accepted, store.rowCount())
	assert.Equal(t, 0, res.SkippedCount, "cleared store has nothing to skip")
}

func TestRunNowCallsHooks(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(store, &fakeFeeds{items: map[string][]domain.RawNewsArticle{"a": rawArticles("a", 1)}}, newScriptedClassifier(), threeFeeds[:1])
	c := NewCoordinator(p, store, time.Hour, time.Minute)

	var got domain.PipelineRunResult
	c.OnRunComplete(func(res domain.PipelineRunResult) { got = res })

	res, err := c.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.RunID, got.RunID)
}

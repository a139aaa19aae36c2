package news

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"finboard/internal/config"
	"finboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var threeFeeds = []config.FeedSource{
	{ID: "a", Name: "A", Kind: "rss", URL: "https://a.example/rss"},
	{ID: "b", Name: "B", Kind: "rss", URL: "https://b.example/rss"},
	{ID: "c", Name: "C", Kind: "rss", URL: "https://c.example/rss"},
}

func newTestPipeline(store *memStore, feeds FeedReader, cls Classifier, feedCfg []config.FeedSource) *Pipeline {
	return NewPipeline(testTracer(), store, feeds, cls, nil, PipelineConfig{
		Feeds:           feedCfg,
		Concurrency:     2,
		ClassifyTimeout: time.Second,
	})
}

func TestPipelinePartialFeedFailureAndDuplicates(t *testing.T) {
	store := newMemStore()
	feeds := &fakeFeeds{
		items: map[string][]domain.RawNewsArticle{
			"a": rawArticles("a", 5),
			"c": rawArticles("c", 2, "a-0"),
		},
		errs: map[string]error{"b": errFeedDown},
	}
	p := newTestPipeline(store, feeds, newScriptedClassifier(), threeFeeds)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, store.rowCount())
	assert.Equal(t, 1, res.FeedErrors)
	assert.Equal(t, 7, res.ProcessedCount)
	assert.Equal(t, 0, res.ErrorCount)
	assert.True(t, res.Success)
	assert.Equal(t, domain.OutcomePartial, res.Outcome)
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasPrefix(res.Errors[0], "feed:b: "), res.Errors[0])
	assert.Equal(t, domain.StateDone, p.State())

	first, ok := store.article("a-0")
	require.True(t, ok)
	assert.Equal(t, "a", first.FeedID, "first feed in order keeps the duplicate")
}

func TestPipelineOutcomes(t *testing.T) {
	store := newMemStore()
	feeds := &fakeFeeds{items: map[string][]domain.RawNewsArticle{"a": rawArticles("a", 4)}}
	cls := newScriptedClassifier()
	cls.verdicts["a-1"] = domain.Rejected("sports coverage")
	cls.verdicts["a-2"] = domain.Transient(domain.LabelQuotaExceeded, errors.New("429 too many requests"))
	cls.slugs["a-3"] = "weather"
	p := newTestPipeline(store, feeds, cls, threeFeeds[:1])

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.ProcessedCount)
	assert.Equal(t, 3, res.ErrorCount)
	assert.False(t, res.Success)
	assert.Equal(t, domain.OutcomePartial, res.Outcome)

	accepted, _ := store.article("a-0")
	assert.True(t, accepted.IsProcessed)
	assert.Nil(t, accepted.ProcessingError)
	require.NotNil(t, accepted.CategoryID)
	assert.Equal(t, int64(1), *accepted.CategoryID)
	assert.Equal(t, "resumen a-0", accepted.Summary)

	rejected, _ := store.article("a-1")
	assert.False(t, rejected.IsProcessed)
	require.NotNil(t, rejected.ProcessingError)
	assert.Equal(t, "AI Rejected: sports coverage", *rejected.ProcessingError)
	assert.Equal(t, domain.ErrorKindRejected, rejected.ErrorKind)

	quota, _ := store.article("a-2")
	require.NotNil(t, quota.ProcessingError)
	assert.True(t, strings.HasPrefix(*quota.ProcessingError, "Quota Exceeded: "), *quota.ProcessingError)
	assert.Equal(t, domain.ErrorKindTransient, quota.ErrorKind)

	invalid, _ := store.article("a-3")
	require.NotNil(t, invalid.ProcessingError)
	assert.True(t, strings.HasPrefix(*invalid.ProcessingError, "Invalid Category: "), *invalid.ProcessingError)
	assert.Nil(t, invalid.CategoryID)
}

func TestPipelineRerunSkipsSettledAndRetriesTransient(t *testing.T) {
	store := newMemStore()
	feeds := &fakeFeeds{items: map[string][]domain.RawNewsArticle{"a": rawArticles("a", 3)}}
	cls := newScriptedClassifier()
	cls.verdicts["a-1"] = domain.Rejected("off topic")
	cls.verdicts["a-2"] = domain.Transient(domain.LabelTimeout, context.DeadlineExceeded)
	p := newTestPipeline(store, feeds, cls, threeFeeds[:1])

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, cls.totalCalls())

	delete(cls.verdicts, "a-2")
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, cls.totalCalls(), "only the transient article is classified again")
	assert.Equal(t, 2, res.SkippedCount)
	assert.Equal(t, 1, res.ProcessedCount)
	assert.True(t, res.Success)

	assert.Equal(t, 3, store.rowCount(), "same key re-ingested stays one row")
	retried, _ := store.article("a-2")
	assert.True(t, retried.IsProcessed)
	assert.Nil(t, retried.ProcessingError)
	assert.Equal(t, domain.ErrorKindNone, retried.ErrorKind)
}

func TestPipelineCatastrophicFailure(t *testing.T) {
	store := newMemStore()
	store.categoryErr = errors.New("connection refused")
	p := newTestPipeline(store, &fakeFeeds{}, newScriptedClassifier(), threeFeeds)

	res, err := p.Run(context.Background())
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.NotEmpty(t, res.Errors)
	assert.Nil(t, store.lastSuccess)
	assert.Equal(t, domain.StateDone, p.State())
}

func TestPipelineAllFeedsFailed(t *testing.T) {
	store := newMemStore()
	feeds := &fakeFeeds{errs: map[string]error{"a": errFeedDown, "b": errFeedDown, "c": errFeedDown}}
	p := newTestPipeline(store, feeds, newScriptedClassifier(), threeFeeds)

	res, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, 3, res.FeedErrors)
	assert.Nil(t, store.lastSuccess)
}

func TestPipelineMarksSuccessAndRecordsRun(t *testing.T) {
	store := newMemStore()
	feeds := &fakeFeeds{items: map[string][]domain.RawNewsArticle{"a": rawArticles("a", 3)}}
	p := newTestPipeline(store, feeds, newScriptedClassifier(), threeFeeds[:1])

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
	require.NotNil(t, store.lastSuccess)
	assert.Equal(t, 3, store.counterHits, "counters are updated per article")

	last, err := store.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.RunID, last.RunID)
	assert.Equal(t, 3, last.ProcessedCount)
}

func TestPipelineBoundsClassificationConcurrency(t *testing.T) {
	store := newMemStore()
	feeds := &fakeFeeds{items: map[string][]domain.RawNewsArticle{"a": rawArticles("a", 10)}}
	cls := newScriptedClassifier()
	cls.delay = 10 * time.Millisecond
	p := newTestPipeline(store, feeds, cls, threeFeeds[:1])

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, res.ProcessedCount)
	assert.LessOrEqual(t, cls.maxSeen.Load(), int32(2))
}

func TestPipelineClassifyTimeout(t *testing.T) {
	store := newMemStore()
	feeds := &fakeFeeds{items: map[string][]domain.RawNewsArticle{"a": rawArticles("a", 1)}}
	cls := newScriptedClassifier()
	cls.delay = time.Second
	p := NewPipeline(testTracer(), store, feeds, cls, nil, PipelineConfig{
		Feeds:           threeFeeds[:1],
		ClassifyTimeout: 20 * time.Millisecond,
	})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.ErrorCount)
	a, _ := store.article("a-0")
	require.NotNil(t, a.ProcessingError)
	assert.True(t, strings.HasPrefix(*a.ProcessingError, "Timeout: "), *a.ProcessingError)
	assert.Equal(t, domain.ErrorKindTransient, a.ErrorKind)
}

func TestPipelineDeadlineLeavesArticlesUnattempted(t *testing.T) {
	store := newMemStore()
	feeds := &fakeFeeds{items: map[string][]domain.RawNewsArticle{"a": rawArticles("a", 20)}}
	cls := newScriptedClassifier()
	cls.delay = 10 * time.Millisecond
	p := NewPipeline(testTracer(), store, feeds, cls, nil, PipelineConfig{
		Feeds:           threeFeeds[:1],
		Concurrency:     1,
		ClassifyTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()
	res, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Positive(t, res.AbortedCount)
	assert.Equal(t, 20, res.ProcessedCount+res.ErrorCount+res.AbortedCount, "every pending article is accounted for")
	assert.False(t, res.Success)
	if res.ProcessedCount == 0 {
		assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	} else {
		assert.Equal(t, domain.OutcomePartial, res.Outcome)
	}
	assert.Nil(t, store.lastSuccess, "an interrupted run does not refresh the store")

	last, err := store.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.AbortedCount, last.AbortedCount)
}

func TestPipelineAllTransientKeepsStoreStale(t *testing.T) {
	store := newMemStore()
	feeds := &fakeFeeds{items: map[string][]domain.RawNewsArticle{"a": rawArticles("a", 3)}}
	cls := newScriptedClassifier()
	for _, id := range []string{"a-0", "a-1", "a-2"} {
		cls.verdicts[id] = domain.Transient(domain.LabelQuotaExceeded, errors.New("429 too many requests"))
	}
	p := newTestPipeline(store, feeds, cls, threeFeeds[:1])

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.ProcessedCount)
	assert.Equal(t, 3, res.ErrorCount)
	assert.False(t, res.Success)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Nil(t, store.lastSuccess)

	st, err := NewCoordinator(p, store, time.Hour, time.Minute).IsStoreStale(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Stale)
}

func TestRefreshesStore(t *testing.T) {
	cases := []struct {
		name string
		res  domain.PipelineRunResult
		want bool
	}{
		{"nothing pending", domain.PipelineRunResult{}, true},
		{"some accepted with errors", domain.PipelineRunResult{ProcessedCount: 2, ErrorCount: 1}, true},
		{"only errors", domain.PipelineRunResult{ErrorCount: 3}, false},
		{"only rejections skipped", domain.PipelineRunResult{SkippedCount: 4}, true},
		{"interrupted after progress", domain.PipelineRunResult{ProcessedCount: 3, AbortedCount: 5}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, refreshesStore(tc.res))
		})
	}
}

func TestPipelineCounterWritesDoNotSerializeWorkers(t *testing.T) {
	store := &slowCounterStore{memStore: newMemStore(), hold: 30 * time.Millisecond}
	feeds := &fakeFeeds{items: map[string][]domain.RawNewsArticle{"a": rawArticles("a", 4)}}
	cls := newScriptedClassifier()
	p := NewPipeline(testTracer(), store, feeds, cls, nil, PipelineConfig{
		Feeds:           threeFeeds[:1],
		Concurrency:     4,
		ClassifyTimeout: time.Second,
	})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.ProcessedCount)
	assert.Greater(t, store.maxConcurrent.Load(), int32(1), "counter writes overlap across workers")
}

package news

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"finboard/internal/config"
	"finboard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func testTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("test")
}

var testCategories = []domain.NewsCategory{
	{ID: 1, Slug: "dolar", Name: "Dólar"},
	{ID: 2, Slug: "mercados", Name: "Mercados"},
	{ID: 3, Slug: "economia", Name: "Economía"},
}

type memStore struct {
	mu          sync.Mutex
	categories  []domain.NewsCategory
	categoryErr error
	articles    map[string]domain.ProcessedNewsArticle
	nextID      int64
	upserts     int
	lastSuccess *time.Time
	runs        []domain.PipelineRunResult
	counterHits int
}

func newMemStore() *memStore {
	return &memStore{categories: testCategories, articles: make(map[string]domain.ProcessedNewsArticle)}
}

func (m *memStore) ListCategories(ctx context.Context) ([]domain.NewsCategory, error) {
	if m.categoryErr != nil {
		return nil, m.categoryErr
	}
	return m.categories, nil
}

func (m *memStore) GetBySourceIDs(ctx context.Context, ids []string) (map[string]domain.ProcessedNewsArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.ProcessedNewsArticle)
	for _, id := range ids {
		if a, ok := m.articles[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (m *memStore) UpsertArticle(ctx context.Context, a domain.ProcessedNewsArticle) (domain.ProcessedNewsArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	now := time.Now().UTC()
	if prev, ok := m.articles[a.SourceID]; ok {
		a.ID = prev.ID
		a.CreatedAt = prev.CreatedAt
	} else {
		m.nextID++
		a.ID = m.nextID
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	m.articles[a.SourceID] = a
	return a, nil
}

func (m *memStore) ListProcessed(ctx context.Context, filter domain.NewsFilter) ([]domain.ProcessedNewsArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ProcessedNewsArticle
	for _, a := range m.articles {
		if !a.IsProcessed || a.ProcessingError != nil {
			continue
		}
		if filter.CategorySlug != "" && a.CategorySlug != filter.CategorySlug {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) CountArticles(ctx context.Context) (domain.ArticleCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c domain.ArticleCounts
	for _, a := range m.articles {
		c.Total++
		switch {
		case a.IsProcessed && a.ProcessingError == nil:
			c.Accepted++
		case a.ErrorKind == domain.ErrorKindRejected:
			c.Rejected++
		case a.ErrorKind == domain.ErrorKindTransient:
			c.Transient++
		}
	}
	return c, nil
}

func (m *memStore) ClearAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.articles))
	m.articles = make(map[string]domain.ProcessedNewsArticle)
	return n, nil
}

func (m *memStore) LastSuccessAt(ctx context.Context) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSuccess, nil
}

func (m *memStore) MarkSuccess(ctx context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSuccess = &at
	return nil
}

func (m *memStore) StartRun(ctx context.Context, startedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, domain.PipelineRunResult{StartedAt: startedAt})
	return int64(len(m.runs)), nil
}

func (m *memStore) UpdateRunCounters(ctx context.Context, runID int64, processed, errored, skipped int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counterHits++
	r := &m.runs[runID-1]
	r.ProcessedCount, r.ErrorCount, r.SkippedCount = processed, errored, skipped
	return nil
}

func (m *memStore) FinishRun(ctx context.Context, res domain.PipelineRunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[res.RunID-1] = res
	return nil
}

func (m *memStore) LastRun(ctx context.Context) (*domain.PipelineRunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		return nil, nil
	}
	r := m.runs[len(m.runs)-1]
	return &r, nil
}

func (m *memStore) rowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.articles)
}

func (m *memStore) article(sourceID string) (domain.ProcessedNewsArticle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[sourceID]
	return a, ok
}

// fakeFeeds serves canned articles per feed ID; a feed listed in errs fails.
type fakeFeeds struct {
	items map[string][]domain.RawNewsArticle
	errs  map[string]error
}

func (f *fakeFeeds) Fetch(ctx context.Context, feed config.FeedSource) ([]domain.RawNewsArticle, error) {
	if err := f.errs[feed.ID]; err != nil {
		return nil, err
	}
	return f.items[feed.ID], nil
}

func rawArticles(feedID string, n int, ids ...string) []domain.RawNewsArticle {
	out := make([]domain.RawNewsArticle, 0, n+len(ids))
	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ids = append(ids, fmt.Sprintf("%s-%d", feedID, i))
	}
	for i, id := range ids {
		out = append(out, domain.RawNewsArticle{
			FeedID:      feedID,
			FeedName:    feedID,
			SourceID:    id,
			Title:       "El dólar blue " + id,
			URL:         "https://news.example/" + id,
			PublishedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

// scriptedClassifier accepts into "dolar" unless a verdict is scripted for
// the article's SourceID.
type scriptedClassifier struct {
	mu       sync.Mutex
	verdicts map[string]error
	slugs    map[string]string
	calls    map[string]int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func newScriptedClassifier() *scriptedClassifier {
	return &scriptedClassifier{verdicts: map[string]error{}, slugs: map[string]string{}, calls: map[string]int{}}
}

func (s *scriptedClassifier) Classify(ctx context.Context, a domain.RawNewsArticle, cats []domain.NewsCategory) (Classification, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		prev := s.maxSeen.Load()
		if n <= prev || s.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Classification{}, ctx.Err()
		}
	}

	s.mu.Lock()
	s.calls[a.SourceID]++
	err := s.verdicts[a.SourceID]
	slug := s.slugs[a.SourceID]
	s.mu.Unlock()

	if err != nil {
		return Classification{}, err
	}
	if slug == "" {
		slug = "dolar"
	}
	return Classification{CategorySlug: slug, Summary: "resumen " + a.SourceID}, nil
}

func (s *scriptedClassifier) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

var errFeedDown = errors.New("connection refused")

// slowCounterStore holds every counter write for a while and records how many
// overlap.
type slowCounterStore struct {
	*memStore
	hold          time.Duration
	inFlight      atomic.Int32
	maxConcurrent atomic.Int32
}

func (s *slowCounterStore) UpdateRunCounters(ctx context.Context, runID int64, processed, errored, skipped int) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		prev := s.maxConcurrent.Load()
		if n <= prev || s.maxConcurrent.CompareAndSwap(prev, n) {
			break
		}
	}
	time.Sleep(s.hold)
	return s.memStore.UpdateRunCounters(ctx, runID, processed, errored, skipped)
}

package news

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"finboard/internal/config"
	"finboard/internal/domain"
	"finboard/internal/metrics"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Store is the durable side of the pipeline.
type Store interface {
	ListCategories(ctx context.Context) ([]domain.NewsCategory, error)
	GetBySourceIDs(ctx context.Context, sourceIDs []string) (map[string]domain.ProcessedNewsArticle, error)
	UpsertArticle(ctx context.Context, a domain.ProcessedNewsArticle) (domain.ProcessedNewsArticle, error)
	ListProcessed(ctx context.Context, filter domain.NewsFilter) ([]domain.ProcessedNewsArticle, error)
	CountArticles(ctx context.Context) (domain.ArticleCounts, error)
	ClearAll(ctx context.Context) (int64, error)
	LastSuccessAt(ctx context.Context) (*time.Time, error)
	MarkSuccess(ctx context.Context, at time.Time) error
	StartRun(ctx context.Context, startedAt time.Time) (int64, error)
	UpdateRunCounters(ctx context.Context, runID int64, processed, errored, skipped int) error
	FinishRun(ctx context.Context, res domain.PipelineRunResult) error
	LastRun(ctx context.Context) (*domain.PipelineRunResult, error)
}

type FeedReader interface {
	Fetch(ctx context.Context, feed config.FeedSource) ([]domain.RawNewsArticle, error)
}

type PipelineConfig struct {
	Feeds           []config.FeedSource
	Concurrency     int
	RequestsPerMin  int
	ClassifyTimeout time.Duration
}

// Pipeline runs one fetch, classify and persist pass over every feed.
// It does not guard against concurrent runs; the Coordinator does.
type Pipeline struct {
	tracer     trace.Tracer
	store      Store
	feeds      FeedReader
	classifier Classifier
	metrics    *metrics.Recorder
	cfg        PipelineConfig
	limiter    *rate.Limiter
	state      atomic.Value
	now        func() time.Time
}

func NewPipeline(tracer trace.Tracer, store Store, feeds FeedReader, classifier Classifier, recorder *metrics.Recorder, cfg PipelineConfig) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = 20 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerMin > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMin) / 60)
	}
	p := &Pipeline{
		tracer:     tracer,
		store:      store,
		feeds:      feeds,
		classifier: classifier,
		metrics:    recorder,
		cfg:        cfg,
		limiter:    rate.NewLimiter(limit, cfg.Concurrency),
		now:        time.Now,
	}
	p.state.Store(domain.StateIdle)
	return p
}

func (p *Pipeline) State() domain.PipelineState {
	return p.state.Load().(domain.PipelineState)
}

func (p *Pipeline) setState(s domain.PipelineState) {
	p.state.Store(s)
	log.Debug().Str("state", string(s)).Msg("news pipeline state")
}

// runTally accumulates per-article outcomes as they complete.
type runTally struct {
	mu        sync.Mutex
	processed int
	errored   int
	skipped   int
	errs      []string
}

func (t *runTally) addError(msg string) {
	if len(t.errs) < domain.MaxRunErrors {
		t.errs = append(t.errs, msg)
	}
}

// Run executes one pipeline pass. The returned error is non-nil only for a
// failure that prevented the run from processing anything; per-feed and
// per-article problems are reported in the result.
func (p *Pipeline) Run(ctx context.Context) (domain.PipelineRunResult, error) {
	ctx, span := p.tracer.Start(ctx, "news.pipeline.run")
	defer span.End()

	started := p.now()
	result := domain.PipelineRunResult{StartedAt: started.UTC(), Errors: []string{}}

	fail := func(err error) (domain.PipelineRunResult, error) {
		result.Success = false
		result.Outcome = domain.OutcomeFailed
		result.Errors = append(result.Errors, err.Error())
		result.FinishedAt = p.now().UTC()
		result.Duration = result.FinishedAt.Sub(result.StartedAt)
		p.setState(domain.StateDone)
		if result.RunID != 0 {
			if ferr := p.store.FinishRun(context.WithoutCancel(ctx), result); ferr != nil {
				log.Warn().Err(ferr).Int64("run_id", result.RunID).Msg("record failed run")
			}
		}
		p.metrics.PipelineRun(string(domain.OutcomeFailed), result.Duration)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Msg("news pipeline run failed")
		return result, err
	}

	p.setState(domain.StateFetching)
	categories, err := p.store.ListCategories(ctx)
	if err != nil {
		return fail(fmt.Errorf("load categories: %w", err))
	}
	if len(categories) == 0 {
		return fail(errors.New("no news categories configured"))
	}
	runID, err := p.store.StartRun(ctx, started)
	if err != nil {
		return fail(err)
	}
	result.RunID = runID

	articles, feedErrs := p.fetchAll(ctx)
	result.FeedErrors = len(feedErrs)
	for _, fe := range feedErrs {
		result.Errors = append(result.Errors, fe.Error())
		p.metrics.FeedError(fe.FeedID)
	}
	if len(p.cfg.Feeds) > 0 && len(feedErrs) == len(p.cfg.Feeds) {
		return fail(errors.New("every feed failed"))
	}

	existing, err := p.store.GetBySourceIDs(ctx, sourceIDs(articles))
	if err != nil {
		return fail(fmt.Errorf("load existing articles: %w", err))
	}

	tally := &runTally{}
	pending := make([]domain.RawNewsArticle, 0, len(articles))
	for _, a := range articles {
		if prev, ok := existing[a.SourceID]; ok && prev.Settled() {
			tally.skipped++
			continue
		}
		pending = append(pending, a)
	}
	p.metrics.Articles("skipped", tally.skipped)

	p.setState(domain.StateClassifying)
	aborted := p.classifyAll(ctx, runID, pending, categories, tally)
	p.metrics.Articles("aborted", aborted)

	p.setState(domain.StatePersisting)
	tally.mu.Lock()
	result.ProcessedCount = tally.processed
	result.ErrorCount = tally.errored
	result.SkippedCount = tally.skipped
	result.AbortedCount = aborted
	for _, msg := range tally.errs {
		if len(result.Errors) >= domain.MaxRunErrors {
			break
		}
		result.Errors = append(result.Errors, msg)
	}
	tally.mu.Unlock()

	result.Success = result.ErrorCount == 0 && result.AbortedCount == 0
	switch {
	case result.ProcessedCount == 0 && (result.ErrorCount > 0 || result.AbortedCount > 0):
		result.Outcome = domain.OutcomeFailed
	case result.ErrorCount > 0 || result.AbortedCount > 0 || result.FeedErrors > 0:
		result.Outcome = domain.OutcomePartial
	default:
		result.Outcome = domain.OutcomeSuccess
	}
	result.FinishedAt = p.now().UTC()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	// Bookkeeping must land even if the caller's deadline has passed.
	bookCtx := context.WithoutCancel(ctx)
	if err := p.store.FinishRun(bookCtx, result); err != nil {
		log.Warn().Err(err).Int64("run_id", runID).Msg("record pipeline run")
	}
	if refreshesStore(result) {
		if err := p.store.MarkSuccess(bookCtx, result.FinishedAt); err != nil {
			log.Warn().Err(err).Msg("update pipeline last success")
		}
	}
	p.setState(domain.StateDone)
	p.metrics.PipelineRun(string(result.Outcome), result.Duration)

	span.SetAttributes(
		attribute.Int("processed", result.ProcessedCount),
		attribute.Int("errors", result.ErrorCount),
		attribute.Int("skipped", result.SkippedCount),
		attribute.Int("aborted", result.AbortedCount),
		attribute.Int("feed_errors", result.FeedErrors),
	)
	log.Info().
		Int64("run_id", runID).
		Str("outcome", string(result.Outcome)).
		Int("processed", result.ProcessedCount).
		Int("errors", result.ErrorCount).
		Int("skipped", result.SkippedCount).
		Int("aborted", result.AbortedCount).
		Int("feed_errors", result.FeedErrors).
		Dur("duration", result.Duration).
		Msg("news pipeline run complete")
	return result, nil
}

// refreshesStore reports whether a run counts toward store freshness: it
// attempted every pending article and either accepted at least one or hit
// no errors.
func refreshesStore(res domain.PipelineRunResult) bool {
	if res.AbortedCount > 0 {
		return false
	}
	return res.ProcessedCount > 0 || res.ErrorCount == 0
}

// fetchAll reads every feed concurrently and dedupes by SourceID, keeping
// the first occurrence in feed order.
func (p *Pipeline) fetchAll(ctx context.Context) ([]domain.RawNewsArticle, []*domain.FeedFetchError) {
	perFeed := make([][]domain.RawNewsArticle, len(p.cfg.Feeds))
	errs := make([]*domain.FeedFetchError, len(p.cfg.Feeds))

	var wg sync.WaitGroup
	for i, feed := range p.cfg.Feeds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := p.feeds.Fetch(ctx, feed)
			if err != nil {
				errs[i] = &domain.FeedFetchError{FeedID: feed.ID, Err: err}
				log.Warn().Err(err).Str("feed", feed.ID).Msg("feed fetch failed")
				return
			}
			perFeed[i] = items
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	var out []domain.RawNewsArticle
	for _, items := range perFeed {
		for _, a := range items {
			if a.SourceID == "" || seen[a.SourceID] {
				continue
			}
			seen[a.SourceID] = true
			out = append(out, a)
		}
	}
	var feedErrs []*domain.FeedFetchError
	for _, e := range errs {
		if e != nil {
			feedErrs = append(feedErrs, e)
		}
	}
	return out, feedErrs
}

// classifyAll fans classification out over the pending articles and returns
// how many were never attempted because ctx ended first.
func (p *Pipeline) classifyAll(ctx context.Context, runID int64, pending []domain.RawNewsArticle, categories []domain.NewsCategory, tally *runTally) int {
	bySlug := make(map[string]domain.NewsCategory, len(categories))
	for _, c := range categories {
		bySlug[c.Slug] = c
	}

	sem := semaphore.NewWeighted(int64(p.cfg.Concurrency))
	var wg sync.WaitGroup
	aborted := 0
	for i, a := range pending {
		if err := sem.Acquire(ctx, 1); err != nil {
			aborted = len(pending) - i
			tally.mu.Lock()
			tally.addError(fmt.Sprintf("run aborted, %d articles not attempted: %v", aborted, err))
			tally.mu.Unlock()
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			p.processOne(ctx, runID, a, categories, bySlug, tally)
		}()
	}
	wg.Wait()
	return aborted
}

func (p *Pipeline) processOne(ctx context.Context, runID int64, raw domain.RawNewsArticle, categories []domain.NewsCategory, bySlug map[string]domain.NewsCategory, tally *runTally) {
	article := domain.ProcessedNewsArticle{
		FeedID:      raw.FeedID,
		FeedName:    raw.FeedName,
		SourceID:    raw.SourceID,
		Title:       raw.Title,
		Content:     raw.Content,
		URL:         raw.URL,
		PublishedAt: raw.PublishedAt,
	}

	verdict, cerr := p.classify(ctx, raw, categories)
	if cerr == nil {
		cat, ok := bySlug[verdict.CategorySlug]
		if !ok {
			cerr = domain.Transient(domain.LabelInvalidCategory, fmt.Errorf("unknown category %q", verdict.CategorySlug))
		} else {
			now := p.now().UTC()
			article.CategoryID = &cat.ID
			article.CategorySlug = cat.Slug
			article.Summary = verdict.Summary
			article.IsProcessed = true
			article.ProcessedAt = &now
		}
	}
	if cerr != nil {
		msg := cerr.Error()
		article.ProcessingError = &msg
		article.ErrorKind = cerr.Kind
	}

	_, perr := p.store.UpsertArticle(context.WithoutCancel(ctx), article)

	tally.mu.Lock()
	switch {
	case perr != nil:
		tally.errored++
		tally.addError(perr.Error())
		p.metrics.Article("persist_error")
	case cerr != nil:
		tally.errored++
		tally.addError(raw.SourceID + ": " + cerr.Error())
		p.metrics.Article(string(cerr.Kind))
	default:
		tally.processed++
		p.metrics.Article("accepted")
	}
	processed, errored, skipped := tally.processed, tally.errored, tally.skipped
	tally.mu.Unlock()

	// Snapshots may land out of order; FinishRun writes the final totals.
	if err := p.store.UpdateRunCounters(context.WithoutCancel(ctx), runID, processed, errored, skipped); err != nil {
		log.Warn().Err(err).Int64("run_id", runID).Msg("update run counters")
	}
}

// classify applies the rate limit and per-call timeout and normalises every
// failure into a *domain.ClassificationError.
func (p *Pipeline) classify(ctx context.Context, raw domain.RawNewsArticle, categories []domain.NewsCategory) (Classification, *domain.ClassificationError) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.ClassifyTimeout)
	defer cancel()

	if err := p.limiter.Wait(callCtx); err != nil {
		return Classification{}, domain.Transient(domain.LabelQuotaExceeded, fmt.Errorf("rate limit wait: %w", err))
	}
	verdict, err := p.classifier.Classify(callCtx, raw, categories)
	if err == nil {
		return verdict, nil
	}
	var cerr *domain.ClassificationError
	if errors.As(err, &cerr) {
		return Classification{}, cerr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Classification{}, domain.Transient(domain.LabelTimeout, err)
	}
	return Classification{}, domain.Transient(domain.LabelAIError, err)
}

func sourceIDs(articles []domain.RawNewsArticle) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.SourceID)
	}
	return out
}

package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finboard/internal/cache"
	"finboard/internal/domain"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200

	cachePrefix   = "news:"
	categoriesTTL = 10 * time.Minute
)

type reader interface {
	ListCategories(ctx context.Context) ([]domain.NewsCategory, error)
	ListProcessed(ctx context.Context, filter domain.NewsFilter) ([]domain.ProcessedNewsArticle, error)
	CountArticles(ctx context.Context) (domain.ArticleCounts, error)
	LastRun(ctx context.Context) (*domain.PipelineRunResult, error)
}

// Service is the read and trigger surface for news. Reads never wait on a
// refresh: a stale store kicks off a background run and the current data is
// returned together with its age.
type Service struct {
	tracer trace.Tracer
	store  reader
	coord  *Coordinator
	cache  *cache.TTLCache
	ttl    time.Duration
}

func NewService(tracer trace.Tracer, store reader, coord *Coordinator, c *cache.TTLCache, ttl time.Duration) *Service {
	if c == nil {
		c = cache.NewTTLCache()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	s := &Service{tracer: tracer, store: store, coord: coord, cache: c, ttl: ttl}
	coord.OnRunComplete(func(domain.PipelineRunResult) { s.InvalidateCache() })
	return s
}

func (s *Service) GetProcessedNews(ctx context.Context, filter domain.NewsFilter) (domain.NewsPage, error) {
	ctx, span := s.tracer.Start(ctx, "news.get-processed")
	defer span.End()

	filter.CategorySlug = strings.ToLower(strings.TrimSpace(filter.CategorySlug))
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	span.SetAttributes(attribute.String("category", filter.CategorySlug), attribute.Int("limit", filter.Limit))

	if filter.CategorySlug != "" {
		if err := s.checkCategory(ctx, filter.CategorySlug); err != nil {
			return domain.NewsPage{}, err
		}
	}

	staleness, err := s.coord.IsStoreStale(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("read news staleness")
	}
	refreshing := s.coord.Running()
	if staleness.Stale && s.coord.TriggerBackgroundRefresh() {
		refreshing = true
	}

	key := fmt.Sprintf("%slist:%s:%d", cachePrefix, filter.CategorySlug, filter.Limit)
	articles, err := cache.Load(ctx, s.cache, key, s.ttl, func(ctx context.Context) ([]domain.ProcessedNewsArticle, error) {
		return s.store.ListProcessed(ctx, filter)
	})
	if err != nil {
		return domain.NewsPage{}, err
	}
	return domain.NewsPage{Articles: articles, Staleness: staleness, Refreshing: refreshing}, nil
}

func (s *Service) Categories(ctx context.Context) ([]domain.NewsCategory, error) {
	return cache.Load(ctx, s.cache, cachePrefix+"categories", categoriesTTL, s.store.ListCategories)
}

func (s *Service) checkCategory(ctx context.Context, slug string) error {
	cats, err := s.Categories(ctx)
	if err != nil {
		return err
	}
	for _, c := range cats {
		if c.Slug == slug {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", domain.ErrUnknownCategory, slug)
}

func (s *Service) GetProcessingStatus(ctx context.Context) (domain.ProcessingStatus, error) {
	ctx, span := s.tracer.Start(ctx, "news.get-processing-status")
	defer span.End()

	counts, err := s.store.CountArticles(ctx)
	if err != nil {
		return domain.ProcessingStatus{}, err
	}
	staleness, err := s.coord.IsStoreStale(ctx)
	if err != nil {
		return domain.ProcessingStatus{}, err
	}
	last, err := s.store.LastRun(ctx)
	if err != nil {
		return domain.ProcessingStatus{}, err
	}
	return domain.ProcessingStatus{
		Counts:    counts,
		Staleness: staleness,
		Running:   s.coord.Running(),
		LastRun:   last,
	}, nil
}

func (s *Service) ProcessAll(ctx context.Context) (domain.PipelineRunResult, error) {
	return s.coord.RunNow(ctx)
}

func (s *Service) ForceReprocess(ctx context.Context) (domain.PipelineRunResult, error) {
	return s.coord.ForceReprocess(ctx)
}

// InvalidateCache drops cached article lists and reports how many entries
// were removed.
func (s *Service) InvalidateCache() int {
	return s.cache.InvalidatePrefix(cachePrefix)
}

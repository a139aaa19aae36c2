package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finboard/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the Postgres-backed Store.
type Repository struct {
	pool   pool
	tracer trace.Tracer
}

func NewRepository(pool pool, tracer trace.Tracer) *Repository {
	return &Repository{pool: pool, tracer: tracer}
}

const articleColumns = `a.id, a.source_id, a.feed_id, a.feed_name, a.title, a.content, a.url, a.published_at,
       a.category_id, COALESCE(c.slug, ''), a.summary, a.is_processed, a.processing_error, a.error_kind,
       a.processed_at, a.created_at, a.updated_at`

func scanArticle(row pgx.Row) (domain.ProcessedNewsArticle, error) {
	var a domain.ProcessedNewsArticle
	var kind string
	err := row.Scan(
		&a.ID, &a.SourceID, &a.FeedID, &a.FeedName, &a.Title, &a.Content, &a.URL, &a.PublishedAt,
		&a.CategoryID, &a.CategorySlug, &a.Summary, &a.IsProcessed, &a.ProcessingError, &kind,
		&a.ProcessedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	a.ErrorKind = domain.ErrorKind(kind)
	return a, err
}

func (r *Repository) ListCategories(ctx context.Context) ([]domain.NewsCategory, error) {
	ctx, span := r.tracer.Start(ctx, "news-repo.list-categories")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT id, slug, name, description FROM news_categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []domain.NewsCategory
	for rows.Next() {
		var c domain.NewsCategory
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) GetBySourceIDs(ctx context.Context, sourceIDs []string) (map[string]domain.ProcessedNewsArticle, error) {
	out := make(map[string]domain.ProcessedNewsArticle, len(sourceIDs))
	if len(sourceIDs) == 0 {
		return out, nil
	}
	ctx, span := r.tracer.Start(ctx, "news-repo.get-by-source-ids")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT `+articleColumns+`
FROM news_articles a
LEFT JOIN news_categories c ON c.id = a.category_id
WHERE a.source_id = ANY($1)`, sourceIDs)
	if err != nil {
		return nil, fmt.Errorf("get articles by source id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out[a.SourceID] = a
	}
	return out, rows.Err()
}

// UpsertArticle inserts or amends an article keyed by source_id.
func (r *Repository) UpsertArticle(ctx context.Context, a domain.ProcessedNewsArticle) (domain.ProcessedNewsArticle, error) {
	ctx, span := r.tracer.Start(ctx, "news-repo.upsert-article")
	defer span.End()

	row := r.pool.QueryRow(ctx, `
WITH upserted AS (
    INSERT INTO news_articles (
        source_id, feed_id, feed_name, title, content, url, published_at,
        category_id, summary, is_processed, processing_error, error_kind, processed_at
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    ON CONFLICT (source_id) DO UPDATE SET
        feed_id = EXCLUDED.feed_id,
        feed_name = EXCLUDED.feed_name,
        title = EXCLUDED.title,
        content = EXCLUDED.content,
        url = EXCLUDED.url,
        published_at = EXCLUDED.published_at,
        category_id = EXCLUDED.category_id,
        summary = EXCLUDED.summary,
        is_processed = EXCLUDED.is_processed,
        processing_error = EXCLUDED.processing_error,
        error_kind = EXCLUDED.error_kind,
        processed_at = EXCLUDED.processed_at,
        updated_at = NOW()
    RETURNING *
)
SELECT `+articleColumns+`
FROM upserted a
LEFT JOIN news_categories c ON c.id = a.category_id`,
		a.SourceID,
		a.FeedID,
		a.FeedName,
		a.Title,
		a.Content,
		a.URL,
		a.PublishedAt.UTC(),
		a.CategoryID,
		a.Summary,
		a.IsProcessed,
		a.ProcessingError,
		string(a.ErrorKind),
		a.ProcessedAt,
	)
	saved, err := scanArticle(row)
	if err != nil {
		return domain.ProcessedNewsArticle{}, &domain.PersistenceError{SourceID: a.SourceID, Err: err}
	}
	return saved, nil
}

// ListProcessed returns accepted articles, newest first.
func (r *Repository) ListProcessed(ctx context.Context, filter domain.NewsFilter) ([]domain.ProcessedNewsArticle, error) {
	ctx, span := r.tracer.Start(ctx, "news-repo.list-processed")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT `+articleColumns+`
FROM news_articles a
LEFT JOIN news_categories c ON c.id = a.category_id
WHERE a.is_processed AND a.processing_error IS NULL
  AND ($1 = '' OR c.slug = $1)
ORDER BY a.published_at DESC, a.id DESC
LIMIT $2`, filter.CategorySlug, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("list processed articles: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ProcessedNewsArticle, 0, filter.Limit)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) CountArticles(ctx context.Context) (domain.ArticleCounts, error) {
	ctx, span := r.tracer.Start(ctx, "news-repo.count-articles")
	defer span.End()

	var c domain.ArticleCounts
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE is_processed AND processing_error IS NULL),
       COUNT(*) FILTER (WHERE error_kind = 'rejected'),
       COUNT(*) FILTER (WHERE error_kind = 'transient')
FROM news_articles`).Scan(&c.Total, &c.Accepted, &c.Rejected, &c.Transient)
	if err != nil {
		return domain.ArticleCounts{}, fmt.Errorf("count articles: %w", err)
	}
	return c, nil
}

func (r *Repository) ClearAll(ctx context.Context) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "news-repo.clear-all")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `DELETE FROM news_articles`)
	if err != nil {
		return 0, fmt.Errorf("clear articles: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) LastSuccessAt(ctx context.Context) (*time.Time, error) {
	ctx, span := r.tracer.Start(ctx, "news-repo.last-success-at")
	defer span.End()

	var at *time.Time
	err := r.pool.QueryRow(ctx, `SELECT last_success_at FROM news_pipeline_state WHERE id = 1`).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pipeline state: %w", err)
	}
	return at, nil
}

func (r *Repository) MarkSuccess(ctx context.Context, at time.Time) error {
	ctx, span := r.tracer.Start(ctx, "news-repo.mark-success")
	defer span.End()

	_, err := r.pool.Exec(ctx, `
INSERT INTO news_pipeline_state (id, last_success_at, updated_at) VALUES (1, $1, NOW())
ON CONFLICT (id) DO UPDATE SET last_success_at = EXCLUDED.last_success_at, updated_at = NOW()`, at.UTC())
	if err != nil {
		return fmt.Errorf("mark pipeline success: %w", err)
	}
	return nil
}

func (r *Repository) StartRun(ctx context.Context, startedAt time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "news-repo.start-run")
	defer span.End()

	var id int64
	if err := r.pool.QueryRow(ctx, `INSERT INTO news_pipeline_runs (started_at) VALUES ($1) RETURNING id`, startedAt.UTC()).Scan(&id); err != nil {
		return 0, fmt.Errorf("start pipeline run: %w", err)
	}
	return id, nil
}

func (r *Repository) UpdateRunCounters(ctx context.Context, runID int64, processed, errored, skipped int) error {
	_, err := r.pool.Exec(ctx, `
UPDATE news_pipeline_runs
SET processed_count = $2, error_count = $3, skipped_count = $4
WHERE id = $1`, runID, processed, errored, skipped)
	return err
}

func (r *Repository) FinishRun(ctx context.Context, res domain.PipelineRunResult) error {
	ctx, span := r.tracer.Start(ctx, "news-repo.finish-run")
	defer span.End()

	errs, err := json.Marshal(res.Errors)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
UPDATE news_pipeline_runs
SET finished_at = $2, outcome = $3, success = $4, processed_count = $5, error_count = $6,
    skipped_count = $7, aborted_count = $8, feed_errors = $9, errors = $10, duration_ms = $11
WHERE id = $1`,
		res.RunID, res.FinishedAt.UTC(), string(res.Outcome), res.Success, res.ProcessedCount,
		res.ErrorCount, res.SkippedCount, res.AbortedCount, res.FeedErrors, string(errs), res.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("finish pipeline run: %w", err)
	}
	return nil
}

func (r *Repository) LastRun(ctx context.Context) (*domain.PipelineRunResult, error) {
	ctx, span := r.tracer.Start(ctx, "news-repo.last-run")
	defer span.End()

	var (
		res        domain.PipelineRunResult
		finishedAt *time.Time
		outcome    *string
		errs       []byte
		durationMS int64
	)
	err := r.pool.QueryRow(ctx, `
SELECT id, started_at, finished_at, outcome, success, processed_count, error_count,
       skipped_count, aborted_count, feed_errors, errors, duration_ms
FROM news_pipeline_runs
ORDER BY started_at DESC
LIMIT 1`).Scan(&res.RunID, &res.StartedAt, &finishedAt, &outcome, &res.Success, &res.ProcessedCount,
		&res.ErrorCount, &res.SkippedCount, &res.AbortedCount, &res.FeedErrors, &errs, &durationMS)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read last pipeline run: %w", err)
	}
	if finishedAt != nil {
		res.FinishedAt = *finishedAt
	}
	if outcome != nil {
		res.Outcome = domain.RunOutcome(*outcome)
	}
	res.Duration = time.Duration(durationMS) * time.Millisecond
	if len(errs) > 0 {
		_ = json.Unmarshal(errs, &res.Errors)
	}
	return &res, nil
}

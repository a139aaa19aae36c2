package domain

import "time"

type FeedKind string

const (
	FeedKindRSS    FeedKind = "rss"
	FeedKindReddit FeedKind = "reddit"
)

// RawNewsArticle is an item as fetched from a feed, before classification.
// SourceID is the feed-provided external key and drives deduplication.
type RawNewsArticle struct {
	FeedID      string    `json:"feed_id"`
	FeedName    string    `json:"feed_name"`
	SourceID    string    `json:"source_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

type ErrorKind string

const (
	ErrorKindNone      ErrorKind = ""
	ErrorKindRejected  ErrorKind = "rejected"
	ErrorKindTransient ErrorKind = "transient"
)

type ProcessedNewsArticle struct {
	ID              int64      `json:"id"`
	FeedID          string     `json:"feed_id"`
	FeedName        string     `json:"feed_name"`
	SourceID        string     `json:"source_id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	URL             string     `json:"url"`
	PublishedAt     time.Time  `json:"published_at"`
	CategoryID      *int64     `json:"category_id,omitempty"`
	CategorySlug    string     `json:"category,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	IsProcessed     bool       `json:"is_processed"`
	ProcessingError *string    `json:"processing_error,omitempty"`
	ErrorKind       ErrorKind  `json:"error_kind,omitempty"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Settled reports whether the article needs no further classification:
// either accepted cleanly or terminally rejected.
func (a ProcessedNewsArticle) Settled() bool {
	if a.IsProcessed && a.ProcessingError == nil {
		return true
	}
	return a.ErrorKind == ErrorKindRejected
}

type NewsCategory struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type NewsFilter struct {
	CategorySlug string
	Limit        int
}

type PipelineState string

const (
	StateIdle        PipelineState = "idle"
	StateFetching    PipelineState = "fetching"
	StateClassifying PipelineState = "classifying"
	StatePersisting  PipelineState = "persisting"
	StateDone        PipelineState = "done"
)

type RunOutcome string

const (
	OutcomeSuccess RunOutcome = "success"
	OutcomePartial RunOutcome = "partial"
	OutcomeFailed  RunOutcome = "failed"
)

// MaxRunErrors bounds the error sample kept on a PipelineRunResult.
const MaxRunErrors = 20

type PipelineRunResult struct {
	RunID          int64         `json:"run_id,omitempty"`
	Success        bool          `json:"success"`
	Outcome        RunOutcome    `json:"outcome"`
	ProcessedCount int           `json:"processed_count"`
	ErrorCount     int           `json:"error_count"`
	SkippedCount   int           `json:"skipped_count"`
	AbortedCount   int           `json:"aborted_count"`
	FeedErrors     int           `json:"feed_errors"`
	Errors         []string      `json:"errors"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Duration       time.Duration `json:"duration"`
}

type Staleness struct {
	Stale       bool       `json:"stale"`
	MinutesOld  int        `json:"minutes_old"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

type NewsPage struct {
	Articles   []ProcessedNewsArticle `json:"articles"`
	Staleness  Staleness              `json:"staleness"`
	Refreshing bool                   `json:"refreshing"`
}

type ArticleCounts struct {
	Total     int `json:"total"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Transient int `json:"transient"`
}

type ProcessingStatus struct {
	Counts    ArticleCounts      `json:"counts"`
	Staleness Staleness          `json:"staleness"`
	Running   bool               `json:"running"`
	LastRun   *PipelineRunResult `json:"last_run,omitempty"`
}

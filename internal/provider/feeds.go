package provider

import (
	"context"
	"fmt"

	"finboard/internal/config"
	"finboard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// FeedFetcher dispatches a configured feed to the reader for its kind.
type FeedFetcher struct {
	rss    *RSSProvider
	reddit *RedditProvider
}

func NewFeedFetcher(tracer trace.Tracer) *FeedFetcher {
	return &FeedFetcher{rss: NewRSSProvider(tracer), reddit: NewRedditProvider(tracer)}
}

func (f *FeedFetcher) Fetch(ctx context.Context, feed config.FeedSource) ([]domain.RawNewsArticle, error) {
	switch domain.FeedKind(feed.Kind) {
	case domain.FeedKindRSS, "":
		return f.rss.FetchFeed(ctx, feed)
	case domain.FeedKindReddit:
		return f.reddit.FetchHot(ctx, feed)
	default:
		return nil, fmt.Errorf("unsupported feed kind %q", feed.Kind)
	}
}

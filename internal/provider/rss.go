package provider

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"html"
	"strings"
	"time"

	"finboard/internal/config"
	"finboard/internal/domain"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"go.opentelemetry.io/otel/trace"
)

const maxContentLen = 2000

var htmlStripper = bluemonday.StrictPolicy()

// RSSProvider reads RSS and Atom feeds. Feed URLs are absolute, so the
// embedded source has no base URL.
type RSSProvider struct {
	httpSource
	parser *gofeed.Parser
}

func NewRSSProvider(tracer trace.Tracer) *RSSProvider {
	return &RSSProvider{
		httpSource: newHTTPSource("rss", "", tracer, 200*time.Millisecond, 5),
		parser:     gofeed.NewParser(),
	}
}

func (p *RSSProvider) FetchFeed(ctx context.Context, feed config.FeedSource) ([]domain.RawNewsArticle, error) {
	ctx, span := p.tracer.Start(ctx, "rss.fetch-feed")
	defer span.End()

	feedURL := strings.TrimSpace(feed.URL)
	if feedURL == "" {
		return nil, fmt.Errorf("feed url is required")
	}
	maxItems := feed.MaxItems
	if maxItems <= 0 {
		maxItems = 30
	}

	body, err := p.get(ctx, feedURL, "application/rss+xml, application/atom+xml, application/xml, text/xml")
	if err != nil {
		return nil, err
	}
	parsed, err := p.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode feed payload: %w", err)
	}

	items := make([]domain.RawNewsArticle, 0, min(maxItems, len(parsed.Items)))
	for _, row := range parsed.Items {
		if len(items) >= maxItems {
			break
		}
		title := sanitizeText(html.UnescapeString(row.Title), 300)
		if title == "" {
			continue
		}
		publishedAt := time.Now().UTC()
		if row.PublishedParsed != nil {
			publishedAt = row.PublishedParsed.UTC()
		} else if row.UpdatedParsed != nil {
			publishedAt = row.UpdatedParsed.UTC()
		}

		sourceID := sanitizeText(row.GUID, 250)
		if sourceID == "" {
			sourceID = sanitizeText(row.Link, 250)
		}
		if sourceID == "" {
			h := sha1.Sum([]byte(feed.ID + "|" + title))
			sourceID = hex.EncodeToString(h[:])
		}

		content := row.Description
		if content == "" {
			content = row.Content
		}

		items = append(items, domain.RawNewsArticle{
			FeedID:      feed.ID,
			FeedName:    feed.Name,
			SourceID:    sourceID,
			Title:       title,
			Content:     sanitizeText(stripHTML(content), maxContentLen),
			URL:         sanitizeText(row.Link, 500),
			PublishedAt: publishedAt,
		})
	}
	return items, nil
}

func stripHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return html.UnescapeString(htmlStripper.Sanitize(s))
}

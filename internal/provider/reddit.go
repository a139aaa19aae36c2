package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"finboard/internal/config"
	"finboard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	redditBaseURL     = "https://www.reddit.com"
	defaultRedditSize = 30
)

type RedditProvider struct {
	httpSource
}

func NewRedditProvider(tracer trace.Tracer) *RedditProvider {
	return &RedditProvider{httpSource: newHTTPSource("reddit", redditBaseURL, tracer, 2*time.Second, 2)}
}

// FetchHot reads the hot listing of the feed's subreddit. Stickied posts
// are skipped; the post id is the source id.
func (p *RedditProvider) FetchHot(ctx context.Context, feed config.FeedSource) ([]domain.RawNewsArticle, error) {
	ctx, span := p.tracer.Start(ctx, "reddit.fetch-hot")
	defer span.End()

	subreddit := strings.TrimSpace(feed.Subreddit)
	if subreddit == "" {
		return nil, fmt.Errorf("subreddit is required")
	}
	limit := feed.MaxItems
	if limit <= 0 {
		limit = defaultRedditSize
	}
	if limit > 100 {
		limit = 100
	}

	body, err := p.get(ctx, fmt.Sprintf("/r/%s/hot.json?limit=%d", url.PathEscape(subreddit), limit), "")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data struct {
			Children []struct {
				Data struct {
					ID         string  `json:"id"`
					Title      string  `json:"title"`
					SelfText   string  `json:"selftext"`
					CreatedUTC float64 `json:"created_utc"`
					Permalink  string  `json:"permalink"`
					URL        string  `json:"url"`
					Stickied   bool    `json:"stickied"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode reddit response: %w", err)
	}

	items := make([]domain.RawNewsArticle, 0, len(payload.Data.Children))
	for _, row := range payload.Data.Children {
		data := row.Data
		if data.Stickied || strings.TrimSpace(data.ID) == "" || strings.TrimSpace(data.Title) == "" {
			continue
		}
		itemURL := strings.TrimSpace(data.URL)
		if permalink := strings.TrimSpace(data.Permalink); permalink != "" {
			itemURL = redditBaseURL + permalink
		}
		items = append(items, domain.RawNewsArticle{
			FeedID:      feed.ID,
			FeedName:    feed.Name,
			SourceID:    "reddit_" + data.ID,
			Title:       sanitizeText(data.Title, 300),
			Content:     sanitizeText(data.SelfText, maxContentLen),
			URL:         itemURL,
			PublishedAt: time.Unix(int64(data.CreatedUTC), 0).UTC(),
		})
	}
	return items, nil
}

func sanitizeText(in string, maxLen int) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	in = strings.Join(strings.Fields(in), " ")
	if maxLen > 0 && len(in) > maxLen {
		in = strings.ToValidUTF8(in[:maxLen], "")
	}
	return in
}

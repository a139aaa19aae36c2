package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const userAgent = "finboard/1.0 (+https://github.com/finboard/finboard)"

// httpSource carries what every upstream client needs: a client, a base URL
// that tests can point elsewhere, a tracer and a request limiter.
type httpSource struct {
	name    string
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *rate.Limiter
}

func newHTTPSource(name, baseURL string, tracer trace.Tracer, every time.Duration, burst int) httpSource {
	return httpSource{
		name:    name,
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
		limiter: rate.NewLimiter(rate.Every(every), burst),
	}
}

func (s *httpSource) get(ctx context.Context, path, accept string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s API error %d: %s", s.name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}

func floatPtr(v float64) *float64 { return &v }

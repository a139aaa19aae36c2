package handler

import (
	"context"
	"net/http"
	"net/http/httptest"

	"finboard/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type indicatorStub struct {
	byCategory map[domain.Category][]domain.Indicator
	overview   domain.Overview
	ticker     []domain.TickerItem
	dollar     domain.DollarQuotes
	err        error
}

func (s *indicatorStub) GetByCategory(ctx context.Context, c domain.Category) ([]domain.Indicator, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byCategory[c], nil
}

func (s *indicatorStub) GetOverview(ctx context.Context) (domain.Overview, error) {
	return s.overview, s.err
}

func (s *indicatorStub) GetTicker(ctx context.Context) ([]domain.TickerItem, error) {
	return s.ticker, s.err
}

func (s *indicatorStub) GetDollarQuotes(ctx context.Context) (domain.DollarQuotes, error) {
	return s.dollar, s.err
}

type newsStub struct {
	page        domain.NewsPage
	status      domain.ProcessingStatus
	result      domain.PipelineRunResult
	err         error
	gotFilter   domain.NewsFilter
	invalidated int
	runCtx      context.Context
}

func (s *newsStub) GetProcessedNews(ctx context.Context, filter domain.NewsFilter) (domain.NewsPage, error) {
	s.gotFilter = filter
	return s.page, s.err
}

func (s *newsStub) GetProcessingStatus(ctx context.Context) (domain.ProcessingStatus, error) {
	return s.status, s.err
}

func (s *newsStub) ProcessAll(ctx context.Context) (domain.PipelineRunResult, error) {
	s.runCtx = ctx
	return s.result, s.err
}

func (s *newsStub) ForceReprocess(ctx context.Context) (domain.PipelineRunResult, error) {
	s.runCtx = ctx
	return s.result, s.err
}

func (s *newsStub) InvalidateCache() int {
	s.invalidated++
	return 3
}

func newTestRouter(h *Handler, apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r, apiKey)
	return r
}

func newTestHandler(ind IndicatorService) *Handler {
	return New(trace.NewNoopTracerProvider().Tracer("handler-test"), ind)
}

func do(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

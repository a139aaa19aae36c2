package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"finboard/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultTimeout = 10 * time.Second

type IndicatorService interface {
	GetByCategory(ctx context.Context, c domain.Category) ([]domain.Indicator, error)
	GetOverview(ctx context.Context) (domain.Overview, error)
	GetTicker(ctx context.Context) ([]domain.TickerItem, error)
	GetDollarQuotes(ctx context.Context) (domain.DollarQuotes, error)
}

type NewsService interface {
	GetProcessedNews(ctx context.Context, filter domain.NewsFilter) (domain.NewsPage, error)
	GetProcessingStatus(ctx context.Context) (domain.ProcessingStatus, error)
}

type Server struct {
	tracer     trace.Tracer
	indicators IndicatorService
	news       NewsService
	timeout    time.Duration
	version    string
}

// New builds the tool backend. news may be nil; the news tools then report
// that news is disabled.
func New(tracer trace.Tracer, indicators IndicatorService, news NewsService, timeout time.Duration, version string) *Server {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if version == "" {
		version = "dev"
	}
	return &Server{tracer: tracer, indicators: indicators, news: news, timeout: timeout, version: version}
}

type emptyInput struct{}

type categoryInput struct {
	Category string `json:"category" jsonschema:"indicator category: exchange-rate, interest-rate, inflation, market-index, agro-commodity or crypto"`
}

type newsInput struct {
	Category string `json:"category,omitempty" jsonschema:"news category slug, empty for all"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of articles, default 50"`
}

// MCP returns a protocol server with every tool registered.
func (s *Server) MCP() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "finboard", Version: s.version}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_overview",
		Description: "All financial indicators grouped by category, with fallback flags and unavailable connectors.",
	}, s.getOverview)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_indicators",
		Description: "Indicators of a single category.",
	}, s.getIndicators)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_ticker",
		Description: "The short ticker strip of headline indicators.",
	}, s.getTicker)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_dollar_quotes",
		Description: "Every Argentine dollar rate plus the gaps between them.",
	}, s.getDollarQuotes)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_news",
		Description: "Classified financial news, newest first, with how stale the store is.",
	}, s.getNews)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_news_status",
		Description: "News processing counts, last run and staleness.",
	}, s.getNewsStatus)
	return srv
}

func (s *Server) getOverview(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel, span := s.start(ctx, "mcp.get-overview")
	defer cancel()
	defer span.End()

	overview, err := s.indicators.GetOverview(ctx)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(overview)
}

func (s *Server) getIndicators(ctx context.Context, _ *mcp.CallToolRequest, in categoryInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel, span := s.start(ctx, "mcp.get-indicators")
	defer cancel()
	defer span.End()
	span.SetAttributes(attribute.String("category", in.Category))

	category, ok := domain.ParseCategory(in.Category)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, in.Category)
	}
	inds, err := s.indicators.GetByCategory(ctx, category)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(map[string]any{"category": category, "indicators": inds})
}

func (s *Server) getTicker(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel, span := s.start(ctx, "mcp.get-ticker")
	defer cancel()
	defer span.End()

	items, err := s.indicators.GetTicker(ctx)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(map[string]any{"items": items})
}

func (s *Server) getDollarQuotes(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel, span := s.start(ctx, "mcp.get-dollar-quotes")
	defer cancel()
	defer span.End()

	quotes, err := s.indicators.GetDollarQuotes(ctx)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(quotes)
}

func (s *Server) getNews(ctx context.Context, _ *mcp.CallToolRequest, in newsInput) (*mcp.CallToolResult, any, error) {
	if s.news == nil {
		return errorResult("news is disabled on this server"), nil, nil
	}
	ctx, cancel, span := s.start(ctx, "mcp.get-news")
	defer cancel()
	defer span.End()

	page, err := s.news.GetProcessedNews(ctx, domain.NewsFilter{CategorySlug: in.Category, Limit: in.Limit})
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(page)
}

func (s *Server) getNewsStatus(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	if s.news == nil {
		return errorResult("news is disabled on this server"), nil, nil
	}
	ctx, cancel, span := s.start(ctx, "mcp.get-news-status")
	defer cancel()
	defer span.End()

	status, err := s.news.GetProcessingStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(status)
}

func (s *Server) start(ctx context.Context, name string) (context.Context, context.CancelFunc, trace.Span) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	ctx, span := s.tracer.Start(ctx, name)
	return ctx, cancel, span
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: msg}}}
}

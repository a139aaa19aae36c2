package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"finboard/internal/domain"
)

type indicatorStub struct {
	ticker []domain.TickerItem
	dollar domain.DollarQuotes
	err    error
}

func (s indicatorStub) GetTicker(ctx context.Context) ([]domain.TickerItem, error) {
	return s.ticker, s.err
}

func (s indicatorStub) GetDollarQuotes(ctx context.Context) (domain.DollarQuotes, error) {
	return s.dollar, s.err
}

type newsStub struct {
	page   domain.NewsPage
	err    error
	filter domain.NewsFilter
}

func (s *newsStub) GetProcessedNews(ctx context.Context, filter domain.NewsFilter) (domain.NewsPage, error) {
	s.filter = filter
	return s.page, s.err
}

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	StartTelegramBot(nil, nil)
}

func TestDollarMessage(t *testing.T) {
	buy := 1050.0
	stub := indicatorStub{dollar: domain.DollarQuotes{
		Quotes: []domain.Indicator{
			{ShortName: "Oficial", Value: 1090, Buy: &buy, Format: domain.FormatCurrency, Decimals: 2, Unit: "ARS"},
			{ShortName: "Blue", Value: 1230, Format: domain.FormatCurrency, Decimals: 2, Unit: "ARS", IsFallback: true},
		},
		Derived: []domain.DerivedMetric{{Name: "Brecha blue", Value: 12.84, Format: domain.FormatPercent, Decimals: 2}},
	}}

	msg := dollarMessage(context.Background(), stub)
	for _, want := range []string{"Oficial: ARS 1090.00 (compra ARS 1050.00)", "Blue: ARS 1230.00 *", "Brecha blue: 12.84%", "secondary source"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in message:\n%s", want, msg)
		}
	}
}

func TestDollarMessageError(t *testing.T) {
	msg := dollarMessage(context.Background(), indicatorStub{err: errors.New("boom")})
	if !strings.HasPrefix(msg, "Error fetching dollar quotes") {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestTickerMessage(t *testing.T) {
	change := -1.5
	stub := indicatorStub{ticker: []domain.TickerItem{
		{Label: "BTC", Value: 97000, ChangePct: &change, Format: domain.FormatCurrency, Decimals: 0},
		{Label: "IPC", Value: 2.7, Format: domain.FormatPercent, Decimals: 1},
	}}
	msg := tickerMessage(context.Background(), stub)
	if msg != "BTC: $ 97000 (-1.50%)\nIPC: 2.7%" {
		t.Fatalf("unexpected ticker message: %q", msg)
	}
}

func TestNewsMessage(t *testing.T) {
	if msg := newsMessage(context.Background(), nil, nil); !strings.Contains(msg, "disabled") {
		t.Fatalf("expected disabled message, got %q", msg)
	}

	stub := &newsStub{page: domain.NewsPage{
		Articles:   []domain.ProcessedNewsArticle{{CategorySlug: "dolar", Title: "Sube el blue", Summary: "El blue subió.", URL: "https://x/1"}},
		Staleness:  domain.Staleness{Stale: true, MinutesOld: 75},
		Refreshing: true,
	}}
	msg := newsMessage(context.Background(), stub, []string{"DOLAR"})
	if stub.filter.CategorySlug != "dolar" || stub.filter.Limit != newsLimit {
		t.Fatalf("unexpected filter: %+v", stub.filter)
	}
	for _, want := range []string{"[dolar] Sube el blue", "https://x/1", "75 minutes old, refreshing."} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in message:\n%s", want, msg)
		}
	}

	stub = &newsStub{err: domain.ErrUnknownCategory}
	if msg := newsMessage(context.Background(), stub, []string{"x"}); msg != "Unknown category: x" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

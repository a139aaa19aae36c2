package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"finboard/internal/domain"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

const (
	commandTimeout = 15 * time.Second
	newsLimit      = 5
)

type IndicatorReader interface {
	GetTicker(ctx context.Context) ([]domain.TickerItem, error)
	GetDollarQuotes(ctx context.Context) (domain.DollarQuotes, error)
}

type NewsReader interface {
	GetProcessedNews(ctx context.Context, filter domain.NewsFilter) (domain.NewsPage, error)
}

// StartTelegramBot starts long polling in the background. news may be nil,
// in which case /news reports that news is disabled.
func StartTelegramBot(indicators IndicatorReader, news NewsReader) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Telegram bot")
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/dolar", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(dollarMessage(ctx, indicators))
	})

	b.Handle("/ticker", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(tickerMessage(ctx, indicators))
	})

	b.Handle("/news", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(newsMessage(ctx, news, c.Args()), tele.NoPreview)
	})

	log.Info().Msg("Telegram bot started")
	go b.Start()
}

func dollarMessage(ctx context.Context, indicators IndicatorReader) string {
	quotes, err := indicators.GetDollarQuotes(ctx)
	if err != nil {
		return fmt.Sprintf("Error fetching dollar quotes: %v", err)
	}
	if len(quotes.Quotes) == 0 {
		return "Dollar quotes are unavailable right now."
	}

	var sb strings.Builder
	sb.WriteString("Dólar\n")
	for _, q := range quotes.Quotes {
		fmt.Fprintf(&sb, "%s: %s", q.ShortName, q.Display())
		if q.Buy != nil {
			fmt.Fprintf(&sb, " (compra %s)", domain.FormatValue(*q.Buy, q.Format, q.Decimals, q.Unit))
		}
		if q.IsFallback {
			sb.WriteString(" *")
		}
		sb.WriteString("\n")
	}
	for _, d := range quotes.Derived {
		fmt.Fprintf(&sb, "%s: %s\n", d.Name, domain.FormatValue(d.Value, d.Format, d.Decimals, ""))
	}
	if hasFallback(quotes.Quotes) {
		sb.WriteString("* secondary source\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func tickerMessage(ctx context.Context, indicators IndicatorReader) string {
	items, err := indicators.GetTicker(ctx)
	if err != nil {
		return fmt.Sprintf("Error fetching ticker: %v", err)
	}
	if len(items) == 0 {
		return "Ticker is empty right now."
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		line := it.Label + ": " + domain.FormatValue(it.Value, it.Format, it.Decimals, "")
		if it.ChangePct != nil {
			line += fmt.Sprintf(" (%+.2f%%)", *it.ChangePct)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func newsMessage(ctx context.Context, news NewsReader, args []string) string {
	if news == nil {
		return "News is disabled on this server."
	}
	filter := domain.NewsFilter{Limit: newsLimit}
	if len(args) > 0 {
		filter.CategorySlug = strings.ToLower(args[0])
	}
	page, err := news.GetProcessedNews(ctx, filter)
	if errors.Is(err, domain.ErrUnknownCategory) {
		return fmt.Sprintf("Unknown category: %s", filter.CategorySlug)
	}
	if err != nil {
		return fmt.Sprintf("Error fetching news: %v", err)
	}
	if len(page.Articles) == 0 {
		if page.Refreshing {
			return "No news yet, a refresh is running. Try again in a minute."
		}
		return "No news found."
	}

	var sb strings.Builder
	for _, a := range page.Articles {
		fmt.Fprintf(&sb, "[%s] %s\n", a.CategorySlug, a.Title)
		if a.Summary != "" {
			sb.WriteString(a.Summary + "\n")
		}
		sb.WriteString(a.URL + "\n\n")
	}
	if page.Staleness.Stale {
		fmt.Fprintf(&sb, "News is %d minutes old", page.Staleness.MinutesOld)
		if page.Refreshing {
			sb.WriteString(", refreshing")
		}
		sb.WriteString(".")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func hasFallback(inds []domain.Indicator) bool {
	for _, ind := range inds {
		if ind.IsFallback {
			return true
		}
	}
	return false
}

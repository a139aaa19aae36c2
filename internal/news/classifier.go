package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"finboard/internal/domain"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Classification is an accepted verdict for one article.
type Classification struct {
	CategorySlug string
	Summary      string
	Model        string
}

// Classifier decides whether an article is relevant financial news and, if
// so, which category it belongs to. A non-accepted verdict is always a
// *domain.ClassificationError.
type Classifier interface {
	Classify(ctx context.Context, article domain.RawNewsArticle, categories []domain.NewsCategory) (Classification, error)
}

type openAIChatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type OpenAIClassifier struct {
	client openAIChatClient
	model  string
}

// NewOpenAIClassifier returns nil when no API key is configured.
func NewOpenAIClassifier(apiKey string, model string) *OpenAIClassifier {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0))
	return &OpenAIClassifier{
		client: &openAIClient{client: client},
		model:  model,
	}
}

const systemPrompt = `You filter Argentine financial news for a market dashboard.
Decide whether the article is relevant economic or financial news. Return ONLY a JSON object, no markdown:
{"accepted": bool, "category": "<slug>", "summary": "<one sentence in Spanish>", "rejection_reason": "<short text>"}
When accepted, category must be one of the allowed slugs. When not accepted, explain briefly in rejection_reason.`

func (c *OpenAIClassifier) Classify(ctx context.Context, article domain.RawNewsArticle, categories []domain.NewsCategory) (Classification, error) {
	var sb strings.Builder
	sb.WriteString("Allowed categories:\n")
	for _, cat := range categories {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", cat.Slug, cat.Description))
	}
	sb.WriteString(fmt.Sprintf("\nsource=%s\ntitle=%s\ncontent=%s\n", article.FeedName, article.Title, truncate(article.Content, 1500)))

	completion, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(sb.String()),
		},
	})
	if err != nil {
		return Classification{}, classifyCallError(ctx, err)
	}
	if len(completion.Choices) == 0 {
		return Classification{}, domain.Transient(domain.LabelMalformedResponse, errors.New("empty completion"))
	}

	verdict, err := parseVerdict(completion.Choices[0].Message.Content)
	if err != nil {
		return Classification{}, err
	}
	verdict.Model = "llm:" + c.model
	return verdict, nil
}

type verdictJSON struct {
	Accepted        *bool  `json:"accepted"`
	Category        string `json:"category"`
	Summary         string `json:"summary"`
	RejectionReason string `json:"rejection_reason"`
}

func parseVerdict(raw string) (Classification, error) {
	var v verdictJSON
	if err := json.Unmarshal([]byte(trimCodeFence(raw)), &v); err != nil {
		return Classification{}, domain.Transient(domain.LabelMalformedResponse, fmt.Errorf("parse classifier json: %w", err))
	}
	if v.Accepted == nil {
		return Classification{}, domain.Transient(domain.LabelMalformedResponse, errors.New("missing accepted field"))
	}
	if !*v.Accepted {
		reason := strings.TrimSpace(v.RejectionReason)
		if reason == "" {
			reason = "not relevant"
		}
		return Classification{}, domain.Rejected(reason)
	}
	slug := strings.ToLower(strings.TrimSpace(v.Category))
	if slug == "" {
		return Classification{}, domain.Transient(domain.LabelMalformedResponse, errors.New("accepted without category"))
	}
	return Classification{CategorySlug: slug, Summary: strings.TrimSpace(v.Summary)}, nil
}

// classifyCallError maps a failed completion call onto a transient kind.
func classifyCallError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.Transient(domain.LabelTimeout, err)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return domain.Transient(domain.LabelQuotaExceeded, err)
		case apiErr.StatusCode == http.StatusRequestTimeout || apiErr.StatusCode == http.StatusGatewayTimeout:
			return domain.Transient(domain.LabelTimeout, err)
		}
	}
	return domain.Transient(domain.LabelAIError, err)
}

func trimCodeFence(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "```") {
		v = strings.TrimPrefix(v, "```")
		v = strings.TrimSpace(v)
		if strings.HasPrefix(strings.ToLower(v), "json") {
			v = strings.TrimSpace(v[4:])
		}
		v = strings.TrimSuffix(v, "```")
		v = strings.TrimSpace(v)
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}

type openAIClient struct {
	client openai.Client
}

func (c *openAIClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}

// KeywordClassifier is used when no model is configured. It accepts an
// article into the first category with a keyword matching whole words of the
// title or content. A miss is transient so a model can settle it later.
type KeywordClassifier struct {
	keywords map[string][]string
	order    []string
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		order: []string{"dolar", "tasas", "inflacion", "cripto", "agro", "mercados", "economia"},
		keywords: map[string][]string{
			"dolar":     {"dólar", "dolar", "blue", "cepo", "tipo de cambio", "brecha", "mep", "ccl"},
			"tasas":     {"tasa", "tasas", "plazo fijo", "bcra", "badlar", "caución", "politica monetaria", "política monetaria"},
			"inflacion": {"inflación", "inflacion", "ipc", "indec", "precios"},
			"cripto":    {"bitcoin", "cripto", "criptomonedas", "ethereum", "stablecoin", "usdt"},
			"agro":      {"soja", "maíz", "maiz", "trigo", "cosecha", "retenciones", "agro"},
			"mercados":  {"merval", "acciones", "bonos", "riesgo país", "riesgo pais", "wall street", "adr"},
			"economia":  {"economía", "economia", "fmi", "pbi", "déficit", "deficit", "recaudación", "actividad"},
		},
	}
}

func (k *KeywordClassifier) Classify(ctx context.Context, article domain.RawNewsArticle, categories []domain.NewsCategory) (Classification, error) {
	allowed := make(map[string]bool, len(categories))
	for _, c := range categories {
		allowed[c.Slug] = true
	}
	text := wordText(article.Title + " " + article.Content)
	for _, slug := range k.order {
		if !allowed[slug] {
			continue
		}
		for _, kw := range k.keywords[slug] {
			if strings.Contains(text, " "+kw+" ") {
				return Classification{CategorySlug: slug, Summary: truncate(article.Title, 280), Model: "heuristic:v1"}, nil
			}
		}
	}
	return Classification{}, domain.Transient(domain.LabelUnclassified, errors.New("no financial keywords found"))
}

// wordText lowercases s and rewrites it as single-space separated words with
// a space on each end, so a keyword only matches whole words.
func wordText(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return " " + strings.Join(words, " ") + " "
}

package config

import (
	"fmt"
	"os"
	"time"

	"finboard/internal/domain"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const fallbackCategoryTTL = 5 * time.Minute

// CategoryTTLs is the single mapping from indicator category to cache TTL.
// It follows the natural update cadence of each kind of data.
type CategoryTTLs map[domain.Category]time.Duration

func DefaultCategoryTTLs() CategoryTTLs {
	return CategoryTTLs{
		domain.CategoryExchangeRate:  2 * time.Minute,
		domain.CategoryCrypto:        time.Minute,
		domain.CategoryMarketIndex:   5 * time.Minute,
		domain.CategoryAgroCommodity: 15 * time.Minute,
		domain.CategoryInterestRate:  6 * time.Hour,
		domain.CategoryInflation:     24 * time.Hour,
	}
}

func (t CategoryTTLs) For(c domain.Category) time.Duration {
	if d, ok := t[c]; ok && d > 0 {
		return d
	}
	return fallbackCategoryTTL
}

// Shortest returns the smallest configured TTL, used for views that mix
// every category.
func (t CategoryTTLs) Shortest() time.Duration {
	shortest := time.Duration(0)
	for _, c := range domain.Categories {
		d := t.For(c)
		if shortest == 0 || d < shortest {
			shortest = d
		}
	}
	return shortest
}

type FeedSource struct {
	ID        string `yaml:"id" validate:"required"`
	Name      string `yaml:"name" validate:"required"`
	Kind      string `yaml:"kind" default:"rss" validate:"oneof=rss reddit"`
	URL       string `yaml:"url" validate:"required_if=Kind rss,omitempty,url"`
	Subreddit string `yaml:"subreddit" validate:"required_if=Kind reddit"`
	MaxItems  int    `yaml:"max_items" default:"30" validate:"gte=1,lte=100"`
}

type QuoteSymbol struct {
	ID        string `yaml:"id" validate:"required"`
	Name      string `yaml:"name" validate:"required"`
	ShortName string `yaml:"short_name"`
	Yahoo     string `yaml:"yahoo" validate:"required"`
	Stooq     string `yaml:"stooq"`
	Unit      string `yaml:"unit"`
	Decimals  int    `yaml:"decimals" default:"2"`
}

type CryptoAsset struct {
	ID        string `yaml:"id" validate:"required"`
	Name      string `yaml:"name" validate:"required"`
	ShortName string `yaml:"short_name"`
	CoinGecko string `yaml:"coingecko" validate:"required"`
	Binance   string `yaml:"binance" validate:"required"`
}

// Sources describes what the aggregation layer pulls: feeds, symbols and
// cache cadence. Anything omitted from the file keeps its built-in default.
type Sources struct {
	CategoryTTLs    map[string]time.Duration `yaml:"category_ttls"`
	Feeds           []FeedSource             `yaml:"feeds" validate:"dive"`
	Ticker          []string                 `yaml:"ticker"`
	MarketIndices   []QuoteSymbol            `yaml:"market_indices" validate:"dive"`
	AgroCommodities []QuoteSymbol            `yaml:"agro_commodities" validate:"dive"`
	CryptoAssets    []CryptoAsset            `yaml:"crypto_assets" validate:"dive"`
}

var validate = validator.New()

// LoadSources reads the YAML sources file at path. An empty path yields the
// built-in defaults.
func LoadSources(path string) (*Sources, error) {
	src := DefaultSources()
	if path == "" {
		return src, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var fromFile Sources
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	if err := applyDefaults(&fromFile); err != nil {
		return nil, err
	}

	for k, v := range fromFile.CategoryTTLs {
		if _, ok := domain.ParseCategory(k); !ok {
			return nil, fmt.Errorf("sources file: unknown category %q in category_ttls", k)
		}
		src.CategoryTTLs[k] = v
	}
	if len(fromFile.Feeds) > 0 {
		src.Feeds = fromFile.Feeds
	}
	if len(fromFile.Ticker) > 0 {
		src.Ticker = fromFile.Ticker
	}
	if len(fromFile.MarketIndices) > 0 {
		src.MarketIndices = fromFile.MarketIndices
	}
	if len(fromFile.AgroCommodities) > 0 {
		src.AgroCommodities = fromFile.AgroCommodities
	}
	if len(fromFile.CryptoAssets) > 0 {
		src.CryptoAssets = fromFile.CryptoAssets
	}

	if err := validate.Struct(src); err != nil {
		return nil, fmt.Errorf("invalid sources file: %w", err)
	}
	return src, nil
}

func applyDefaults(src *Sources) error {
	for i := range src.Feeds {
		if err := defaults.Set(&src.Feeds[i]); err != nil {
			return fmt.Errorf("feed defaults: %w", err)
		}
	}
	for i := range src.MarketIndices {
		if err := defaults.Set(&src.MarketIndices[i]); err != nil {
			return fmt.Errorf("market index defaults: %w", err)
		}
	}
	for i := range src.AgroCommodities {
		if err := defaults.Set(&src.AgroCommodities[i]); err != nil {
			return fmt.Errorf("agro defaults: %w", err)
		}
	}
	return nil
}

// TTLs converts the file representation into the typed mapping.
func (s *Sources) TTLs() CategoryTTLs {
	out := DefaultCategoryTTLs()
	for k, v := range s.CategoryTTLs {
		if c, ok := domain.ParseCategory(k); ok && v > 0 {
			out[c] = v
		}
	}
	return out
}

func DefaultSources() *Sources {
	ttls := make(map[string]time.Duration)
	for c, d := range DefaultCategoryTTLs() {
		ttls[string(c)] = d
	}
	return &Sources{
		CategoryTTLs: ttls,
		Feeds: []FeedSource{
			{ID: "ambito", Name: "Ámbito", Kind: "rss", URL: "https://www.ambito.com/rss/pages/economia.xml", MaxItems: 30},
			{ID: "cronista", Name: "El Cronista", Kind: "rss", URL: "https://www.cronista.com/files/rss/economia.xml", MaxItems: 30},
			{ID: "infobae", Name: "Infobae Economía", Kind: "rss", URL: "https://www.infobae.com/arc/outboundfeeds/rss/category/economia/", MaxItems: 30},
			{ID: "iprofesional", Name: "iProfesional", Kind: "rss", URL: "https://www.iprofesional.com/rss/finanzas", MaxItems: 30},
			{ID: "r-merval", Name: "r/merval", Kind: "reddit", Subreddit: "merval", MaxItems: 25},
		},
		Ticker: []string{
			"usd-oficial", "usd-blue", "usd-mep", "usd-ccl",
			"merval", "sp500", "btc", "eth", "soy", "inflation-monthly",
		},
		MarketIndices: []QuoteSymbol{
			{ID: "merval", Name: "S&P Merval", ShortName: "Merval", Yahoo: "^MERV", Stooq: "^mrv", Unit: "ARS", Decimals: 0},
			{ID: "sp500", Name: "S&P 500", ShortName: "S&P 500", Yahoo: "^GSPC", Stooq: "^spx", Unit: "USD", Decimals: 2},
			{ID: "dowjones", Name: "Dow Jones Industrial Average", ShortName: "Dow Jones", Yahoo: "^DJI", Stooq: "^dji", Unit: "USD", Decimals: 2},
			{ID: "nasdaq", Name: "Nasdaq Composite", ShortName: "Nasdaq", Yahoo: "^IXIC", Stooq: "^ndq", Unit: "USD", Decimals: 2},
		},
		AgroCommodities: []QuoteSymbol{
			{ID: "soy", Name: "Soybean Futures (CBOT)", ShortName: "Soja", Yahoo: "ZS=F", Stooq: "zs.f", Unit: "USc/bu", Decimals: 2},
			{ID: "corn", Name: "Corn Futures (CBOT)", ShortName: "Maíz", Yahoo: "ZC=F", Stooq: "zc.f", Unit: "USc/bu", Decimals: 2},
			{ID: "wheat", Name: "Wheat Futures (CBOT)", ShortName: "Trigo", Yahoo: "ZW=F", Stooq: "zw.f", Unit: "USc/bu", Decimals: 2},
		},
		CryptoAssets: []CryptoAsset{
			{ID: "btc", Name: "Bitcoin", ShortName: "BTC", CoinGecko: "bitcoin", Binance: "BTCUSDT"},
			{ID: "eth", Name: "Ethereum", ShortName: "ETH", CoinGecko: "ethereum", Binance: "ETHUSDT"},
			{ID: "sol", Name: "Solana", ShortName: "SOL", CoinGecko: "solana", Binance: "SOLUSDT"},
		},
	}
}

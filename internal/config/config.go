package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

type Config struct {
	HTTPPort         int
	APIKey           string
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string
	LogLevel         string
	LogFormat        string
	SourcesFile      string

	ConnectorTimeoutSecs int
	DerivedMaxAgeMins    int
	IndicatorWarmSecs    int
	SnapshotTTLHours     int

	NewsCron                string
	NewsRunTimeoutSecs      int
	NewsStaleAfterMins      int
	NewsClassifyConcurrency int
	NewsClassifyRPM         int
	NewsClassifyTimeoutSecs int
	NewsCacheTTLSecs        int

	SSHPort                   int
	SSHHostKeyPath            string
	SSHAuthorizedFingerprints []string

	MCPTransport          string
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
	MCPRateLimitPerMin    int

	OpenAIAPIKey string
	OpenAIModel  string
}

func Load() *Config {
	cfg := &Config{
		APIKey:           strings.TrimSpace(os.Getenv("API_KEY")),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		SourcesFile:      strings.TrimSpace(os.Getenv("SOURCES_FILE")),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
	}

	if cfg.TelegramBotToken == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, news pipeline will be disabled")
	}
	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.APIKey == "" {
		log.Warn().Msg("API_KEY not set, write endpoints are unauthenticated")
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		cfg.LogFormat = "console"
	}

	cfg.HTTPPort = positiveInt("HTTP_PORT", 8080)
	cfg.ConnectorTimeoutSecs = positiveInt("CONNECTOR_TIMEOUT_SECS", 8)
	cfg.DerivedMaxAgeMins = positiveInt("DERIVED_MAX_AGE_MINUTES", 360)
	cfg.IndicatorWarmSecs = positiveInt("INDICATOR_WARM_SECS", 60)
	cfg.SnapshotTTLHours = positiveInt("SNAPSHOT_TTL_HOURS", 168)

	cfg.NewsCron = strings.TrimSpace(os.Getenv("NEWS_CRON"))
	if cfg.NewsCron == "" {
		cfg.NewsCron = "@every 30m"
	}
	cfg.NewsRunTimeoutSecs = positiveInt("NEWS_RUN_TIMEOUT_SECS", 60)
	cfg.NewsStaleAfterMins = positiveInt("NEWS_STALE_AFTER_MINUTES", 60)
	cfg.NewsClassifyConcurrency = positiveInt("NEWS_CLASSIFY_CONCURRENCY", 4)
	cfg.NewsClassifyRPM = positiveInt("NEWS_CLASSIFY_RPM", 60)
	cfg.NewsClassifyTimeoutSecs = positiveInt("NEWS_CLASSIFY_TIMEOUT_SECS", 20)
	cfg.NewsCacheTTLSecs = positiveInt("NEWS_CACHE_TTL_SECS", 120)

	cfg.SSHPort = positiveInt("SSH_PORT", 2222)
	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/finboard_ed25519"
	}
	for _, fp := range strings.Split(os.Getenv("SSH_AUTHORIZED_FINGERPRINTS"), ",") {
		if fp = strings.TrimSpace(fp); fp != "" {
			cfg.SSHAuthorizedFingerprints = append(cfg.SSHAuthorizedFingerprints, fp)
		}
	}

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Warn().Str("value", cfg.MCPTransport).Msg("unsupported MCP_TRANSPORT, defaulting to stdio")
		cfg.MCPTransport = "stdio"
	}
	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}
	cfg.MCPHTTPPort = positiveInt("MCP_HTTP_PORT", 8090)
	cfg.MCPRequestTimeoutSecs = positiveInt("MCP_REQUEST_TIMEOUT_SECS", 10)
	cfg.MCPRateLimitPerMin = positiveInt("MCP_RATE_LIMIT_PER_MIN", 60)

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, news classification will be disabled")
	}
	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	return cfg
}

func positiveInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Int("default", def).Msg("invalid integer setting, using default")
		return def
	}
	return n
}

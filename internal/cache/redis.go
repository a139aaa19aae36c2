package cache

import (
	"context"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Client backs the last-known-good snapshot tier. It stays nil when Redis is
// not configured.
var Client *redis.Client

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

// InitRedis connects to REDIS_URL. Redis is optional here: on failure the
// snapshot tier is disabled and connectors run without it.
func InitRedis(ctx context.Context) {
	addr := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if addr == "" {
		addr = "localhost:6379"
	}

	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			log.Error().Err(err).Msg("failed to parse REDIS_URL, snapshot tier disabled")
			return
		}
		opts = parsed
	}

	client := newRedisClient(opts)
	if err := pingRedis(ctx, client); err != nil {
		log.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unreachable, snapshot tier disabled")
		_ = client.Close()
		return
	}
	Client = client
	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
}

package db

import (
	"context"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Pool is the shared connection pool. It stays nil when DATABASE_URL is not
// set, which disables the news pipeline.
var Pool *pgxpool.Pool

var (
	newPool = pgxpool.New
	pingDB  = func(ctx context.Context, p *pgxpool.Pool) error { return p.Ping(ctx) }
	fatalf  = func(format string, args ...any) { log.Fatal().Msgf(format, args...) }
)

func InitPostgres(ctx context.Context) {
	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		log.Warn().Msg("DATABASE_URL not set, news pipeline disabled")
		return
	}

	pool, err := newPool(ctx, dsn)
	if err != nil {
		fatalf("Unable to create Postgres pool: %v", err)
		return
	}
	if err := pingDB(ctx, pool); err != nil {
		pool.Close()
		fatalf("Unable to connect to Postgres: %v", err)
		return
	}
	Pool = pool
	log.Info().Msg("Connected to Postgres")
}

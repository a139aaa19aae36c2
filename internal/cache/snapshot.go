package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finboard/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyPrefix  = "lkg:"
	defaultSnapshotTTL = 7 * 24 * time.Hour
)

var ErrSnapshotMiss = errors.New("no snapshot stored")

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// SnapshotStore keeps the last successful payload of each connector so it
// can be served, flagged as fallback, when every live upstream is down.
// A nil *SnapshotStore behaves as an always-empty store.
type SnapshotStore struct {
	redis RedisClient
	ttl   time.Duration
}

type snapshotEnvelope struct {
	SavedAt    time.Time          `json:"saved_at"`
	Source     string             `json:"source"`
	Indicators []domain.Indicator `json:"indicators"`
}

func NewSnapshotStore(client RedisClient, ttl time.Duration) *SnapshotStore {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &SnapshotStore{redis: client, ttl: ttl}
}

func (s *SnapshotStore) Save(ctx context.Context, connector string, result domain.SourceResult[[]domain.Indicator]) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(snapshotEnvelope{
		SavedAt:    result.LastUpdated,
		Source:     result.Source,
		Indicators: result.Payload,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", connector, err)
	}
	return s.redis.Set(ctx, snapshotKeyPrefix+connector, data, s.ttl).Err()
}

// Load returns the stored payload and the source that originally produced it.
func (s *SnapshotStore) Load(ctx context.Context, connector string) ([]domain.Indicator, string, time.Time, error) {
	if s == nil {
		return nil, "", time.Time{}, ErrSnapshotMiss
	}
	raw, err := s.redis.Get(ctx, snapshotKeyPrefix+connector).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, "", time.Time{}, ErrSnapshotMiss
	}
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("read snapshot %s: %w", connector, err)
	}
	var env snapshotEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "", time.Time{}, fmt.Errorf("decode snapshot %s: %w", connector, err)
	}
	if len(env.Indicators) == 0 {
		return nil, "", time.Time{}, ErrSnapshotMiss
	}
	return env.Indicators, env.Source, env.SavedAt, nil
}

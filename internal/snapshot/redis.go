package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gasfeel/gaspay/internal/config"
	"github.com/gasfeel/gaspay/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore persists the last good EventSet so a restarted process can
// serve referrer queries before its first successful feed fetch. The
// snapshot lives under a single key with a generous TTL; losing it only
// costs the warm start, never correctness.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.SnapshotConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}

	logger.Info("connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.String("key", cfg.Key),
	)

	return &RedisStore{
		client: client,
		key:    cfg.Key,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

// Save overwrites the persisted snapshot.
func (s *RedisStore) Save(ctx context.Context, set *models.EventSet) error {
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Load returns the persisted snapshot, or (nil, nil) when none exists.
func (s *RedisStore) Load(ctx context.Context) (*models.EventSet, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var set models.EventSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &set, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

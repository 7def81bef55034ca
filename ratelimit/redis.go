package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration for the shared store.
type RedisConfig struct {
	Addr         string        `json:"addr"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DefaultRedisConfig returns sensible defaults for Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// RedisStore keeps the submission window in a Redis sorted set per
// identity, scored by timestamp, so multiple server processes enforce one
// shared limit.
// Data structure: ratelimit:{identity} -> zset of submission timestamps.
type RedisStore struct {
	client *redis.Client
	seq    atomic.Uint64
}

// NewRedisStore connects with the provided configuration.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client (useful for testing).
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }

func limitKey(identity string) string {
	return "ratelimit:" + identity
}

func (s *RedisStore) Admit(ctx context.Context, key string, window time.Duration, max int, now time.Time) (bool, error) {
	rkey := limitKey(key)
	cutoff := now.Add(-window).UnixNano()

	if err := s.client.ZRemRangeByScore(ctx, rkey, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return false, fmt.Errorf("prune window: %w", err)
	}
	count, err := s.client.ZCard(ctx, rkey).Result()
	if err != nil {
		return false, fmt.Errorf("count window: %w", err)
	}
	if count >= int64(max) {
		return false, nil
	}

	// member is unique per call so identical timestamps each count once
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + strconv.FormatUint(s.seq.Add(1), 10)
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, rkey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("record submission: %w", err)
	}
	return true, nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pickem/engine/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config holds redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Cache stores JSON values in redis
type Cache struct {
	rdb *redis.Client
}

// NewCache connects to redis and verifies the connection
func NewCache(ctx context.Context, cfg Config) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     2 * time.Second,
		WriteTimeout:    2 * time.Second,
		PoolSize:        10,
		MinIdleConns:    2,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("Successfully connected to redis")

	return New(rdb), nil
}

// New wraps an existing client
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// GetJSON decodes the value at key into dest. It reports false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		metrics.RecordCacheMiss()
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}

	metrics.RecordCacheHit()
	return true, nil
}

// SetJSON stores value at key as JSON with a TTL
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	return nil
}

// InvalidatePrefix deletes every key starting with prefix and returns how many were removed
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	var (
		cursor  uint64
		removed int
	)

	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan %s*: %w", prefix, err)
		}

		if len(keys) > 0 {
			n, err := c.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("failed to delete %s*: %w", prefix, err)
			}
			removed += int(n)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	log.Debug().Str("prefix", prefix).Int("removed", removed).Msg("Cache keys invalidated")

	return removed, nil
}

// Health pings redis
func (c *Cache) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close closes the redis client
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Package cache is a Redis read-through cache for public lookups.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "jobboard:"

// TombstoneTTL is how long a deleted entity stays marked as gone. It only
// has to outlast a lookup that loaded the entity before the delete.
const TombstoneTTL = time.Minute

// ErrGone is returned by Get for a key whose entity was deleted.
var ErrGone = errors.New("cache: entry deleted")

// tombstone is not valid JSON, so no cached value can collide with it.
var tombstone = []byte("\x00gone")

// CompanyKey is the cache key of a public company lookup.
func CompanyKey(id uuid.UUID) string {
	return keyPrefix + "company:" + id.String()
}

// JobKey is the cache key of a public job lookup.
func JobKey(id uuid.UUID) string {
	return keyPrefix + "job:" + id.String()
}

// Config holds the Redis connection settings.
type Config struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis stores JSON-encoded values in Redis with a fixed TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to Redis and checks that it answers.
func NewRedis(ctx context.Context, cfg Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return New(client, cfg.TTL), nil
}

// New wraps an existing client.
func New(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Get decodes the value under key into dst. It reports false on a miss and
// ErrGone when the key holds a tombstone.
func (c *Redis) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return false, err
	}
	if bytes.Equal(raw, tombstone) {
		metrics.CacheLookups.WithLabelValues("gone").Inc()
		return false, ErrGone
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return true, nil
}

// Set stores value under key, replacing whatever is there.
func (c *Redis) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Fill stores value only when key is absent, so a lookup that raced a
// write or a delete cannot replace the newer entry.
func (c *Redis) Fill(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.SetNX(ctx, key, raw, c.ttl).Err()
}

// Tombstone marks keys as deleted for TombstoneTTL.
func (c *Redis) Tombstone(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Set(ctx, key, tombstone, TombstoneTTL)
		}
		return nil
	})
	return err
}

func (c *Redis) Close() error {
	return c.client.Close()
}

// Nop never stores anything. It is used when no Redis address is configured.
type Nop struct{}

func (Nop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, interface{}) error          { return nil }
func (Nop) Fill(context.Context, string, interface{}) error         { return nil }
func (Nop) Tombstone(context.Context, ...string) error              { return nil }

// Package controller implements the core business logic (service layer)
// of the job board: accounts, companies, jobs and applications. Services
// enforce role and ownership rules, orchestrate repository operations and
// send domain events.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gartstein/jobboard/internal/jobboard/cache"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"go.uber.org/zap"
)

// EventProducer publishes domain events. Produce must not block.
type EventProducer interface {
	Produce(eventType events.EventType, key string, payload interface{})
}

// Cache is a read-through cache for public lookups. Get returns
// cache.ErrGone for keys marked by Tombstone; Fill never replaces an
// existing entry or tombstone.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Fill(ctx context.Context, key string, value interface{}) error
	Tombstone(ctx context.Context, keys ...string) error
}

// AssetStore keeps uploaded company logos.
type AssetStore interface {
	Save(ctx context.Context, logo *models.LogoUpload) (string, error)
	Delete(ctx context.Context, ref string) error
}

// cachedLookup serves key from c when present and otherwise loads it and
// fills the cache. A tombstoned key is reported as a missing what. Other
// cache failures are logged and never fail the lookup.
func cachedLookup[T any](ctx context.Context, c Cache, logger *zap.Logger, key, what string, load func() (*T, error)) (*T, error) {
	var cached T
	hit, err := c.Get(ctx, key, &cached)
	switch {
	case errors.Is(err, cache.ErrGone):
		return nil, fmt.Errorf("%w: %s not found", e.ErrNotFound, what)
	case err != nil:
		logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	case hit:
		return &cached, nil
	}

	value, err := load()
	if err != nil {
		return nil, err
	}
	if err := c.Fill(ctx, key, value); err != nil {
		logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

// refresh replaces the cached entry of an updated entity.
func refresh(ctx context.Context, c Cache, logger *zap.Logger, key string, value interface{}) {
	if err := c.Set(ctx, key, value); err != nil {
		logger.Warn("cache refresh failed", zap.String("key", key), zap.Error(err))
	}
}

// bury tombstones the keys of deleted entities, logging failures.
func bury(ctx context.Context, c Cache, logger *zap.Logger, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.Tombstone(ctx, keys...); err != nil {
		logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

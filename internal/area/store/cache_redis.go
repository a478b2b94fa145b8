package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"kehila/internal/area/models"
)

// Store is the taxonomy contract the cache decorates.
type Store interface {
	Upsert(ctx context.Context, area *models.Area) error
	Get(ctx context.Context, id string) (*models.Area, error)
	List(ctx context.Context) ([]*models.Area, error)
	Delete(ctx context.Context, id string) error
}

const cacheKeyPrefix = "area:"

// CachedStore is a redis read-through cache in front of another Store. Areas
// are read on every registration and approval but change rarely, so a short
// TTL keeps the database off the hot path. Cache failures degrade to the
// underlying store, never to an error.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps a store with a redis cache.
func NewCached(inner Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (s *CachedStore) Get(ctx context.Context, id string) (*models.Area, error) {
	key := cacheKeyPrefix + id
	if data, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var area models.Area
		if err := json.Unmarshal(data, &area); err == nil {
			return &area, nil
		}
	} else if err != redis.Nil {
		s.logger.Warn("area cache read failed", "area", id, "error", err.Error())
	}

	area, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, area)
	return area, nil
}

func (s *CachedStore) Upsert(ctx context.Context, area *models.Area) error {
	if err := s.inner.Upsert(ctx, area); err != nil {
		return err
	}
	s.invalidate(ctx, area.ID)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, id string) error {
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// List always hits the underlying store; the admin list view is not hot.
func (s *CachedStore) List(ctx context.Context) ([]*models.Area, error) {
	return s.inner.List(ctx)
}

func (s *CachedStore) fill(ctx context.Context, area *models.Area) {
	data, err := json.Marshal(area)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, cacheKeyPrefix+area.ID, data, s.ttl).Err(); err != nil {
		s.logger.Warn("area cache fill failed", "area", area.ID, "error", err.Error())
	}
}

func (s *CachedStore) invalidate(ctx context.Context, id string) {
	if err := s.client.Del(ctx, cacheKeyPrefix+id).Err(); err != nil {
		s.logger.Warn("area cache invalidate failed", "area", id, "error", err.Error())
	}
}

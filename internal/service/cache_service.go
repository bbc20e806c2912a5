package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/intellilearn/admin-api/pkg/errors"
)

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService caches computed statistics payloads. Disabled or
// unavailable caching degrades to recomputing on every call.
type CacheService struct {
	store   cacheStore
	ttl     time.Duration
	enabled bool
	logger  *zap.Logger
}

// NewCacheService constructs a CacheService instance.
func NewCacheService(store cacheStore, ttl time.Duration, enabled bool, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CacheService{store: store, ttl: ttl, enabled: enabled, logger: logger}
}

// Lookup loads a cached payload into dest. Returns false on a miss or when
// caching is disabled.
func (s *CacheService) Lookup(ctx context.Context, key string, dest interface{}) bool {
	if !s.enabled || s.store == nil {
		return false
	}
	if err := s.store.Get(ctx, key, dest); err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return true
}

// Store caches a payload under the configured TTL. Failures are logged and
// swallowed.
func (s *CacheService) Store(ctx context.Context, key string, value interface{}) {
	if !s.enabled || s.store == nil {
		return
	}
	if err := s.store.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops cached entries matching the pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) {
	if !s.enabled || s.store == nil {
		return
	}
	if err := s.store.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/derivscope/derivscope/internal/domain"
)

// CachedSource is a read-through redis cache in front of another document
// source. Cache trouble degrades to the inner source; it never fails a
// lookup on its own.
type CachedSource struct {
	inner DocSource
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedSource wraps inner with a redis hot tier.
func NewCachedSource(inner DocSource, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedSource{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(kind domain.IndicatorKind, asset domain.Asset) string {
	return fmt.Sprintf("derivscope:ind:%s:%s", kind, asset)
}

// Fetch serves from the cache when warm, otherwise falls through and
// populates it. Absent documents are not cached so a source coming online
// is visible within one tick.
func (s *CachedSource) Fetch(ctx context.Context, kind domain.IndicatorKind, asset domain.Asset) ([]byte, error) {
	key := cacheKey(kind, asset)

	b, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		return b, nil
	case err != redis.Nil:
		s.log.Warn().Err(err).Str("key", key).Msg("indicator cache read failed")
	}

	b, err = s.inner.Fetch(ctx, kind, asset)
	if err != nil || b == nil {
		return b, err
	}

	if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("indicator cache write failed")
	}
	return b, nil
}

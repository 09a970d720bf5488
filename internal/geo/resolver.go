package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/skywatch/internal/cache"
)

// CacheNamespace prefixes every forward geocode cache key.
const CacheNamespace = "geocode"

// Resolver turns a place name into coordinates by trying geocoders in order.
// The first one that returns a result wins; errors are logged, never returned.
type Resolver struct {
	geocoders []Geocoder
	cache     cache.Cache
	ttl       time.Duration
	logger    *zap.Logger
}

// NewResolver builds a Resolver. A nil cache disables caching.
func NewResolver(geocoders []Geocoder, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		geocoders: geocoders,
		cache:     c,
		ttl:       ttl,
		logger:    logger.Named("geocoder"),
	}
}

func (r *Resolver) Resolve(ctx context.Context, query string) (GeocodeResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return GeocodeResult{}, fmt.Errorf("%w: empty query", ErrLocationNotFound)
	}

	key, keyErr := cache.NormalizeKey(CacheNamespace, query)
	if r.cache != nil && keyErr == nil {
		var cached GeocodeResult
		err := cache.GetJSON(ctx, r.cache, key, &cached)
		switch {
		case err == nil:
			r.logger.Debug("cache hit", zap.String("key", key))
			return cached, nil
		case !errors.Is(err, cache.ErrMiss):
			r.logger.Warn("error reading geocode cache", zap.String("key", key), zap.Error(err))
		}
	}

	for _, g := range r.geocoders {
		res, err := g.Geocode(ctx, query)
		if err != nil {
			r.logger.Info("geocoder failed, trying next",
				zap.String("geocoder", g.Name()),
				zap.String("query", query),
				zap.Error(err))
			continue
		}

		if r.cache != nil && keyErr == nil {
			if err := r.cache.Set(ctx, key, res, r.ttl); err != nil {
				r.logger.Warn("error writing geocode cache", zap.String("key", key), zap.Error(err))
			}
		}
		return res, nil
	}

	return GeocodeResult{}, fmt.Errorf("%w: %q", ErrLocationNotFound, query)
}

// ResetCache drops every cached geocode result. It is called at startup so
// results never outlive the process that resolved them, even when the cache
// is Redis.
func (r *Resolver) ResetCache(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Flush(ctx)
}

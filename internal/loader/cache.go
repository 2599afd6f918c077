package loader

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/listing"
	apperrors "github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/redis"
)

const (
	cacheKey = "listings:all"

	defaultSharedLoadTimeout = time.Minute
)

// Store is the slice of the Redis client the cache uses. GetJSON reports a
// missing key with pkgredis.ErrMiss.
type Store interface {
	GetJSON(ctx context.Context, key string, out any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// CachedLoader serves the collection from Redis when it can and otherwise
// loads it once per concurrent burst of misses. The shared load runs on a
// context detached from whichever caller started it, bounded by loadTimeout,
// so one caller going away does not fail the others.
type CachedLoader struct {
	next        Loader
	store       Store
	ttl         time.Duration
	loadTimeout time.Duration
	group       singleflight.Group
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewCachedLoader(next Loader, store Store, ttl time.Duration, m *metrics.Metrics) *CachedLoader {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedLoader{
		next:        next,
		store:       store,
		ttl:         ttl,
		loadTimeout: defaultSharedLoadTimeout,
		metrics:     m,
		logger:      slog.Default().With("component", "listing-cache"),
	}
}

func (c *CachedLoader) Load(ctx context.Context) ([]listing.Listing, error) {
	if listings, ok := c.get(ctx); ok {
		return listings, nil
	}
	ch := c.group.DoChan(cacheKey, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		listings, err := c.next.Load(loadCtx)
		if err != nil {
			return nil, err
		}
		if err := c.store.SetJSON(loadCtx, cacheKey, listings, c.ttl); err != nil {
			c.logger.Warn("cache set failed", "key", cacheKey, "error", err)
		}
		return listings, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("listing load shared between callers")
		}
		return res.Val.([]listing.Listing), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SetLoadTimeout bounds the shared source load. Non-positive values keep the
// current bound.
func (c *CachedLoader) SetLoadTimeout(d time.Duration) {
	if d > 0 {
		c.loadTimeout = d
	}
}

// Invalidate drops the cached collection so the next Load hits the source.
func (c *CachedLoader) Invalidate(ctx context.Context) error {
	if err := c.store.Del(ctx, cacheKey); err != nil {
		c.logger.Error("cache invalidate failed", "error", err)
		return apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "listing cache unavailable")
	}
	c.logger.Info("listing cache invalidated", "key", cacheKey)
	return nil
}

func (c *CachedLoader) get(ctx context.Context) ([]listing.Listing, bool) {
	var listings []listing.Listing
	err := c.store.GetJSON(ctx, cacheKey, &listings)
	switch {
	case err == nil:
		c.count(true)
		return listing.NormalizeAll(listings), true
	case errors.Is(err, pkgredis.ErrMiss):
	default:
		c.logger.Warn("cache get failed, loading from source", "error", err)
	}
	c.count(false)
	return nil, false
}

func (c *CachedLoader) count(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHitsTotal.Inc()
	} else {
		c.metrics.CacheMissesTotal.Inc()
	}
}

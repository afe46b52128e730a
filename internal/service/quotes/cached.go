package quotes

import (
	"context"
	"errors"
	"time"

	"ArbBoard/internal/domain/models"
	domrepo "ArbBoard/internal/domain/repository"
	"ArbBoard/pkg/cache"
	applogger "ArbBoard/pkg/logger"
)

const keyPrefix = "quotes"

// cachedEntry is what gets stored per symbol.
type cachedEntry struct {
	Series    models.PriceSeries `json:"series"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// CachedSource memoizes another QuoteSource per symbol for a fixed TTL.
// Fetch errors are never stored.
type CachedSource struct {
	next    domrepo.QuoteSource
	store   cache.Service
	ttl     time.Duration
	metrics domrepo.Metrics
	logger  *applogger.Logger
	now     func() time.Time
}

func NewCachedSource(next domrepo.QuoteSource, store cache.Service, ttl time.Duration, metrics domrepo.Metrics, logger *applogger.Logger) *CachedSource {
	return &CachedSource{
		next:    next,
		store:   store,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

func (c *CachedSource) Fetch(ctx context.Context, symbol string) (models.PriceSeries, error) {
	key := cache.GenerateKey(keyPrefix, symbol)

	var entry cachedEntry
	err := c.store.Get(ctx, key, &entry)
	switch {
	case err == nil && c.now().Sub(entry.FetchedAt) < c.ttl:
		c.metrics.RecordCacheLookup(true)
		return entry.Series, nil
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		// a broken cache degrades to a pass-through
		c.logger.Warn("quote cache read failed", applogger.String("key", key), applogger.Error(err))
	}
	c.metrics.RecordCacheLookup(false)

	series, err := c.next.Fetch(ctx, symbol)
	if err != nil {
		return models.PriceSeries{}, err
	}

	entry = cachedEntry{Series: series, FetchedAt: c.now()}
	if err := c.store.Set(ctx, key, entry, c.ttl); err != nil {
		c.logger.Warn("quote cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return series, nil
}

// Invalidate drops cached histories for the given symbols.
func (c *CachedSource) Invalidate(ctx context.Context, symbols ...string) error {
	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = cache.GenerateKey(keyPrefix, s)
	}
	return c.store.Delete(ctx, keys...)
}

var _ domrepo.QuoteSource = (*CachedSource)(nil)

// Package catalog is the price lookup port plus a caching decorator.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/domain"
)

// Catalog looks up item prices for a search term, optionally near a ZIP.
type Catalog interface {
	Search(ctx context.Context, term, zip string) ([]domain.ItemPrice, error)
}

// Cache stores lookup results. Get reports a miss with ok=false and no error.
type Cache interface {
	Get(ctx context.Context, key string) (items []domain.ItemPrice, ok bool, err error)
	Set(ctx context.Context, key string, items []domain.ItemPrice, ttl time.Duration) error
}

// Cached serves repeated lookups from Cache for TTL. Cache errors are logged
// and the lookup goes straight to Next.
type Cached struct {
	Next  Catalog
	Cache Cache
	TTL   time.Duration
	Log   *zap.Logger
}

func NewCached(next Catalog, cache Cache, ttl time.Duration, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{Next: next, Cache: cache, TTL: ttl, Log: log}
}

func (c *Cached) Search(ctx context.Context, term, zip string) ([]domain.ItemPrice, error) {
	if c.Cache == nil || c.TTL <= 0 {
		return c.Next.Search(ctx, term, zip)
	}
	key := Key(term, zip)
	items, ok, err := c.Cache.Get(ctx, key)
	switch {
	case err != nil:
		c.Log.Warn("cache_get_failed", zap.String("key", key), zap.Error(err))
	case ok:
		c.Log.Debug("cache_hit", zap.String("key", key))
		return items, nil
	}

	items, err = c.Next.Search(ctx, term, zip)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Set(ctx, key, items, c.TTL); err != nil {
		c.Log.Warn("cache_set_failed", zap.String("key", key), zap.Error(err))
	}
	return items, nil
}

// Key normalizes term and zip so "Milk " and "milk" share an entry.
func Key(term, zip string) string {
	return strings.ToLower(strings.TrimSpace(term)) + ":" + strings.TrimSpace(zip)
}

// FirstPrice is the price of the first hit, or invalid when there are none.
func FirstPrice(items []domain.ItemPrice) decimal.NullDecimal {
	if len(items) == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(items[0].Price)
}

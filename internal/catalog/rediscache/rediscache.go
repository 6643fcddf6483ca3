// Package rediscache backs catalog.Cache with Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marketbasket/pricewatch/internal/catalog"
	"github.com/marketbasket/pricewatch/internal/domain"
)

const keyPrefix = "pricewatch:items:"

var _ catalog.Cache = (*Cache)(nil)

type Cache struct {
	rdb *redis.Client
}

// New connects to addr and pings it.
func New(ctx context.Context, addr string) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Cache{rdb: rdb}, nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]domain.ItemPrice, bool, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var items []domain.ItemPrice
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("decode cached items: %w", err)
	}
	return items, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, items []domain.ItemPrice, ttl time.Duration) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+key, raw, ttl).Err()
}

func (c *Cache) Close() error { return c.rdb.Close() }

package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"well_bbs/internal/core/config"
	"well_bbs/internal/core/logger"
	"well_bbs/internal/pkg/pool"
)

// layeredCache L1 bigcache + L2 redis，未命中时 singleflight 回源
type layeredCache struct {
	l1  *pool.BigCache // 可为 nil
	l2  *redis.Client  // 可为 nil
	sf  singleflight.Group
	ttl time.Duration
}

func newLayeredCache(cfg *config.CacheConfig, l2 *redis.Client) *layeredCache {
	ttl := time.Duration(cfg.L2TTL) * time.Second
	l1, err := pool.NewBigCache(cfg.L1Cap, ttl)
	if err != nil {
		logger.Warn("l1 cache disabled", logger.ErrorField(err))
		l1 = nil
	}
	return &layeredCache{l1: l1, l2: l2, ttl: ttl}
}

func (c *layeredCache) get(ctx context.Context, key string, dest any) bool {
	if c.l1 != nil {
		if data, ok := c.l1.Get(key); ok && json.Unmarshal(data, dest) == nil {
			return true
		}
	}
	if c.l2 == nil {
		return false
	}
	data, err := c.l2.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Debug("l2 cache get failed", logger.String("key", key), logger.ErrorField(err))
		}
		return false
	}
	if json.Unmarshal(data, dest) != nil {
		return false
	}
	if c.l1 != nil {
		_ = c.l1.Set(key, data)
	}
	return true
}

func (c *layeredCache) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if c.l1 != nil {
		_ = c.l1.Set(key, data)
	}
	if c.l2 != nil {
		if err := c.l2.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.Debug("l2 cache set failed", logger.String("key", key), logger.ErrorField(err))
		}
	}
}

func (c *layeredCache) del(ctx context.Context, keys ...string) {
	if c.l1 != nil {
		for _, k := range keys {
			_ = c.l1.Remove(k)
		}
	}
	if c.l2 != nil && len(keys) > 0 {
		if err := c.l2.Del(ctx, keys...).Err(); err != nil {
			logger.Warn("l2 cache delete failed", logger.Strings("keys", keys), logger.ErrorField(err))
		}
	}
}

// flush 清空 L1，并按 pattern 扫描删除 L2
func (c *layeredCache) flush(ctx context.Context, pattern string) error {
	if c.l1 != nil {
		if err := c.l1.Flush(); err != nil {
			return err
		}
	}
	if c.l2 == nil {
		return nil
	}
	iter := c.l2.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.l2.Del(ctx, keys...).Err()
	}
	return nil
}

// cached 读缓存，未命中时合并并发回源；load 返回 nil 表示不存在，不写缓存
func cached[T any](ctx context.Context, c *layeredCache, key string, load func(ctx context.Context) (*T, error)) (*T, error) {
	var v T
	if c.get(ctx, key, &v) {
		return &v, nil
	}
	r, err, _ := c.sf.Do(key, func() (interface{}, error) {
		t, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if t != nil {
			c.set(ctx, key, t)
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return r.(*T), nil
}

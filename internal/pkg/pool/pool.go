package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/jonboulle/clockwork"
)

// Cache typed in-process cache
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Remove(key K)
	Flush()
}

// BigCache bigcache包装器
// 设计原则：
// 1. 底层直接使用bigcache的[]byte接口
// 2. 序列化/反序列化在Service层处理
// 3. Cache层只负责存储，无额外GC分配
type BigCache struct {
	cache *bigcache.BigCache
}

// NewBigCache 创建bigcache实例
// capacityMB: 缓存容量（MB）
// expiration: 过期时间
func NewBigCache(capacityMB int, expiration time.Duration) (*BigCache, error) {
	config := bigcache.DefaultConfig(expiration)
	config.HardMaxCacheSize = capacityMB
	config.MaxEntrySize = 512 * 1024 // 512KB max entry
	config.Verbose = false

	cache, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, err
	}

	return &BigCache{cache: cache}, nil
}

// Get 直接返回[]byte，由上层反序列化
func (c *BigCache) Get(key string) ([]byte, bool) {
	data, err := c.cache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set 直接存储[]byte，由上层序列化
func (c *BigCache) Set(key string, value []byte) error {
	return c.cache.Set(key, value)
}

// Remove 删除键，键不存在不算错误
func (c *BigCache) Remove(key string) error {
	if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Flush 清空所有缓存
func (c *BigCache) Flush() error {
	return c.cache.Reset()
}

// Len 条目数
func (c *BigCache) Len() int {
	return c.cache.Len()
}

// Close 关闭缓存
func (c *BigCache) Close() error {
	return c.cache.Close()
}

type ttlEntry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLCache map 缓存，条目存活 ttl 后视为过期；时钟可注入以便测试
type TTLCache[K comparable, V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	clock clockwork.Clock
	data  map[K]ttlEntry[V]
}

// NewTTLCache 创建 TTL 缓存，clock 为 nil 时使用真实时钟
func NewTTLCache[K comparable, V any](ttl time.Duration, clock clockwork.Clock) *TTLCache[K, V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TTLCache[K, V]{
		ttl:   ttl,
		clock: clock,
		data:  make(map[K]ttlEntry[V]),
	}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || c.clock.Since(e.storedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.data[key] = ttlEntry[V]{value: value, storedAt: c.clock.Now()}
	c.mu.Unlock()
}

func (c *TTLCache[K, V]) Remove(key K) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

func (c *TTLCache[K, V]) Flush() {
	c.mu.Lock()
	c.data = make(map[K]ttlEntry[V])
	c.mu.Unlock()
}

// TTL 条目存活时间
func (c *TTLCache[K, V]) TTL() time.Duration {
	return c.ttl
}

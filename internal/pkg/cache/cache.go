// Package cache is a small TTL cache for prepared render assets such as scaled
// logos and QR codes.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"report-service-go/internal/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// ErrMiss is returned by Get for absent or expired keys.
var ErrMiss = errors.New("cache miss")

// Item is a cached value with its expiry in unix nanoseconds.
type Item struct {
	Value      []byte
	Expiration int64
}

// Cache is safe for concurrent use. Call Close to stop the cleanup loop.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]Item
	ttl     time.Duration
	metrics Metrics
	loads   sync.Map // key -> *sync.Mutex, serializes GetOrLoad per key

	stop     chan struct{}
	stopOnce sync.Once
}

// NewCache creates a cache reporting to the package metrics.
func NewCache(ttl time.Duration) *Cache {
	return NewCacheWithMetrics(ttl, defaultMetrics)
}

// NewCacheWithMetrics creates a cache reporting to m.
func NewCacheWithMetrics(ttl time.Duration, m Metrics) *Cache {
	c := &Cache{
		items:   make(map[string]Item),
		ttl:     ttl,
		metrics: m,
		stop:    make(chan struct{}),
	}
	go c.startCleanupTimer()
	return c
}

// Set stores value under key for the cache TTL.
func (c *Cache) Set(key string, value []byte) {
	c.mu.Lock()
	c.items[key] = Item{Value: value, Expiration: time.Now().Add(c.ttl).UnixNano()}
	n := len(c.items)
	c.mu.Unlock()

	c.metrics.Size.WithLabelValues(key).Set(float64(len(value)))
	c.metrics.Items.Set(float64(n))
}

// Get returns the cached value or an error wrapping ErrMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "Cache.Get")
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", key))

	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		c.metrics.Misses.Inc()
		return nil, fmt.Errorf("%w: key %s not found", ErrMiss, key)
	}
	if time.Now().UnixNano() > item.Expiration {
		c.delete(key)
		c.metrics.Misses.Inc()
		return nil, fmt.Errorf("%w: key %s expired", ErrMiss, key)
	}

	c.metrics.Hits.Inc()
	tracing.AddEvent(ctx, "cache hit")
	return item.Value, nil
}

// GetOrLoad returns the cached value, calling load at most once per key at a
// time on a miss. Load errors are not cached.
func (c *Cache) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if v, err := c.Get(ctx, key); err == nil {
		return v, nil
	}

	lock, _ := c.loads.LoadOrStore(key, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if ok && time.Now().UnixNano() <= item.Expiration {
		return item.Value, nil
	}

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) {
	_, span := tracing.StartSpan(ctx, "Cache.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", key))

	c.delete(key)
}

func (c *Cache) delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	n := len(c.items)
	c.mu.Unlock()

	c.metrics.Size.DeleteLabelValues(key)
	c.metrics.Items.Set(float64(n))
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) {
	_, span := tracing.StartSpan(ctx, "Cache.Clear")
	defer span.End()

	c.mu.Lock()
	for key := range c.items {
		c.metrics.Size.DeleteLabelValues(key)
	}
	c.items = make(map[string]Item)
	c.mu.Unlock()

	c.metrics.Items.Set(0)
}

// Close stops the cleanup loop.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) startCleanupTimer() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	now := time.Now().UnixNano()
	var expired []string

	c.mu.RLock()
	for key, item := range c.items {
		if now > item.Expiration {
			expired = append(expired, key)
		}
	}
	c.mu.RUnlock()

	for _, key := range expired {
		c.delete(key)
	}
}

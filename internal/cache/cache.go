// Package cache stores short-lived values such as websocket tickets.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a byte-oriented key/value cache with expiry.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Take returns the value and removes it in one step.
	Take(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
}

type item struct {
	value     []byte
	expiresAt time.Time
}

// InMemoryCache is a process-local Store. Expired items are hidden on read
// and reclaimed by the cleanup loop.
type InMemoryCache struct {
	mu          sync.Mutex
	items       map[string]item
	defaultTTL  time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

func NewInMemoryCache(defaultTTL, cleanupFreq time.Duration) *InMemoryCache {
	return &InMemoryCache{
		items:       make(map[string]item),
		defaultTTL:  defaultTTL,
		cleanupFreq: cleanupFreq,
		stop:        make(chan struct{}),
		now:         time.Now,
	}
}

func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.items[key] = item{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok || !c.now().Before(it.expiresAt) {
		return nil, false, nil
	}
	return it.value, true, nil
}

func (c *InMemoryCache) Take(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	delete(c.items, key)
	if !c.now().Before(it.expiresAt) {
		return nil, false, nil
	}
	return it.value, true, nil
}

func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// StartCleanup evicts expired items every cleanupFreq until ctx ends or
// StopCleanup is called.
func (c *InMemoryCache) StartCleanup(ctx context.Context) {
	if c.cleanupFreq <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(c.cleanupFreq)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				c.evictExpired()
			}
		}
	}()
}

func (c *InMemoryCache) StopCleanup() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *InMemoryCache) evictExpired() {
	now := c.now()
	c.mu.Lock()
	for key, it := range c.items {
		if !now.Before(it.expiresAt) {
			delete(c.items, key)
		}
	}
	c.mu.Unlock()
}

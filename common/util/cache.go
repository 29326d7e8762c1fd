package util

import (
	"context"
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	timer *time.Timer
	value V
}

// LRWCache is a least-recently-written cache: entries expire after a
// fixed TTL and the oldest write is discarded once maxSize is reached.
type LRWCache[K comparable, V any] struct {
	ttl     time.Duration
	maxSize int
	tokens  chan K
	data    map[K]cacheEntry[V]
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
}

func NewLRWCache[K comparable, V any](ctx context.Context, ttl time.Duration, maxSize int) *LRWCache[K, V] {
	c := &LRWCache[K, V]{
		ttl:     ttl,
		maxSize: maxSize,
		tokens:  make(chan K, maxSize),
		data:    make(map[K]cacheEntry[V], maxSize),
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	return c
}

func (c *LRWCache[K, V]) Set(key K, value V) {
	if len(c.tokens) == c.maxSize {
		c.Delete(<-c.tokens)
	}
	c.tokens <- key
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheEntry[V]{
		timer: time.AfterFunc(c.ttl, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.delete(key)
		}),
		value: value,
	}
}

func (c *LRWCache[K, V]) Get(key K) (value V, exists bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, exists := c.data[key]
	if exists {
		value = entry.value
	}
	return
}

// GetAndRemove pops the entry so a key is consumed at most once.
func (c *LRWCache[K, V]) GetAndRemove(key K) (value V, exists bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, exists := c.data[key]
	if exists {
		value = entry.value
		c.delete(key)
	}
	return
}

func (c *LRWCache[K, V]) Exists(key K) bool {
	_, ok := c.Get(key)
	return ok
}

func (c *LRWCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delete(key)
}

func (c *LRWCache[K, V]) delete(key K) {
	entry, ok := c.data[key]
	if !ok {
		return
	}
	entry.timer.Stop()
	delete(c.data, key)
	select {
	case <-c.tokens:
	default:
	}
}

func (c *LRWCache[K, V]) Close() {
	c.cancel()
}

// Package clientcache memoizes expensive client construction, such as
// vendor SDK clients keyed by base URL.
package clientcache

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache is a concurrency-safe lazy cache. Construction for a given key
// runs at most once even when many goroutines ask for it at the same
// time.
type Cache[T any] struct {
	clients sync.Map
	group   singleflight.Group
}

func NewCache[T any]() *Cache[T] {
	return &Cache[T]{}
}

// GetOrCreate returns the cached value for key, building it with factory
// on first use. A factory error is returned to every concurrent caller
// and nothing is cached, so the next call retries.
func (c *Cache[T]) GetOrCreate(key string, factory func() (T, error)) (T, error) {
	if cached, ok := c.clients.Load(key); ok {
		return cached.(T), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if cached, ok := c.clients.Load(key); ok {
			return cached.(T), nil
		}

		client, err := factory()
		if err != nil {
			return nil, err
		}

		c.clients.Store(key, client)
		return client, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

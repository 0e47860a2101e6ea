package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type goCacheWrapper struct {
	cache *gocache.Cache
}

// NewGoCache creates a process-local cache backed by go-cache.
func NewGoCache(config LocalConfig) Cache {
	config = config.withDefaults()
	return &goCacheWrapper{
		cache: gocache.New(config.DefaultExpiration, config.CleanupInterval),
	}
}

func (gc *goCacheWrapper) Get(ctx context.Context, key string) (string, bool) {
	if value, found := gc.cache.Get(key); found {
		s, ok := value.(string)
		return s, ok
	}
	return "", false
}

func (gc *goCacheWrapper) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	gc.cache.Set(key, value, goCacheTTL(expiration))
	return nil
}

func (gc *goCacheWrapper) SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error) {
	// Add fails when the key already holds an unexpired item.
	if err := gc.cache.Add(key, value, goCacheTTL(expiration)); err != nil {
		return false, nil
	}
	return true, nil
}

func (gc *goCacheWrapper) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		gc.cache.Delete(key)
	}
	return nil
}

func (gc *goCacheWrapper) Exists(ctx context.Context, key string) bool {
	_, found := gc.cache.Get(key)
	return found
}

func (gc *goCacheWrapper) Clear(ctx context.Context) error {
	gc.cache.Flush()
	return nil
}

func (gc *goCacheWrapper) Close() error {
	return nil
}

// ItemCount reports the number of cached items, expired ones included until cleanup.
func (gc *goCacheWrapper) ItemCount() int {
	return gc.cache.ItemCount()
}

func goCacheTTL(expiration time.Duration) time.Duration {
	if expiration <= 0 {
		return gocache.DefaultExpiration
	}
	return expiration
}

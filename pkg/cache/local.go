package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type lruItem struct {
	value     string
	expiresAt time.Time
}

// localCache is a size-bounded LRU. The LRU itself expires entries after the default
// TTL; shorter per-key TTLs are checked on read.
type localCache struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, lruItem]
	ttl time.Duration
}

func NewLocalCache(config LocalConfig) Cache {
	config = config.withDefaults()
	return &localCache{
		lru: expirable.NewLRU[string, lruItem](config.MaxSize, nil, config.DefaultExpiration),
		ttl: config.DefaultExpiration,
	}
}

func (lc *localCache) Get(ctx context.Context, key string) (string, bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.get(key)
}

func (lc *localCache) get(key string) (string, bool) {
	item, ok := lc.lru.Get(key)
	if !ok {
		return "", false
	}
	if time.Now().After(item.expiresAt) {
		lc.lru.Remove(key)
		return "", false
	}
	return item.value, true
}

func (lc *localCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.set(key, value, expiration)
	return nil
}

func (lc *localCache) set(key, value string, expiration time.Duration) {
	if expiration <= 0 || expiration > lc.ttl {
		expiration = lc.ttl
	}
	lc.lru.Add(key, lruItem{value: value, expiresAt: time.Now().Add(expiration)})
}

func (lc *localCache) SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if _, ok := lc.get(key); ok {
		return false, nil
	}
	lc.set(key, value, expiration)
	return true, nil
}

func (lc *localCache) Delete(ctx context.Context, keys ...string) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	for _, key := range keys {
		lc.lru.Remove(key)
	}
	return nil
}

func (lc *localCache) Exists(ctx context.Context, key string) bool {
	_, ok := lc.Get(ctx, key)
	return ok
}

func (lc *localCache) Clear(ctx context.Context) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.lru.Purge()
	return nil
}

func (lc *localCache) Close() error {
	return nil
}

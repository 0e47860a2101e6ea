package cache

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// NewCache builds the backend named by config.Type. An empty type means go-cache.
func NewCache(config Config) (Cache, error) {
	switch strings.ToLower(config.Type) {
	case "", "gocache":
		return NewGoCache(config.Local), nil
	case "local", "lru":
		return NewLocalCache(config.Local), nil
	case "redis":
		return NewRedisCache(config.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}

// RedisClient exposes the connection behind a redis-backed cache so other components
// (the API rate limiter) can share it. ok is false for in-process backends.
func RedisClient(c Cache) (client *redis.Client, ok bool) {
	rc, ok := c.(*redisCache)
	if !ok {
		return nil, false
	}
	return rc.client, true
}

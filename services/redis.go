package services

import (
	"blog/config"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const PageCachePrefix = "page_cache:"

func InitRedis() (*redis.Client, error) {
	if config.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is not loaded")
	}

	redisConfig := config.AppConfig.Redis
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})

	// Тест соединения
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisCache is a PageCache shared between instances.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: PageCachePrefix}
}

var _ PageCache = (*RedisCache)(nil)

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Get treats Redis failures as misses so a broken cache never breaks a page.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("ERROR: page cache get %s: %v", key, err)
		}
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.client == nil {
		return ErrRedisUnavailable
	}
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// Clear removes every key under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	if c.client == nil {
		return ErrRedisUnavailable
	}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan page cache: %w", err)
		}
		if len(keys) > 0 {
			pipe := c.client.Pipeline()
			pipe.Del(ctx, keys...)
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("failed to clear page cache: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

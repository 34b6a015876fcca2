package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acl-rts-tracker/internal/domain"
)

const defaultKeyPrefix = "rts:patient:"

// cachedPatient is the stored envelope.
type cachedPatient struct {
	Data      *domain.Patient `json:"data"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// RedisCache wraps a Redis client as a shared patient cache.
type RedisCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
	prefix     string
}

// NewRedisCache connects to Redis using the cache configuration.
func NewRedisCache(ctx context.Context, config domain.CacheConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, config.DefaultTTL, config.KeyPrefix), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, prefix string) *RedisCache {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisCache{
		redis:      client,
		defaultTTL: ttl,
		prefix:     prefix,
	}
}

func (c *RedisCache) key(mrn string) string {
	return c.prefix + mrn
}

// Get implements PatientCache.
func (c *RedisCache) Get(ctx context.Context, mrn string) (*domain.Patient, bool, error) {
	key := c.key(mrn)

	val, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get patient cache: %w", err)
	}

	var cached cachedPatient
	if err := json.Unmarshal([]byte(val), &cached); err != nil || cached.Data == nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}
	if !cached.ExpiresAt.IsZero() && time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// Set implements PatientCache.
func (c *RedisCache) Set(ctx context.Context, patient *domain.Patient) error {
	now := time.Now()
	cached := cachedPatient{
		Data:     patient,
		CachedAt: now,
	}
	if c.defaultTTL > 0 {
		cached.ExpiresAt = now.Add(c.defaultTTL)
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal patient cache data: %w", err)
	}
	return c.redis.Set(ctx, c.key(patient.MRN), data, c.defaultTTL).Err()
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close implements PatientCache.
func (c *RedisCache) Close() error {
	return c.redis.Close()
}

package external

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/faskesq-clinical-assist/internal/domain"
)

// ResponseCache stores model responses keyed by a digest of the request.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*domain.ModelResponse, bool, error)
	Set(ctx context.Context, key string, resp *domain.ModelResponse, ttl time.Duration) error
}

// CachedResponse represents a cached model response with metadata
type CachedResponse struct {
	Data      *domain.ModelResponse `json:"data"`
	CachedAt  time.Time             `json:"cached_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// RedisCache wraps a Redis client as a ResponseCache shared between replicas.
type RedisCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
	prefix     string
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(config domain.CacheConfig) (*RedisCache, error) {
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, config.DefaultTTL), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, defaultTTL time.Duration) *RedisCache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &RedisCache{redis: client, defaultTTL: defaultTTL, prefix: "faskesq:model:"}
}

// Client exposes the underlying Redis client for health checks.
func (c *RedisCache) Client() *redis.Client {
	return c.redis
}

// Get retrieves a cached response. Corrupt or expired entries are removed and
// reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*domain.ModelResponse, bool, error) {
	fullKey := c.prefix + key

	val, err := c.redis.Get(ctx, fullKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached response: %w", err)
	}

	var cached CachedResponse
	if err := json.Unmarshal([]byte(val), &cached); err != nil || cached.Data == nil {
		c.redis.Del(ctx, fullKey)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, fullKey)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// Set caches a response
func (c *RedisCache) Set(ctx context.Context, key string, resp *domain.ModelResponse, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := time.Now()
	data, err := json.Marshal(CachedResponse{
		Data:      resp,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cached response: %w", err)
	}

	return c.redis.Set(ctx, c.prefix+key, data, ttl).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.redis.Close()
}

// RequestKey returns a stable digest of everything that influences the model output.
func RequestKey(model string, req *domain.ModelRequest) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	// Encoding maps sorts keys, so the schema digest is stable.
	_ = enc.Encode(struct {
		Model   string               `json:"m"`
		Name    string               `json:"n"`
		System  string               `json:"s"`
		Prompt  string               `json:"p"`
		History []domain.ChatMessage `json:"h"`
		Schema  map[string]any       `json:"r"`
		Temp    float64              `json:"t"`
	}{model, req.Name, req.SystemPrompt, req.Prompt, req.History, req.ResponseSchema, req.Temperature})
	return hex.EncodeToString(h.Sum(nil))
}

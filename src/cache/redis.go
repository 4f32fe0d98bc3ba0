package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "embedding:"

// Redis is the remote cache tier. Entries carry a TTL so the cache bounds
// itself.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the Redis instance at url and verifies the connection.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	if url == "" {
		return nil, fmt.Errorf("redis URL is required")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) key(k string) string {
	return keyPrefix + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]float64, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get embedding: %w", err)
	}

	var embedding []float64
	if err := sonic.Unmarshal([]byte(data), &embedding); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	return embedding, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, embedding []float64) error {
	data, err := sonic.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set embedding: %w", err)
	}
	return nil
}

// Ping tests the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Package redisclient wraps the Redis connection used as a read-through
// cache for catalog listings. The cache is an optimization only: callers
// treat every error here as a miss.
package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const listKeyPrefix = "catalog:"

type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis client and verifies the connection.
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetList reads a cached listing into dest. The bool reports a hit; a
// missing key is a miss, not an error.
func (c *Client) GetList(ctx context.Context, name string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, listKeyPrefix+name).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}
	return true, nil
}

// SetList caches a listing under the configured TTL.
func (c *Client) SetList(ctx context.Context, name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	if err := c.rdb.Set(ctx, listKeyPrefix+name, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// InvalidateLists drops cached listings after a catalog write.
func (c *Client) InvalidateLists(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = listKeyPrefix + name
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate failed: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps redis.Client but fails safe by swallowing connectivity errors.
// A nil *Client behaves as an always-empty cache.
type Client struct {
	client *redis.Client
}

// New creates a new Redis client.
func New(addr, password string, db int) *Client {
	return NewFromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

// NewFromClient wraps an existing redis client.
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{client: rdb}
}

// Ping checks connectivity. Unlike the other methods it reports the error.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("redis not configured")
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Get returns value or nil if missing or redis unavailable.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	res, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// redis.Nil or connectivity: both read as a miss
		return nil, nil
	}
	return res, nil
}

// Set stores value with TTL, ignoring redis errors.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	_ = c.client.Set(ctx, key, value, ttl).Err()
	return nil
}

// Delete removes keys, ignoring redis errors.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	_ = c.client.Del(ctx, keys...).Err()
	return nil
}

// GetJSON decodes a cached value into dst. It reports false on a miss or a
// payload that no longer decodes.
func (c *Client) GetJSON(ctx context.Context, key string, dst any) bool {
	data, _ := c.Get(ctx, key)
	if data == nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// SetJSON encodes v and stores it with TTL.
func (c *Client) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, payload, ttl)
}

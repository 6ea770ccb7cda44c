package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"inventory-service/internal/config"
)

// Client wraps Redis as a small read-through cache. Cache failures are
// logged and swallowed: a cold or absent cache only costs a database
// round trip.
type Client struct {
	rdb    *redis.Client
	logger *logrus.Logger
}

// NewClient creates a new cache client and verifies connectivity.
func NewClient(cfg config.RedisConfig, logger *logrus.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, logger: logger}, nil
}

// Get returns the cached value, reporting false on miss or error.
func (c *Client) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithField("key", key).Debug("cache get failed")
		}
		return "", false
	}
	return value, true
}

// Set stores a value with a TTL.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.WithField("key", key).Debug("cache set failed")
	}
}

// Delete removes a key.
func (c *Client) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger.WithField("key", key).Debug("cache delete failed")
	}
}

// Ping checks the connection to Redis.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

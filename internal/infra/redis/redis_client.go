// File: internal/infra/redis/redis_client.go
package redis

import (
	"context"

	"recruitment-billing/internal/config"

	"github.com/go-redis/redis/v8"
)

// Client holds the connection the locker leases keys on. The service keeps
// no other state in redis, so nothing beyond connect and close is exposed.
type Client struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{cli: c}, nil
}

func (c *Client) Close() error { return c.cli.Close() }

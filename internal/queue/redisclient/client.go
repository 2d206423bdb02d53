package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client owns the redis connection shared by the rate limiters. Timeouts are
// short on purpose; redis being down must never stall a login.
type Client struct {
	rdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Raw exposes the underlying client for middleware that speaks redis
// commands directly.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}

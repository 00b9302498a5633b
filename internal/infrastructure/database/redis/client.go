package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/scholar-etl/internal/config"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

var (
	ErrClientClosed     = errors.New(errors.ErrCodeInternal, "redis client is closed")
	ErrConnectionFailed = errors.New(errors.ErrCodeCacheError, "redis connection failed")
)

const defaultDialTimeout = 5 * time.Second

type Client struct {
	rdb    redis.UniversalClient
	config config.RedisConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects to the Redis server of cfg and pings it.
func NewClient(cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		MaxRetries:  3,
	})

	client := &Client{
		rdb:    rdb,
		config: cfg,
		logger: log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		rdb.Close()
		return nil, ErrConnectionFailed.WithCause(err)
	}

	log.Info("Redis client connected", logging.String("addr", cfg.Addr))
	return client, nil
}

func (c *Client) Ping(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClientClosed
	}
	c.mu.RUnlock()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.rdb.Close()
	if err == nil {
		c.logger.Info("Closed Redis client")
	} else {
		c.logger.Error("Failed to close Redis client", logging.Err(err))
	}
	return err
}

func (c *Client) GetUnderlyingClient() redis.UniversalClient {
	return c.rdb
}

// Commands

func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if c.isClosed() {
		return errorBoolCmd(ErrClientClosed)
	}
	return c.rdb.SetNX(ctx, key, value, expiration)
}

// Helper methods

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func errorBoolCmd(err error) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(context.Background())
	cmd.SetErr(err)
	return cmd
}

//Personal.AI order the ending

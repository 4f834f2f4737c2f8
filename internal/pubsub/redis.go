// Package pubsub publishes JSON messages on Redis pub/sub channels.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/shaharia-lab/mc-webhooks/internal/metrics"
)

// ErrNotConnected is returned by Publish when Connect has not succeeded.
var ErrNotConnected = errors.New("pubsub: redis client is not connected")

// RedisClient owns the process-wide Redis connection pool. Connect must be
// called once at startup; Publish is then safe for concurrent use.
type RedisClient struct {
	url      string
	db       int
	logger   *slog.Logger
	attempts uint
	interval time.Duration

	mu     sync.RWMutex
	client *redis.Client
}

// Option customises a RedisClient.
type Option func(*RedisClient)

// WithConnectAttempts sets how many times Connect tries to PING the server
// before giving up, and the initial delay between tries. Defaults: 3 and 200ms.
func WithConnectAttempts(n uint, initialInterval time.Duration) Option {
	return func(c *RedisClient) {
		if n > 0 {
			c.attempts = n
		}
		if initialInterval > 0 {
			c.interval = initialInterval
		}
	}
}

// NewRedisClient creates an unconnected client. A non-zero db overrides the
// database number in url.
func NewRedisClient(url string, db int, logger *slog.Logger, opts ...Option) *RedisClient {
	if logger == nil {
		logger = slog.Default()
	}
	c := &RedisClient{
		url:      url,
		db:       db,
		logger:   logger,
		attempts: 3,
		interval: 200 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect parses the URL, opens the pool and verifies it with PING, retrying
// with exponential backoff. Any failure is returned and leaves the client
// unconnected.
func (c *RedisClient) Connect(ctx context.Context) error {
	opts, err := redis.ParseURL(c.url)
	if err != nil {
		return fmt.Errorf("parsing redis url: %w", err)
	}
	if c.db != 0 {
		opts.DB = c.db
	}

	client := redis.NewClient(opts)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.interval
	_, err = backoff.Retry(ctx, func() (string, error) {
		pong, err := client.Ping(ctx).Result()
		if err != nil {
			c.logger.Warn("redis ping failed", "addr", opts.Addr, "error", err)
		}
		return pong, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.attempts))
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	c.mu.Lock()
	old := c.client
	c.client = client
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	c.logger.Info("connected to redis", "addr", opts.Addr, "db", opts.DB)
	return nil
}

// Connected reports whether Connect has succeeded and Close has not been called.
func (c *RedisClient) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil
}

// Publish JSON-encodes message and publishes it on channel.
func (c *RedisClient) Publish(ctx context.Context, channel string, message any) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client == nil {
		metrics.MessagesPublished.WithLabelValues(channel, "error").Inc()
		return ErrNotConnected
	}

	data, err := json.Marshal(message)
	if err != nil {
		metrics.MessagesPublished.WithLabelValues(channel, "error").Inc()
		return fmt.Errorf("encoding message for %q: %w", channel, err)
	}

	err = client.Publish(ctx, channel, data).Err()
	metrics.MessagesPublished.WithLabelValues(channel, metrics.Status(err)).Inc()
	if err != nil {
		return fmt.Errorf("publishing to %q: %w", channel, err)
	}

	c.logger.Debug("published message", "channel", channel, "message", string(data))
	return nil
}

// Close releases the connection pool. Publish fails with ErrNotConnected afterwards.
func (c *RedisClient) Close() error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("closing redis client: %w", err)
	}
	c.logger.Info("disconnected from redis")
	return nil
}

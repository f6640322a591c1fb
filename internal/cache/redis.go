// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"showcase/internal/observability"

	"github.com/redis/go-redis/v9"
)

const clientName = "showcase-api"

var client *redis.Client

// errorHook counts failed commands. A miss (redis.Nil) is not a failure.
type errorHook struct{}

func (errorHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (errorHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (errorHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		for _, cmd := range cmds {
			if cerr := cmd.Err(); cerr != nil && !errors.Is(cerr, redis.Nil) {
				observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
			}
		}
		return err
	}
}

// parseRedisAddr accepts host:port or a redis:// / rediss:// URL.
func parseRedisAddr(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// InitRedis connects to addr and installs the client for the package
// helpers. It returns nil when Redis is unreachable; the caller then runs
// without the detail cache, the sweep lease or cross-instance notifications.
func InitRedis(addr string) *redis.Client {
	opts, err := parseRedisAddr(addr)
	if err != nil {
		slog.Warn("invalid REDIS_URL, continuing without redis", slog.String("error", err.Error()))
		client = nil
		return nil
	}
	opts.ClientName = clientName

	c := redis.NewClient(opts)
	c.AddHook(errorHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, continuing without redis",
			slog.String("addr", opts.Addr),
			slog.String("error", err.Error()))
		_ = c.Close()
		client = nil
		return nil
	}

	slog.Info("redis connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
	client = c
	return client
}

// SetClient replaces the package client. Tests use it with miniredis.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the current Redis client instance.
func GetClient() *redis.Client {
	return client
}

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what a quota does when Redis cannot answer.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoLimiterStore = errors.New("rate limit store unavailable")

// Quota is a per-caller write budget, e.g. reviews submitted per hour.
type Quota struct {
	Name   string
	Max    int
	Window time.Duration
	Policy FailPolicy
}

func (q Quota) key(caller string) string {
	return "rl:" + q.Name + ":" + caller
}

// quotasEnforced reports whether quotas apply in the current APP_ENV. Local
// and test runs skip them.
func quotasEnforced() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return false
	}
	return true
}

// Consume counts one use of q by caller and returns how many uses remain in
// the window. allowed is false once the budget is spent.
func (q Quota) Consume(ctx context.Context, rdb *redis.Client, caller string) (allowed bool, remaining int, err error) {
	if !quotasEnforced() {
		return true, q.Max, nil
	}
	return q.consume(ctx, rdb, caller)
}

func (q Quota) consume(ctx context.Context, rdb *redis.Client, caller string) (bool, int, error) {
	if rdb == nil {
		return false, 0, errNoLimiterStore
	}
	key := q.key(caller)

	var incr *redis.IntCmd
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		// NX keeps the window anchored at the first hit.
		pipe.ExpireNX(ctx, key, q.Window)
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	used := int(incr.Val())
	remaining := q.Max - used
	if remaining < 0 {
		remaining = 0
	}
	return used <= q.Max, remaining, nil
}

// callerKey prefers the authenticated user so shared NATs do not share a
// budget.
func callerKey(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userID").(uint); ok {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return "ip:" + c.IP()
}

// RateLimit enforces q per caller on the routes it guards.
func RateLimit(rdb *redis.Client, q Quota) fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, remaining, err := q.Consume(c.UserContext(), rdb, callerKey(c))
		if err != nil {
			if q.Policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "quota check failed closed",
					slog.String("quota", q.Name),
					slog.String("error", err.Error()),
				)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
					"code":  "RATE_LIMIT_UNAVAILABLE",
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(q.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(q.Window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many " + q.Name + " requests, try again later",
				"code":  "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}

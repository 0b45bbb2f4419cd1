package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/biomarkerpulse/internal/retry"
	goredis "github.com/redis/go-redis/v9"
)

var connectPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     4 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Redis not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

// NewClient parses a redis:// URL, verifies the connection and installs the
// metrics and circuit breaker hooks. Startup pings run before the breaker is
// attached.
func NewClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	rdb.AddHook(&MetricsHook{})

	err = retry.DoVoid(ctx, connectPolicy, classifyConnectError, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	rdb.AddHook(NewCircuitBreakerHook())
	return rdb, nil
}

// classifyConnectError retries network failures. A server reply such as
// NOAUTH or WRONGPASS will not change on retry.
func classifyConnectError(err error) retry.Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}
	var replyErr goredis.Error
	if errors.As(err, &replyErr) {
		return retry.Stop
	}
	return retry.Retry
}

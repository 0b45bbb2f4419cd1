package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(err error) goredis.ProcessHook {
	return func(context.Context, goredis.Cmder) error { return err }
}

func tripBreaker(t *testing.T, hook *CircuitBreakerHook, n int) {
	t.Helper()
	ctx := context.Background()
	for range n {
		_ = hook.ProcessHook(failing(errors.New("redis down")))(ctx, goredis.NewStringSliceCmd(ctx, "lrange", "biomarkers:p1", 0, -1))
	}
	require.Equal(t, gobreaker.StateOpen, hook.GetState())
}

func newFastHook() *CircuitBreakerHook {
	return &CircuitBreakerHook{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "redis-test",
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     100 * time.Millisecond,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.Requests >= 3 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
			},
		}),
	}
}

func TestCircuitBreakerHook_NormalOperation(t *testing.T) {
	hook := NewCircuitBreakerHook()
	assert.Equal(t, gobreaker.StateClosed, hook.GetState())

	ctx := context.Background()
	for range 10 {
		err := hook.ProcessHook(failing(nil))(ctx, goredis.NewStringCmd(ctx, "hget", "patients", "p1"))
		assert.NoError(t, err)
	}

	assert.Equal(t, gobreaker.StateClosed, hook.GetState())
	counts := hook.GetCounts()
	assert.Equal(t, uint32(10), counts.Requests)
	assert.Equal(t, uint32(10), counts.TotalSuccesses)
	assert.Equal(t, uint32(0), counts.TotalFailures)
}

func TestCircuitBreakerHook_NilReplyIsSuccess(t *testing.T) {
	hook := NewCircuitBreakerHook()
	ctx := context.Background()

	for range 10 {
		err := hook.ProcessHook(failing(goredis.Nil))(ctx, goredis.NewStringCmd(ctx, "hget", "patients", "missing"))
		assert.ErrorIs(t, err, goredis.Nil)
	}

	assert.Equal(t, gobreaker.StateClosed, hook.GetState())
	assert.Equal(t, uint32(0), hook.GetCounts().TotalFailures)
}

func TestCircuitBreakerHook_TransientFailures(t *testing.T) {
	hook := NewCircuitBreakerHook()
	ctx := context.Background()

	for range 2 {
		err := hook.ProcessHook(failing(errors.New("connection refused")))(ctx, goredis.NewStringCmd(ctx, "get", "key"))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	assert.Equal(t, gobreaker.StateClosed, hook.GetState())
}

func TestCircuitBreakerHook_FailsFastWhenOpen(t *testing.T) {
	hook := NewCircuitBreakerHook()
	tripBreaker(t, hook, 5)

	called := false
	ctx := context.Background()
	err := hook.ProcessHook(func(context.Context, goredis.Cmder) error {
		called = true
		return nil
	})(ctx, goredis.NewStringSliceCmd(ctx, "lrange", "biomarkers:p1", 0, -1))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called, "Redis should not be called when circuit is open")
}

func TestCircuitBreakerHook_PipelineFailsWhenOpen(t *testing.T) {
	hook := NewCircuitBreakerHook()
	tripBreaker(t, hook, 5)

	ctx := context.Background()
	err := hook.ProcessPipelineHook(func(context.Context, []goredis.Cmder) error {
		t.Fatal("Redis pipeline should not be called")
		return nil
	})(ctx, []goredis.Cmder{
		goredis.NewIntCmd(ctx, "hset", "patients", "p1", "{}"),
		goredis.NewIntCmd(ctx, "rpush", "patients:order", "p1"),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestCircuitBreakerHook_RecoveryToHalfOpen(t *testing.T) {
	hook := newFastHook()
	tripBreaker(t, hook, 3)

	time.Sleep(150 * time.Millisecond)

	ctx := context.Background()
	err := hook.ProcessHook(failing(nil))(ctx, goredis.NewStringCmd(ctx, "get", "key"))
	assert.NoError(t, err)
	assert.Equal(t, gobreaker.StateHalfOpen, hook.GetState())
}

func TestCircuitBreakerHook_ClosesAfterSuccessfulRecovery(t *testing.T) {
	hook := newFastHook()
	tripBreaker(t, hook, 3)

	time.Sleep(150 * time.Millisecond)

	ctx := context.Background()
	for range 3 {
		err := hook.ProcessHook(failing(nil))(ctx, goredis.NewStringCmd(ctx, "get", "key"))
		require.NoError(t, err)
	}

	assert.Equal(t, gobreaker.StateClosed, hook.GetState())
}

func TestStateToFloat(t *testing.T) {
	tests := []struct {
		state    gobreaker.State
		expected float64
	}{
		{gobreaker.StateClosed, 0},
		{gobreaker.StateHalfOpen, 1},
		{gobreaker.StateOpen, 2},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.InDelta(t, tt.expected, stateToFloat(tt.state), 0)
		})
	}
}

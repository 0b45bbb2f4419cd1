package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/pscheid92/biomarkerpulse/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replyError string

func (e replyError) Error() string { return string(e) }
func (replyError) RedisError()     {}

func TestClassifyConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retry.Action
	}{
		{"connection refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, retry.Retry},
		{"auth reply", replyError("WRONGPASS invalid username-password pair"), retry.Stop},
		{"wrapped auth reply", fmt.Errorf("ping: %w", replyError("NOAUTH Authentication required")), retry.Stop},
		{"cancelled", context.Canceled, retry.Stop},
		{"deadline", context.DeadlineExceeded, retry.Stop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyConnectError(tt.err))
		})
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "://not-a-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse redis URL")
}

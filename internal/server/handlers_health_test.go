package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/pscheid92/biomarkerpulse/internal/broadcast"
	"github.com/pscheid92/biomarkerpulse/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleLiveness(t *testing.T) {
	var deps *testDeps
	srv := newTestServer(t, func(d *testDeps) { deps = d })
	deps.clock.Advance(90 * time.Second)

	rec := do(t, srv, http.MethodGet, "/health/live")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.InDelta(t, 90.0, body["uptime"], 0.001)
}

func TestHandleReadiness_NoChecks(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/health/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHandleReadiness_AllHealthy(t *testing.T) {
	srv := newTestServer(t, withHealthChecks(
		HealthCheck{Name: "redis", Check: func(context.Context) error { return nil }},
	))

	rec := do(t, srv, http.MethodGet, "/health/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHandleReadiness_RedisDown(t *testing.T) {
	srv := newTestServer(t, withHealthChecks(
		HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	))

	rec := do(t, srv, http.MethodGet, "/health/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy","failed_check":"redis","error":"connection refused"}`, rec.Body.String())
}

func TestHandleReadiness_ChecksHaveDeadline(t *testing.T) {
	srv := newTestServer(t, withHealthChecks(
		HealthCheck{Name: "deadline", Check: func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		}},
	))

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/health/ready").Code)
}

func TestHandleVersion(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/version")
	require.Equal(t, http.StatusOK, rec.Code)

	var info version.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, version.Get(), info)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestHandleLiveStats(t *testing.T) {
	srv := newTestServer(t, func(d *testDeps) {
		d.live = fakeLive{stats: broadcast.Stats{ActiveTopics: 2, Subscriptions: 5}}
		d.gateway = fakeGateway{conns: 4}
	})

	rec := do(t, srv, http.MethodGet, "/api/live/stats")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"activeTopics":2,"subscriptions":5,"connections":4}}`, rec.Body.String())
}

func TestWebSocketRouteDelegatesToGateway(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/ws")

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

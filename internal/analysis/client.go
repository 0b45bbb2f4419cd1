package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pscheid92/biomarkerpulse/internal/metrics"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	breakerName             = "analysis"
	breakerOpenTimeout      = 30 * time.Second
	breakerFailureThreshold = 5
	healthTimeout           = 3 * time.Second
)

// ErrCircuitOpen is returned while the circuit breaker rejects calls.
var ErrCircuitOpen = errors.New("analysis service circuit open")

// ToolError reports a tool call the analysis service answered with a failure.
type ToolError struct {
	Tool       string
	StatusCode int
	Message    string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed with status %d: %s", e.Tool, e.StatusCode, e.Message)
}

// Client calls the analysis tool service.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	flights singleflight.Group
}

// NewClient creates a client for the service at baseURL. timeout bounds a whole
// comprehensive analysis as well as each single request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 1,
			Timeout:     breakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailureThreshold
			},
			IsSuccessful:  isBreakerSuccess,
			OnStateChange: onBreakerStateChange,
		}),
	}
}

// isBreakerSuccess counts only failures that point at an unhealthy service:
// transport errors and 5xx answers. Caller cancellations and 4xx are not held against it.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.StatusCode < http.StatusInternalServerError
	}
	return false
}

func onBreakerStateChange(name string, from, to gobreaker.State) {
	slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
	metrics.CircuitBreakerStateChanges.WithLabelValues(name, to.String()).Inc()

	value := -1.0
	switch to {
	case gobreaker.StateClosed:
		value = 0
	case gobreaker.StateHalfOpen:
		value = 1
	case gobreaker.StateOpen:
		value = 2
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(value)
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

// Health reports whether the service answers its info endpoint with a 2xx.
// It bypasses the circuit breaker so it can observe recovery.
func (c *Client) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "Analysis service health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Comprehensive runs every tool concurrently and fails if any of them fails.
// Concurrent calls for the same patient share one flight, which runs under its own
// timeout so one caller going away does not fail the others.
func (c *Client) Comprehensive(ctx context.Context, args PatientArgs) (Comprehensive, error) {
	v, err, shared := c.flights.Do(args.PatientID, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.runAll(flightCtx, args)
	})
	if shared {
		slog.DebugContext(ctx, "Joined in-flight analysis", "patient_id", args.PatientID)
	}
	if err != nil {
		return Comprehensive{}, err
	}
	return v.(Comprehensive), nil
}

func (c *Client) runAll(ctx context.Context, args PatientArgs) (Comprehensive, error) {
	results := make([]json.RawMessage, len(Tools))

	g, gctx := errgroup.WithContext(ctx)
	for i, tool := range Tools {
		g.Go(func() error {
			raw, err := c.CallTool(gctx, tool.Name, args)
			if err != nil {
				return err
			}
			results[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Comprehensive{}, err
	}

	return Comprehensive{
		AnalyzeBiomarkers:           results[0],
		SuggestMonitoringPriorities: results[1],
		GenerateHealthSummary:       results[2],
	}, nil
}

// CallTool invokes one tool through the circuit breaker and returns its raw result.
func (c *Client) CallTool(ctx context.Context, tool string, args PatientArgs) (json.RawMessage, error) {
	start := time.Now()
	out, err := c.cb.Execute(func() (any, error) {
		return c.doCall(ctx, tool, args)
	})

	status := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = "circuit_open"
		err = fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	case err != nil:
		status = "error"
	}
	metrics.AnalysisRequestsTotal.WithLabelValues(tool, status).Inc()
	metrics.AnalysisRequestDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return out.(json.RawMessage), nil
}

func (c *Client) doCall(ctx context.Context, tool string, args PatientArgs) (json.RawMessage, error) {
	body, err := json.Marshal(ToolRequest{ToolName: tool, Args: args})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", tool, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tool", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", tool, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", tool, err)
	}
	defer resp.Body.Close()

	var tr ToolResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&tr)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := tr.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ToolError{Tool: tool, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &ToolError{Tool: tool, StatusCode: http.StatusBadGateway, Message: "malformed response: " + decodeErr.Error()}
	}
	if !tr.Success {
		msg := tr.Error
		if msg == "" {
			msg = "analysis service returned error"
		}
		return nil, &ToolError{Tool: tool, StatusCode: resp.StatusCode, Message: msg}
	}
	return tr.Result, nil
}

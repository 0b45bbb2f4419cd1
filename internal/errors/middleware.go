package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPErrorsTotal tracks HTTP errors by type
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total HTTP errors by error type",
		},
		[]string{"type"},
	)
)

// Middleware returns an Echo middleware that renders handler errors as
// {"success": false, "error": msg} with the matching status code.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			if c.Response().Committed {
				return err
			}

			// Echo errors (router 404/405, body binding) keep their status code.
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				structuredErr := WrapHTTPError(httpErr)
				HTTPErrorsTotal.WithLabelValues(string(structuredErr.Type)).Inc()
				logError(c, structuredErr, httpErr.Code)
				return writeResponse(c, httpErr.Code, structuredErr)
			}

			structuredErr := AsStructuredError(err)
			HTTPErrorsTotal.WithLabelValues(string(structuredErr.Type)).Inc()
			logError(c, structuredErr, structuredErr.HTTPStatus())
			return writeResponse(c, structuredErr.HTTPStatus(), structuredErr)
		}
	}
}

func writeResponse(c echo.Context, status int, err *Error) error {
	if writeErr := c.JSON(status, err.ToResponse()); writeErr != nil {
		return fmt.Errorf("failed to write error response: %w", writeErr)
	}
	return nil
}

func logError(c echo.Context, err *Error, status int) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", status,
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if patientID := c.Param("id"); patientID != "" {
		attrs = append(attrs, "patient_id", patientID)
	} else if patientID := c.Param("patientId"); patientID != "" {
		attrs = append(attrs, "patient_id", patientID)
	}

	switch err.Type {
	case TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case TypeRateLimited:
		slog.WarnContext(ctx, "Rate limited", attrs...)
	case TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case TypeExternal, TypeUnavailable:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

// WrapHTTPError converts Echo's HTTPError to a structured error.
func WrapHTTPError(httpErr *echo.HTTPError) *Error {
	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok && msg != "" {
		message = msg
	}
	if message == "" {
		message = "internal server error"
	}

	var errType ErrorType
	switch {
	case httpErr.Code == http.StatusTooManyRequests:
		errType = TypeRateLimited
	case httpErr.Code == http.StatusNotFound:
		errType = TypeNotFound
	case httpErr.Code == http.StatusBadGateway:
		errType = TypeExternal
	case httpErr.Code == http.StatusServiceUnavailable:
		errType = TypeUnavailable
	case httpErr.Code >= 400 && httpErr.Code < 500:
		errType = TypeValidation
	default:
		errType = TypeInternal
	}

	err := newError(errType, message, nil)
	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}
	return err
}

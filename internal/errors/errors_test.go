package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	cause := fmt.Errorf("connection refused")

	tests := []struct {
		name       string
		err        *Error
		wantType   ErrorType
		wantStatus int
		wantCause  error
	}{
		{"validation", ValidationError("invalid category"), TypeValidation, http.StatusBadRequest, nil},
		{"not found", NotFoundError("Patient not found"), TypeNotFound, http.StatusNotFound, nil},
		{"rate limited", RateLimitedError("too many requests"), TypeRateLimited, http.StatusTooManyRequests, nil},
		{"internal", InternalError("failed to list patients", cause), TypeInternal, http.StatusInternalServerError, cause},
		{"external", ExternalError("analysis service failed", cause), TypeExternal, http.StatusBadGateway, cause},
		{"unavailable", UnavailableError("redis not ready", cause), TypeUnavailable, http.StatusServiceUnavailable, cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus())
			assert.Equal(t, tt.wantCause, tt.err.Cause)
			assert.NotNil(t, tt.err.Context)
			assert.Contains(t, tt.err.Error(), string(tt.wantType))
			assert.Contains(t, tt.err.Error(), tt.err.Message)
		})
	}
}

func TestHTTPStatusUnknownType(t *testing.T) {
	err := &Error{Type: ErrorType("unknown")}
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
}

func TestErrorStringWithoutCause(t *testing.T) {
	err := InternalError("something went wrong", nil)

	assert.Nil(t, err.Cause)
	assert.NotContains(t, err.Error(), "<nil>")
}

func TestWithContextChaining(t *testing.T) {
	err := ValidationError("invalid category").
		WithContext("category", "renal").
		WithContext("patient_id", "p-1")

	assert.Len(t, err.Context, 2)
	assert.Equal(t, "renal", err.Context["category"])
	assert.Equal(t, "p-1", err.Context["patient_id"])
}

func TestWithContextNilMap(t *testing.T) {
	err := &Error{Type: TypeValidation, Message: "test"}

	err = err.WithContext("key", "value")

	assert.Equal(t, "value", err.Context["key"])
}

func TestToResponse(t *testing.T) {
	resp := NotFoundError("Patient not found").ToResponse()

	assert.False(t, resp.Success)
	assert.Equal(t, "Patient not found", resp.Error)
	assert.Empty(t, resp.Context)
}

func TestUnwrapAndIs(t *testing.T) {
	rootCause := fmt.Errorf("root")
	wrapped := InternalError("wrapped", rootCause)

	assert.Equal(t, rootCause, errors.Unwrap(wrapped))
	assert.True(t, errors.Is(wrapped, rootCause))
	assert.Nil(t, errors.Unwrap(ValidationError("test")))
}

func TestAsStructuredError(t *testing.T) {
	t.Run("structured error unchanged", func(t *testing.T) {
		original := ValidationError("original")
		assert.Same(t, original, AsStructuredError(original))
	})

	t.Run("standard error becomes internal", func(t *testing.T) {
		original := fmt.Errorf("standard error")
		result := AsStructuredError(original)

		require.NotNil(t, result)
		assert.Equal(t, TypeInternal, result.Type)
		assert.Equal(t, "internal server error", result.Message)
		assert.Equal(t, original, result.Cause)
	})

	t.Run("wrapped structured error is found", func(t *testing.T) {
		wrapped := fmt.Errorf("handler: %w", NotFoundError("Patient not found"))
		result := AsStructuredError(wrapped)

		require.NotNil(t, result)
		assert.Equal(t, TypeNotFound, result.Type)
		assert.Equal(t, "Patient not found", result.Message)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, AsStructuredError(nil))
	})
}

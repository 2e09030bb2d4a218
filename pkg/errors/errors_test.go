package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrUnauthorized,
		ErrForbidden, ErrInternal, ErrConflict, ErrServiceUnavail, ErrGone,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j])
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	withInner := &AppError{Code: "INTERNAL_ERROR", Message: "load failed", Err: fmt.Errorf("conn reset")}
	assert.Equal(t, "INTERNAL_ERROR: load failed: conn reset", withInner.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "profile not found"}
	assert.Equal(t, "NOT_FOUND: profile not found", bare.Error())
}

func TestConstructors_WrapSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		sentinel error
		status   int
	}{
		{"not found", NotFound("stage", "s1"), ErrNotFound, http.StatusNotFound},
		{"already exists", AlreadyExists("profile", "user_id", "u1"), ErrAlreadyExists, http.StatusConflict},
		{"invalid input", InvalidInput("bad email"), ErrInvalidInput, http.StatusBadRequest},
		{"unauthorized", Unauthorized("no session"), ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden("recruiters only"), ErrForbidden, http.StatusForbidden},
		{"conflict", Conflict("candidate moved"), ErrConflict, http.StatusConflict},
		{"unavailable", ServiceUnavailable("identity down", nil), ErrServiceUnavail, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestServiceUnavailable_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := ServiceUnavailable("identity down", cause)

	assert.True(t, errors.Is(err, ErrServiceUnavail))
	assert.True(t, errors.Is(err, cause))
}

func TestHTTPStatus_WrappedSentinels(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("get profile: %w", ErrNotFound)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("move: %w", ErrConflict)))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(fmt.Errorf("sign in: %w", ErrServiceUnavail)))
	assert.Equal(t, http.StatusGone, HTTPStatus(fmt.Errorf("relay: %w", ErrGone)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("boom")))
}

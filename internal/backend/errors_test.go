package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/reelhunter/recruiter/pkg/errors"
	"github.com/reelhunter/recruiter/pkg/httpclient"
)

func TestKindOf(t *testing.T) {
	var syntaxErr *json.SyntaxError
	malformed := json.Unmarshal([]byte(`{"a":`), &struct{}{})
	require.ErrorAs(t, malformed, &syntaxErr)

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"no rows", pgx.ErrNoRows, KindNotFound},
		{"wrapped no rows", fmt.Errorf("get profile: %w", pgx.ErrNoRows), KindNotFound},
		{"recursive policy", &pgconn.PgError{Code: "42P17", Message: `infinite recursion detected in policy for relation "profiles"`}, KindPolicyRecursion},
		{"recursion by message", &pgconn.PgError{Code: "XX000", Message: "Infinite recursion detected"}, KindPolicyRecursion},
		{"rls denied", &pgconn.PgError{Code: "42501"}, KindPermissionDenied},
		{"unique", &pgconn.PgError{Code: "23505"}, KindConflict},
		{"fk", &pgconn.PgError{Code: "23503"}, KindValidation},
		{"rest jwt", &httpclient.ResponseError{Status: 401, Code: "PGRST301"}, KindPolicyRecursion},
		{"rest no rows", &httpclient.ResponseError{Status: 406, Code: "PGRST116"}, KindNotFound},
		{"auth 401", &httpclient.ResponseError{Status: 401, Code: "invalid_grant"}, KindUnauthenticated},
		{"auth 422", &httpclient.ResponseError{Status: 422}, KindValidation},
		{"upstream 503", &httpclient.ResponseError{Status: 503}, KindNetwork},
		{"breaker open", httpclient.ErrCircuitOpen, KindNetwork},
		{"deadline", context.DeadlineExceeded, KindNetwork},
		{"refused", errors.New("dial tcp 10.0.0.1:5432: connect: connection refused"), KindNetwork},
		{"malformed", malformed, KindMalformed},
		{"conflict sentinel", apperrors.Conflict("moved elsewhere"), KindConflict},
		{"invalid sentinel", apperrors.InvalidInput("bad stage"), KindValidation},
		{"other", errors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestClassify_WrapsOnce(t *testing.T) {
	assert.Nil(t, Classify("noop", nil))

	err := Classify("get profile", pgx.ErrNoRows)
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindNotFound, be.Kind)
	assert.Equal(t, "get profile", be.Op)
	assert.Equal(t, "not found", be.Message)

	again := Classify("outer", err)
	assert.Same(t, err, again)
}

func TestError_MatchesSentinelsAndCause(t *testing.T) {
	cause := &pgconn.PgError{Code: "23505"}
	err := Classify("place candidate", cause)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	var pgErr *pgconn.PgError
	assert.ErrorAs(t, err, &pgErr)
	assert.Equal(t, http.StatusConflict, apperrors.HTTPStatus(err))

	assert.ErrorIs(t, New(KindValidation, "move", "same stage"), apperrors.ErrInvalidInput)
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(New(KindUnknown, "x", "y")))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "policy_recursion", KindPolicyRecursion.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

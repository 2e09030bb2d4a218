package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	StageID  string `json:"stage_id,omitempty" validate:"omitempty,uuid"`
}

func TestValidate_Success(t *testing.T) {
	err := Validate(signInRequest{Email: "recruiter@example.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(signInRequest{Email: "nope", Password: "x", StageID: "s1"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 6 characters", fields["password"])
	assert.Equal(t, "must be a valid UUID", fields["stage_id"])
	assert.Contains(t, valErr.Error(), "field 'email'")
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("email", "john.smith@example.com"))
	assert.NoError(t, Email("email", "  john.smith@example.com "))

	err := Email("email", "john.smith@")
	require.Error(t, err)
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, map[string]string{"email": "must be a valid email address"}, fieldErr.Fields())

	err = Email("email", "")
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "is required", fieldErr.Message)
}

func TestDecodeAndValidate(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.co","password":"secret1"}`))
	var req signInRequest
	require.NoError(t, DecodeAndValidate(r, &req))
	assert.Equal(t, "a@b.co", req.Email)

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{bad`))
	err := DecodeAndValidate(r, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

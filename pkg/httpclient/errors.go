package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/reelhunter/recruiter/pkg/errors"
)

// ResponseError is a non-2xx answer from an upstream. Code carries the
// upstream's machine-readable code when the body had one.
type ResponseError struct {
	Service string
	Status  int
	Code    string
	Message string
}

func (e *ResponseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s returned %d (%s): %s", e.Service, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.Status, e.Message)
}

// Unwrap maps the status onto the shared sentinels.
func (e *ResponseError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return apperrors.ErrNotFound
	case e.Status == http.StatusBadRequest, e.Status == http.StatusUnprocessableEntity:
		return apperrors.ErrInvalidInput
	case e.Status == http.StatusConflict:
		return apperrors.ErrConflict
	case e.Status == http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return apperrors.ErrForbidden
	case e.Status == http.StatusGone:
		return apperrors.ErrGone
	case e.Status == http.StatusTooManyRequests, e.Status >= 500:
		return apperrors.ErrServiceUnavail
	default:
		return nil
	}
}

// errorBody covers the error shapes hosted backends answer with:
// {"error":{"code","message"}}, {"error":"x","error_description":"y"},
// {"code":400,"msg":"y"} and {"code":"PGRST301","message":"y"}.
type errorBody struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
}

// ParseResponseError consumes and closes resp.Body and converts the
// response into a *ResponseError.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &ResponseError{Service: service, Status: resp.StatusCode, Message: "unreadable body: " + err.Error()}
	}

	re := &ResponseError{Service: service, Status: resp.StatusCode}

	var body errorBody
	if json.Unmarshal(raw, &body) != nil {
		re.Message = strings.TrimSpace(string(raw))
		if re.Message == "" {
			re.Message = http.StatusText(resp.StatusCode)
		}
		return re
	}

	var nested struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	var flat string
	switch {
	case len(body.Error) > 0 && json.Unmarshal(body.Error, &nested) == nil:
		re.Code, re.Message = nested.Code, nested.Message
	case len(body.Error) > 0 && json.Unmarshal(body.Error, &flat) == nil:
		re.Code, re.Message = flat, body.ErrorDescription
	}

	if re.Code == "" {
		re.Code = body.ErrorCode
	}
	if re.Code == "" {
		re.Code = rawCode(body.Code)
	}
	for _, m := range []string{body.Message, body.Msg, body.ErrorDescription} {
		if re.Message == "" {
			re.Message = m
		}
	}
	if re.Message == "" {
		re.Message = http.StatusText(resp.StatusCode)
	}
	return re
}

// rawCode accepts both string and numeric "code" fields.
func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n int
	if json.Unmarshal(raw, &n) == nil {
		return strconv.Itoa(n)
	}
	return ""
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}

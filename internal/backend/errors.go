// Package backend classifies raw errors from the hosted store and identity
// provider into a closed set of kinds. Callers branch on Kind and never
// inspect codes or messages themselves.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reelhunter/recruiter/pkg/database"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
	"github.com/reelhunter/recruiter/pkg/httpclient"
)

// Kind is the class of a backend failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindPolicyRecursion
	KindPermissionDenied
	KindNotFound
	KindConflict
	KindValidation
	KindMalformed
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindPolicyRecursion:
		return "policy_recursion"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindMalformed:
		return "malformed"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Postgres and REST codes the classifier understands.
const (
	pgInfiniteRecursion   = "42P17"
	pgInsufficientPriv    = "42501"
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgInvalidText         = "22P02"
	restJWTInvalid        = "PGRST301"
	restNoRows            = "PGRST116"
)

// ErrMalformed marks a response that decoded but lacks required fields.
var ErrMalformed = errors.New("malformed backend response")

// Error is a classified backend failure with a message fit for users.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap exposes both the cause and the matching shared sentinel, so
// errors.Is works against either.
func (e *Error) Unwrap() []error {
	errs := []error{}
	if s := e.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindNotFound:
		return apperrors.ErrNotFound
	case KindConflict:
		return apperrors.ErrConflict
	case KindValidation:
		return apperrors.ErrInvalidInput
	case KindPermissionDenied, KindPolicyRecursion:
		return apperrors.ErrForbidden
	case KindUnauthenticated:
		return apperrors.ErrUnauthorized
	case KindNetwork:
		return apperrors.ErrServiceUnavail
	default:
		return nil
	}
}

// New builds a classified error directly.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// KindOf returns the kind of err, classifying it if needed. nil has
// KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return classify(err)
}

// Classify wraps err with its kind and a readable message. A nil err
// returns nil; an already classified error is returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	kind := classify(err)
	return &Error{Kind: kind, Op: op, Message: message(kind), Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
		return KindNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, httpclient.ErrCircuitOpen) {
		return KindNetwork
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return kindForCode(pgErr.Code, pgErr.Message)
	}

	var re *httpclient.ResponseError
	if errors.As(err, &re) {
		if k := kindForCode(re.Code, re.Message); k != KindUnknown {
			return k
		}
		switch {
		case re.Status == 401:
			return KindUnauthenticated
		case re.Status == 403:
			return KindPermissionDenied
		case re.Status == 404:
			return KindNotFound
		case re.Status == 409:
			return KindConflict
		case re.Status == 400, re.Status == 422:
			return KindValidation
		case re.Status == 429, re.Status >= 500:
			return KindNetwork
		}
		return KindUnknown
	}

	switch {
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, apperrors.ErrInvalidInput):
		return KindValidation
	case errors.Is(err, apperrors.ErrForbidden):
		return KindPermissionDenied
	case errors.Is(err, apperrors.ErrUnauthorized):
		return KindUnauthenticated
	case errors.Is(err, apperrors.ErrServiceUnavail):
		return KindNetwork
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.Is(err, ErrMalformed) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindMalformed
	}

	if database.IsConnectionError(err) {
		return KindNetwork
	}
	return KindUnknown
}

func kindForCode(code, msg string) Kind {
	switch code {
	case pgInfiniteRecursion:
		return KindPolicyRecursion
	case pgInsufficientPriv:
		return KindPermissionDenied
	case pgUniqueViolation:
		return KindConflict
	case pgForeignKeyViolation, pgCheckViolation, pgInvalidText:
		return KindValidation
	case restJWTInvalid:
		return KindPolicyRecursion
	case restNoRows:
		return KindNotFound
	}
	// The hosted REST layer reports recursive policies without a stable code.
	if strings.Contains(strings.ToLower(msg), "infinite recursion") {
		return KindPolicyRecursion
	}
	return KindUnknown
}

func message(k Kind) string {
	switch k {
	case KindNetwork:
		return "the backend could not be reached, please try again"
	case KindPolicyRecursion:
		return "access policy misconfigured on the backend"
	case KindPermissionDenied:
		return "not allowed by access policy"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "the record changed or already exists"
	case KindValidation:
		return "the request was rejected as invalid"
	case KindMalformed:
		return "the backend returned a malformed response"
	case KindUnauthenticated:
		return "authentication required"
	default:
		return "unexpected backend error"
	}
}

// Package errors defines the error taxonomy shared by the services and the
// transport layer. Callers match with errors.Is; Code maps an error to the
// stable machine-readable code returned to API clients.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrUnauthenticated    = fmt.Errorf("unauthenticated")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrForbidden          = fmt.Errorf("forbidden")
	ErrRoleMismatch       = fmt.Errorf("account does not exist with this role")
	ErrNotFound           = fmt.Errorf("not found")
	ErrConflict           = fmt.Errorf("conflict")

	ErrDuplicateEmail       = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrDuplicateName        = fmt.Errorf("%w: company already exists", ErrConflict)
	ErrDuplicateApplication = fmt.Errorf("%w: already applied for this job", ErrConflict)
	ErrInvalidTransition    = fmt.Errorf("%w: status transition not allowed", ErrConflict)
)

// Code values returned in error payloads.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeRoleMismatch       = "ROLE_MISMATCH"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeInternal           = "INTERNAL"
)

// Code returns the stable code for err. Unknown errors are INTERNAL.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	case errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrRoleMismatch):
		return CodeRoleMismatch
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodeInternal
	}
}

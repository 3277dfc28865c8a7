package models

import (
	"errors"

	"github.com/afo-asso/membership-api/pkg/auth"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Workflow state errors
	ErrAlreadyProcessed     = errors.New("request already processed")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrConfirmationRequired = errors.New("confirmation required")

	// Password reset errors; the messages must stay distinguishable so the
	// client can tell an expired code from a wrong one.
	ErrResetCodeExpired = errors.New("reset code has expired")
	ErrResetCodeInvalid = errors.New("reset code is invalid")

	// Same value the credential package returns, so errors.Is matches
	// regardless of which layer produced it.
	ErrPasswordTooShort = auth.ErrPasswordTooShort
)

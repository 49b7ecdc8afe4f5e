// Package common defines shared constants and sentinel errors used across
// client and server layers of shopkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")

	// Auth domain errors surfaced to the caller.
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Token/session errors. These are absorbed as "no session" on the client.
	ErrTokenExpiredOrInvalid = errors.New("token expired or invalid")
	ErrStorageCorrupt        = errors.New("storage corrupt")

	// Remote-mode transport errors.
	ErrNetworkFailure = errors.New("network failure")
)

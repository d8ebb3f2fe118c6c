// Package common defines shared constants and sentinel errors used across
// the cadete server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")
	ErrTransient  = errors.New("temporarily unavailable")

	// ErrorUnauthorized means the caller has no valid identity (no session,
	// expired session, bad credentials).
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the identity is known but does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation wraps missing or malformed input; the wrapping message
	// names the offending field.
	ErrValidation = errors.New("validation error")

	// Session token errors.
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrSessionExpired  = errors.New("session expired")
	ErrStorageNotReady = errors.New("object storage is not configured")
)

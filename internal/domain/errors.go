package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrNotOnboarded covers both unknown and not-yet-onboarded phone numbers.
	// Callers only ever see the generic message.
	ErrNotOnboarded = errors.New("number not active")
	// ErrInvalidOrExpired is returned for wrong, expired, reused and unknown codes alike.
	ErrInvalidOrExpired = errors.New("invalid or expired code")
	// ErrTransport reports a failed call to the messaging transport.
	ErrTransport = errors.New("transport failure")
)

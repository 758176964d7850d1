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

	// Verification failures. Both map to unauthorized at the HTTP layer but
	// carry distinct messages so the client gets a helpful response.
	ErrCodeExpired  = errors.New("code expired")
	ErrCodeMismatch = errors.New("code mismatch")
)

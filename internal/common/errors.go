// Package common defines shared constants and sentinel errors used across
// relay components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Validation errors: a frame is missing required fields.
	ErrValidation = errors.New("validation error")

	// Routing errors.
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrSessionClosed     = errors.New("session closed")

	// Audit errors; never surfaced to clients.
	ErrSinkUnavailable = errors.New("audit sink unavailable")

	// Wire errors.
	ErrUnknownEvent   = errors.New("unknown event")
	ErrMalformedFrame = errors.New("malformed frame")

	// Operator auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)

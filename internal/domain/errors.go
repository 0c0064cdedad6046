package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrBadRequest    = errors.New("bad request")
	ErrValidation    = errors.New("validation failed")
	ErrNotConfigured = errors.New("not configured")
	ErrUnavailable   = errors.New("dependency unavailable")
)

// Identity verification failures. Each wraps ErrUnauthorized.
var (
	ErrMalformedCredential = fmt.Errorf("malformed init data: %w", ErrUnauthorized)
	ErrMissingSignature    = fmt.Errorf("init data hash missing: %w", ErrUnauthorized)
	ErrSignatureMismatch   = fmt.Errorf("init data hash mismatch: %w", ErrUnauthorized)
	ErrMissingTimestamp    = fmt.Errorf("auth_date missing or invalid: %w", ErrUnauthorized)
	ErrCredentialExpired   = fmt.Errorf("init data is too old: %w", ErrUnauthorized)
	ErrMissingUser         = fmt.Errorf("user missing or invalid: %w", ErrUnauthorized)
)

// ErrIncompleteSubmission is returned when discipline or mode is unset at commit time.
var ErrIncompleteSubmission = fmt.Errorf("discipline and mode are required: %w", ErrValidation)

// Rule violation reason codes.
const (
	ReasonIncomplete         = "incomplete-submission"
	ReasonFC26IndividualOnly = "fc26-individual-only"
	ReasonInvalidMode        = "invalid-mode"
)

// RuleViolation reports a discipline/mode business rule failure.
type RuleViolation struct {
	Reason string
}

func (e *RuleViolation) Error() string { return "rule violation: " + e.Reason }

func (e *RuleViolation) Unwrap() error { return ErrValidation }

// ValidationReason extracts the machine-readable reason code from a validation error.
func ValidationReason(err error) string {
	var rv *RuleViolation
	if errors.As(err, &rv) {
		return rv.Reason
	}
	if errors.Is(err, ErrIncompleteSubmission) {
		return ReasonIncomplete
	}
	return ""
}

// Package domainerrors provides coded errors for surfacing domain outcomes
// across service and transport boundaries. Stores report infrastructure
// facts via pkg/platform/sentinel; services translate those facts into the
// coded errors defined here, and handlers map codes onto HTTP statuses.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error. Codes are stable API surface: they appear
// verbatim in error envelopes and logs.
type Code string

const (
	// Ledger outcomes. Each rejected mutation names exactly one of these;
	// there is no generic failure path for a validation miss.
	CodeInvalidAddress  Code = "invalid_address"
	CodeEmptyString     Code = "empty_string"
	CodeItemNotFound    Code = "item_not_found"
	CodeDuplicateRealID Code = "duplicate_real_id"
	CodeNotCurrentOwner Code = "not_current_owner"
	CodeItemFinalized   Code = "item_already_reached_final_recipient"

	// Ambient codes shared with non-ledger surfaces.
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_error"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeConflict           Code = "conflict"
	CodeNotFound           Code = "not_found"
	CodeRateLimited        Code = "rate_limited"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// DomainError carries a code, a human-readable message, and an optional
// wrapped cause.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// New constructs a coded error with no underlying cause.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// CodeOf extracts the outermost code in the chain.
func CodeOf(err error) (Code, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// MessageOf extracts the outermost coded message, falling back to Error().
func MessageOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// ToHTTPStatus maps a code onto the HTTP status a handler should emit.
// Unknown codes map to 500 so new codes fail loudly rather than leaking 200s.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidAddress, CodeEmptyString, CodeInvalidInput, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeItemNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateRealID, CodeConflict, CodeNotCurrentOwner, CodeItemFinalized:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

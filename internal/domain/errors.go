package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed request, naming the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Kind string // "session", "lineage", "view"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NewNotFoundError builds a NotFoundError for an entity.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// PolicyError reports a mutation blocked by the access policy.
type PolicyError struct {
	Action string
	Reason string
}

func (e *PolicyError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s blocked by policy", e.Action)
	}
	return fmt.Sprintf("%s blocked by policy: %s", e.Action, e.Reason)
}

// Storage failure sentinels. Store implementations wrap these so callers can
// classify failures with errors.Is without knowing the backend.
var (
	ErrStorageTimeout     = errors.New("storage operation timed out")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRetryable reports whether err is a transient storage failure that an
// idempotent read may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageTimeout) || errors.Is(err, ErrStorageUnavailable)
}

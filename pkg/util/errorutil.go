package util

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Error codes for the core taxonomy.
const (
	CodeValidation   = "VALIDATION_FAILED"
	CodeNotFound     = "NOT_FOUND"
	CodeCollaborator = "COLLABORATOR_FAILED"
	CodeInternal     = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, Details: details}
}

// NewValidationError flags malformed input: unknown enum values, an
// assignee that is not a PIC, missing required fields.
func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, details)
}

// NewNotFound flags operations referencing an unknown ticket or identity.
func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: details,
	}
}

// NewCollaboratorError wraps a failed or timed-out remote call. It is
// always converted to a fallback value at the boundary where the call
// is made and never escapes into lifecycle or monitor logic.
func NewCollaboratorError(err error) error {
	return &DomainError{
		Code:    CodeCollaborator,
		Message: "collaborator call failed",
		Err:     err,
	}
}

// NewInternalError wraps unexpected failures.
func NewInternalError(err error) error {
	return &DomainError{
		Code:    CodeInternal,
		Message: "internal error",
		Err:     err,
	}
}

// IsValidation reports whether err carries the validation code.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsNotFound reports whether err carries the not-found code.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsCollaborator reports whether err carries the collaborator code.
func IsCollaborator(err error) bool {
	return hasCode(err, CodeCollaborator)
}

func hasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// MapError converts generic errors to DomainError. pgx row misses become
// not-found; anything unrecognized is internal.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil)
	}
	return NewInternalError(err)
}

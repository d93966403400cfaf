package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound             = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput         = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState         = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrValidation           = NewDomainError("VALIDATION_ERROR", "Validation failed")
	ErrReferentialIntegrity = NewDomainError("REFERENTIAL_INTEGRITY", "Referenced entity is missing or still in use")
	ErrOverflow             = NewDomainError("NUMERIC_OVERFLOW", "Value exceeds the representable digit range")
	ErrDuplicate            = NewDomainError("DUPLICATE", "Resource already exists")
	ErrOperational          = NewDomainError("OPERATIONAL_ERROR", "The operation could not be completed")
)

// ValidationError is a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a validation error for the given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ReferentialIntegrityError is returned when a computation references a
// missing parent or when a referenced entity cannot be deleted.
type ReferentialIntegrityError struct {
	Entity    string
	ID        uuid.UUID
	Reference string
}

// NewReferentialIntegrityError creates a referential integrity error
func NewReferentialIntegrityError(entity string, id uuid.UUID, reference string) *ReferentialIntegrityError {
	return &ReferentialIntegrityError{Entity: entity, ID: id, Reference: reference}
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Reference)
}

// Is reports whether target is ErrReferentialIntegrity
func (e *ReferentialIntegrityError) Is(target error) bool {
	return target == ErrReferentialIntegrity
}

// OverflowError is returned when a value does not fit its field's digit range.
type OverflowError struct {
	Field     string
	Value     decimal.Decimal
	MaxDigits int32
	Places    int32
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s: value %s does not fit DECIMAL(%d,%d)", e.Field, e.Value.String(), e.MaxDigits, e.Places)
}

// Is reports whether target is ErrOverflow
func (e *OverflowError) Is(target error) bool {
	return target == ErrOverflow
}

// DuplicateError is returned when a unique combination already exists.
type DuplicateError struct {
	Entity string
	Key    string
}

// NewDuplicateError creates a duplicate error
func NewDuplicateError(entity, key string) *DuplicateError {
	return &DuplicateError{Entity: entity, Key: key}
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with %s already exists", e.Entity, e.Key)
}

// Is reports whether target is ErrDuplicate
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// OperationalError wraps an unexpected failure (I/O, storage). Its message
// is never shown to end users.
type OperationalError struct {
	Op  string
	Err error
}

// NewOperationalError wraps err as an operational failure of op
func NewOperationalError(op string, err error) *OperationalError {
	return &OperationalError{Op: op, Err: err}
}

func (e *OperationalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationalError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrOperational
func (e *OperationalError) Is(target error) bool {
	return target == ErrOperational
}

// IsExpected reports whether err belongs to the handled part of the
// taxonomy (validation, duplicate, referential integrity, overflow, not found).
func IsExpected(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrReferentialIntegrity) ||
		errors.Is(err, ErrOverflow) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput)
}

// PublicMessage returns a message that is safe to show to an end user.
// Unexpected errors collapse to a generic text.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsExpected(err) && !errors.Is(err, ErrOperational) {
		return err.Error()
	}
	return ErrOperational.Message
}

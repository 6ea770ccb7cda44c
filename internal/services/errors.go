package services

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError is a single invalid field within a ValidationError.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError represents one or more invalid input fields
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return strings.Join(parts, "; ")
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add appends another invalid field.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// HasErrors reports whether any field failed validation.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) (*ValidationError, bool) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr, true
	}
	return nil, false
}

// NotFoundError represents a missing resource
type NotFoundError struct {
	Resource string `json:"resource"`
	Message  string `json:"message"`
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// IsNotFoundError checks if an error is a NotFoundError
func IsNotFoundError(err error) (*NotFoundError, bool) {
	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return notFoundErr, true
	}
	return nil, false
}

// ConflictError represents a resource conflict or violated business rule
type ConflictError struct {
	Resource string `json:"resource"`
	Message  string `json:"message"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Message)
}

// NewConflictError creates a new conflict error
func NewConflictError(resource, message string) *ConflictError {
	return &ConflictError{
		Resource: resource,
		Message:  message,
	}
}

// IsConflictError checks if an error is a ConflictError
func IsConflictError(err error) (*ConflictError, bool) {
	var conflictErr *ConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr, true
	}
	return nil, false
}

// UnauthorizedError represents a missing or unusable identity
type UnauthorizedError struct {
	Message string `json:"message"`
}

func (e *UnauthorizedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

// IsUnauthorizedError checks if an error is an UnauthorizedError
func IsUnauthorizedError(err error) (*UnauthorizedError, bool) {
	var unauthorizedErr *UnauthorizedError
	if errors.As(err, &unauthorizedErr) {
		return unauthorizedErr, true
	}
	return nil, false
}

// LimitExceededError is returned when an operation would push an
// organization past its subscription plan limit.
type LimitExceededError struct {
	LimitType string `json:"limit_type"`
	Current   int64  `json:"current"`
	Limit     int    `json:"limit"`
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit reached (%d of %d). Upgrade your plan to add more.", e.LimitType, e.Current, e.Limit)
}

// NewLimitExceededError creates a new limit exceeded error
func NewLimitExceededError(limitType string, current int64, limit int) *LimitExceededError {
	return &LimitExceededError{LimitType: limitType, Current: current, Limit: limit}
}

// IsLimitExceededError checks if an error is a LimitExceededError
func IsLimitExceededError(err error) (*LimitExceededError, bool) {
	var limitErr *LimitExceededError
	if errors.As(err, &limitErr) {
		return limitErr, true
	}
	return nil, false
}

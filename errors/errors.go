/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a schema, record or archive file does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a schema entry or an argument fails validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownKind is returned when a schema entry names a feature kind that is not registered
	ErrUnknownKind = errors.New("unknown feature kind")

	// ErrExhausted is returned when an iterator has no more elements
	ErrExhausted = errors.New("end of sequence")

	// ErrMissingValue is returned when a feed value required by a feature is absent
	ErrMissingValue = errors.New("missing value")

	// ErrShapeMismatch is returned when a value does not match a declared dtype or shape
	ErrShapeMismatch = errors.New("shape mismatch")
)

// NotFoundError represents an error when a file or entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// UnknownKindError is returned when a feature kind cannot be resolved
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("feature kind %q is not registered", e.Kind)
}

func (e *UnknownKindError) Is(target error) bool {
	return target == ErrUnknownKind
}

// ExhaustedError reports an iterator that ran dry before a batch was complete
type ExhaustedError struct {
	Requested int
	Received  int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("end of sequence after %d of %d samples", e.Received, e.Requested)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// MissingValueError is returned when a feature's raw value was not supplied
type MissingValueError struct {
	Feature string
	Key     string
}

func (e *MissingValueError) Error() string {
	if e.Feature != "" && e.Feature != e.Key {
		return fmt.Sprintf("feature %q: missing value for %q", e.Feature, e.Key)
	}
	return fmt.Sprintf("missing value for %q", e.Key)
}

func (e *MissingValueError) Is(target error) bool {
	return target == ErrMissingValue
}

// ShapeMismatchError reports a value that disagrees with its declared dtype or shape
type ShapeMismatchError struct {
	Name     string
	Expected string
	Actual   string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Name, e.Expected, e.Actual)
}

func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(kind, key string) error {
	return &NotFoundError{Type: kind, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewUnknownKindError creates a new UnknownKindError
func NewUnknownKindError(kind string) error {
	return &UnknownKindError{Kind: kind}
}

// NewExhaustedError creates a new ExhaustedError
func NewExhaustedError(requested, received int) error {
	return &ExhaustedError{Requested: requested, Received: received}
}

// NewMissingValueError creates a new MissingValueError
func NewMissingValueError(feature, key string) error {
	return &MissingValueError{Feature: feature, Key: key}
}

// NewShapeMismatchError creates a new ShapeMismatchError
func NewShapeMismatchError(name, expected, actual string) error {
	return &ShapeMismatchError{Name: name, Expected: expected, Actual: actual}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnknownKind checks if an error is an unknown feature kind error
func IsUnknownKind(err error) bool {
	return errors.Is(err, ErrUnknownKind)
}

// IsExhausted checks if an error signals the end of a sequence
func IsExhausted(err error) bool {
	return errors.Is(err, ErrExhausted)
}

// IsMissingValue checks if an error is a missing value error
func IsMissingValue(err error) bool {
	return errors.Is(err, ErrMissingValue)
}

// IsShapeMismatch checks if an error is a shape mismatch error
func IsShapeMismatch(err error) bool {
	return errors.Is(err, ErrShapeMismatch)
}

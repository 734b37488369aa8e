// Package errors provides the error taxonomy for the BankAtlas system.
// These errors enable programmatic error checking and decide how far a
// failure propagates: everything below the orchestrator is caught, logged,
// and converted into a per-item outcome; only orchestration errors reach
// the caller.
package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's chain matches target.
// It's an alias for the standard library errors.Is.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// It's an alias for the standard library errors.As.
var As = errors.As

// Common sentinel errors.
var (
	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a record already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAmbiguousMatch indicates an observation could not be safely
	// matched to an existing entity.
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrStorage indicates a persistence failure.
	ErrStorage = errors.New("storage failure")

	// ErrRateLimited indicates a source rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = errors.New("operation canceled")

	// ErrReadOnly indicates an attempt to modify a read-only store.
	ErrReadOnly = errors.New("read only")
)

// ValidationError reports a malformed observation or invalid input. The
// engine skips the offending item, logs it, and continues.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// AmbiguousMatchError signals that an observation resembles an existing
// entity but could not be confirmed as the same real-world identity. It is
// non-fatal: the engine creates a flagged new entity instead of merging.
type AmbiguousMatchError struct {
	ObservationKey string // identity key the observation resolved to
	CandidateKey   string // existing entity it resembles
	Reason         string
}

// Error implements the error interface.
func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous match between %s and %s: %s", e.ObservationKey, e.CandidateKey, e.Reason)
}

// Is implements errors.Is support.
func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrAmbiguousMatch
}

// CollectorError reports a source-level collection failure. It is recorded
// per entity and never aborts a batch.
type CollectorError struct {
	Source     string
	EntityKey  string
	Operation  string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *CollectorError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("collector %s failed during %s (status %d): %v", e.Source, e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("collector %s failed during %s: %v", e.Source, e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *CollectorError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *CollectorError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	return false
}

// NewCollectorError creates a new CollectorError.
func NewCollectorError(source, entityKey, operation string, err error) *CollectorError {
	return &CollectorError{Source: source, EntityKey: entityKey, Operation: operation, Err: err}
}

// StorageError reports a persistence failure. It is fatal for the affected
// merge only; the engine retries once with backoff before surfacing it as
// a failed item outcome.
type StorageError struct {
	Operation string // "get", "upsert", "query", "append"
	Key       string
	Err       error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s failed for %s: %v", e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s failed: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// NewStorageError creates a new StorageError.
func NewStorageError(operation, key string, err error) *StorageError {
	return &StorageError{Operation: operation, Key: key, Err: err}
}

// OrchestrationError reports a configuration or setup failure that makes a
// whole batch unrunnable. It is the only error class that propagates out
// of the orchestrator.
type OrchestrationError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *OrchestrationError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("orchestration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("orchestration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *OrchestrationError) Unwrap() error {
	return e.Err
}

// NewOrchestrationError creates a new OrchestrationError.
func NewOrchestrationError(component, message string, err error) *OrchestrationError {
	return &OrchestrationError{Component: component, Message: message, Err: err}
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Resource string
	Key      string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %s not found", e.Resource, e.Key)
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

// TimeoutError reports an operation timeout.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Duration > 0 {
		return fmt.Sprintf("operation %s timed out after %s", e.Operation, e.Duration)
	}
	return fmt.Sprintf("operation %s timed out", e.Operation)
}

// Is implements errors.Is support.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Helper functions for error checking.

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsAmbiguousMatch checks if an error is an ambiguous-match signal.
func IsAmbiguousMatch(err error) bool {
	return errors.Is(err, ErrAmbiguousMatch)
}

// IsStorage checks if an error is a storage failure.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsRateLimited checks if an error is a rate-limit error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsCanceled checks if an error is a cancellation error.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

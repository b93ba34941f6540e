package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("credential not found")
	ErrAlreadyRedeemed = errors.New("credential already redeemed")
	ErrConflict        = errors.New("credential already exists")
	ErrEncoding        = errors.New("barcode encoding failed")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrRateLimited     = errors.New("too many requests")

	// Storage errors
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)

// ValidationError carries per-field messages for rejected input.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a message for field, keeping the first one reported.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) Empty() bool { return e == nil || len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// EncodingError reports why a barcode image could not be produced.
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrEncoding, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", ErrEncoding, e.Op, e.Err)
}

func (e *EncodingError) Unwrap() []error { return []error{ErrEncoding, e.Err} }

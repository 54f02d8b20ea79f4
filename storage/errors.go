package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
// Use errors.Is() to check for them.
var (
	// ErrNotFound is returned when a key doesn't exist. Callers should treat
	// it as a normal miss, not a failure.
	ErrNotFound = errors.New("storage: key not found")

	// ErrClosed is returned when using a store after Close.
	ErrClosed = errors.New("storage: closed")
)

// ConfigError reports invalid storage configuration. These errors are
// fail-fast and surface at construction time.
type ConfigError struct {
	Field   string // configuration field that failed validation
	Message string // human-readable error message
	Err     error  // underlying error, if any
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage configuration error: %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("storage configuration error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new configuration error.
func NewConfigError(field, message string, err error) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// ConnectionError reports a backend connection failure. These may be
// transient and worth retrying.
type ConnectionError struct {
	Op      string // operation that failed (e.g. "dial", "ping")
	Address string // backend address
	Err     error  // underlying error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("storage connection error: %s failed for %s: %v", e.Op, e.Address, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError creates a new connection error.
func NewConnectionError(op, address string, err error) *ConnectionError {
	return &ConnectionError{
		Op:      op,
		Address: address,
		Err:     err,
	}
}

// OperationError reports a failed store operation (Get, Set, Delete).
type OperationError struct {
	Op  string // operation that failed
	Key string // key involved in the operation
	Err error  // underlying error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("storage operation error: %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError creates a new operation error.
func NewOperationError(op, key string, err error) *OperationError {
	return &OperationError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

package logstore

import "fmt"

// StoreError reports a failed store operation.
type StoreError struct {
	Op    string // "open", "append", "read", "clear", "archive"
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("log store %s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

package router

import (
	"errors"
	"fmt"
)

// ErrInvalidRange indicates Low exceeds High.
var ErrInvalidRange = errors.New("invalid range")

// BindError is returned when the registry refuses a binding.
type BindError struct {
	Role  Role
	Range Range
	Err   error
}

// Error implements error.
func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s %s: %v", e.Role, e.Range, e.Err)
}

// Unwrap returns the registry error.
func (e *BindError) Unwrap() error {
	return e.Err
}

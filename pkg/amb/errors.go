package amb

import (
	"errors"
	"fmt"
)

var (
	// ErrTableFull indicates no more handlers can be registered.
	ErrTableFull = errors.New("callback table full")
	// ErrNotForNode indicates the frame is outside this node's address window.
	ErrNotForNode = errors.New("frame not addressed to this node")
)

// RangeError reports an invalid registration range.
type RangeError struct {
	Low, High uint32
}

// Error implements error.
func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range [0x%x, 0x%x]", e.Low, e.High)
}

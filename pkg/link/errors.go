package link

import (
	"errors"
	"fmt"
)

var (
	// ErrPeerTimeout indicates a phase countdown reached zero.
	ErrPeerTimeout = errors.New("peer timeout")
	// ErrProtocolViolation indicates the peer reported a reply length above 8.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrBusy indicates another transaction is in flight.
	ErrBusy = errors.New("transaction in flight")
)

// PhaseError tells which phase failed.
type PhaseError struct {
	Phase Phase
	Index int
	Err   error
}

// Error implements error.
func (e *PhaseError) Error() string {
	if e.Phase == PhasePayload {
		return fmt.Sprintf("%s[%d]: %v", e.Phase, e.Index, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

// Unwrap returns the cause.
func (e *PhaseError) Unwrap() error {
	return e.Err
}

// IsTimeout tells if err is a peer timeout or a protocol violation,
// which are handled the same way.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrPeerTimeout) || errors.Is(err, ErrProtocolViolation)
}

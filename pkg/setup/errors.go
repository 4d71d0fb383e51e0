package setup

import "errors"

var (
	// ErrNotReady indicates setup was requested before the peer is ready.
	ErrNotReady = errors.New("link not ready")
	// ErrAlreadyInitialized indicates ranges are already negotiated.
	ErrAlreadyInitialized = errors.New("already initialized")
	// ErrMalformedRequest indicates setup was requested with a control message.
	ErrMalformedRequest = errors.New("malformed setup request")
	// ErrRegistration indicates a negotiated range could not be bound.
	ErrRegistration = errors.New("range registration failed")
	// ErrReservedRange indicates a negotiated range lies within the reserved block.
	ErrReservedRange = errors.New("range within reserved block")
)

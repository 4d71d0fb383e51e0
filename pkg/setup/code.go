package setup

import (
	"fmt"

	"github.com/robotalks/ambsi.go/pkg/link"
)

// Code is the one byte reply of the setup request.
type Code byte

// Setup codes.
const (
	CodeOK                   Code = 0x00
	CodeSpecialMonitorFailed Code = 0x01
	CodeSpecialControlFailed Code = 0x02
	CodeMonitorFailed        Code = 0x03
	CodeControlFailed        Code = 0x04
	CodeAlreadyInitialized   Code = 0x05
	CodeNotReady             Code = 0x06
	CodePeerTimeout          Code = 0x07
)

// Err maps the code to an error, nil for CodeOK.
func (c Code) Err() error {
	switch c {
	case CodeOK:
		return nil
	case CodeSpecialMonitorFailed, CodeSpecialControlFailed, CodeMonitorFailed, CodeControlFailed:
		return fmt.Errorf("%w: range %d", ErrRegistration, byte(c))
	case CodeAlreadyInitialized:
		return ErrAlreadyInitialized
	case CodeNotReady:
		return ErrNotReady
	case CodePeerTimeout:
		return link.ErrPeerTimeout
	default:
		return fmt.Errorf("unknown setup code 0x%02x", byte(c))
	}
}

// String implements fmt.Stringer.
func (c Code) String() string {
	if c == CodeOK {
		return "ok"
	}
	return c.Err().Error()
}

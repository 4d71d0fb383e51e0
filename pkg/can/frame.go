// Package can provides CAN frames and frame transports.
package can

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame is a classical extended (29-bit) CAN data frame.
type Frame struct {
	ID   uint32
	Len  uint8
	Data [8]byte
}

// Frame limits and SocketCAN flags.
const (
	MaxID    uint32 = 0x1fffffff
	MaxLen          = 8
	FlagEFF  uint32 = 0x80000000
	FlagRTR  uint32 = 0x40000000
	FlagERR  uint32 = 0x20000000
	WireSize        = 16
)

var (
	// ErrInvalidID indicates the identifier exceeds 29 bits.
	ErrInvalidID = errors.New("invalid CAN identifier")
	// ErrInvalidLen indicates a data length above 8.
	ErrInvalidLen = errors.New("invalid CAN data length")
	// ErrShortFrame indicates the encoded frame is truncated.
	ErrShortFrame = errors.New("short CAN frame")
	// ErrMalformedFrame indicates the encoded frame can't be decoded.
	ErrMalformedFrame = errors.New("malformed CAN frame")
)

// IsMalformed tells if err is about the content of a single frame,
// the transport is still usable.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidLen) ||
		errors.Is(err, ErrShortFrame) ||
		errors.Is(err, ErrMalformedFrame)
}

// NewFrame creates a Frame, data beyond 8 bytes is rejected.
func NewFrame(id uint32, data ...byte) (Frame, error) {
	f := Frame{ID: id}
	if len(data) > MaxLen {
		return f, ErrInvalidLen
	}
	f.Len = uint8(copy(f.Data[:], data))
	return f, f.Validate()
}

// Payload returns the valid part of Data.
func (f Frame) Payload() []byte {
	if f.Len > MaxLen {
		return f.Data[:]
	}
	return f.Data[:f.Len]
}

// Validate checks identifier and length.
func (f Frame) Validate() error {
	if f.ID > MaxID {
		return ErrInvalidID
	}
	if f.Len > MaxLen {
		return ErrInvalidLen
	}
	return nil
}

// String implements fmt.Stringer.
func (f Frame) String() string {
	return fmt.Sprintf("%08x [%d] % x", f.ID, f.Len, f.Payload())
}

// MarshalBinary encodes the frame using the SocketCAN struct can_frame
// layout (little-endian can_id with EFF flag, dlc, 3 pad bytes, 8 data bytes).
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	b := make([]byte, WireSize)
	binary.LittleEndian.PutUint32(b[0:4], f.ID|FlagEFF)
	b[4] = f.Len
	copy(b[8:], f.Data[:f.Len])
	return b, nil
}

// UnmarshalBinary decodes the SocketCAN layout.
func (f *Frame) UnmarshalBinary(b []byte) error {
	if len(b) < WireSize {
		return ErrShortFrame
	}
	id := binary.LittleEndian.Uint32(b[0:4])
	if id&FlagEFF == 0 {
		id &= 0x7ff
	}
	frame := Frame{ID: id & MaxID, Len: b[4]}
	if frame.Len > MaxLen {
		return ErrInvalidLen
	}
	copy(frame.Data[:], b[8:8+frame.Len])
	*f = frame
	return nil
}

// FrameReader reads frames.
type FrameReader interface {
	ReadFrame() (Frame, error)
}

// FrameWriter writes frames.
type FrameWriter interface {
	WriteFrame(Frame) error
}

// ReadWriter reads/writes frames.
type ReadWriter interface {
	FrameReader
	FrameWriter
}

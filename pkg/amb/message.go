package amb

import "fmt"

// Direction tells whether a message is a monitor or a control request.
type Direction byte

// Directions
const (
	Monitor Direction = iota
	Control
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case Monitor:
		return "monitor"
	case Control:
		return "control"
	default:
		return fmt.Sprintf("direction(%d)", byte(d))
	}
}

// MaxPayload is the max payload size of a bus message.
const MaxPayload = 8

// Message is a bus request. Handlers mutate it in place to
// produce the reply of a monitor request.
type Message struct {
	Dir  Direction
	RCA  uint32
	Len  uint8
	Data [MaxPayload]byte
}

// Payload returns the valid part of Data.
func (m *Message) Payload() []byte {
	n := int(m.Len)
	if n > MaxPayload {
		n = MaxPayload
	}
	return m.Data[:n]
}

// SetPayload replaces the payload. Bytes beyond MaxPayload are dropped.
func (m *Message) SetPayload(data ...byte) {
	m.Len = uint8(copy(m.Data[:], data))
}

// IsValid checks the length bound.
func (m *Message) IsValid() bool {
	return m.Len <= MaxPayload
}

// String implements fmt.Stringer.
func (m *Message) String() string {
	return fmt.Sprintf("%s rca=0x%05x len=%d data=% x", m.Dir, m.RCA, m.Len, m.Payload())
}

// Handler processes a message.
type Handler interface {
	HandleMessage(*Message) error
}

// HandlerFunc is the func form of Handler.
type HandlerFunc func(*Message) error

// HandleMessage implements Handler.
func (f HandlerFunc) HandleMessage(msg *Message) error {
	return f(msg)
}

// Registry binds handlers to RCA ranges.
type Registry interface {
	// Register binds handler to the inclusive range [low, high].
	Register(low, high uint32, handler Handler) error
	// UnregisterLast undoes the most recent active registration.
	// It's a no-op when nothing is registered.
	UnregisterLast() error
}

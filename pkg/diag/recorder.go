// Package diag answers the diagnostic block with the phase timers of the
// most recent transactions and a status snapshot.
package diag

import (
	"encoding/binary"
	"errors"

	"github.com/robotalks/ambsi.go/pkg/amb"
	"github.com/robotalks/ambsi.go/pkg/link"
	"github.com/robotalks/ambsi.go/pkg/router"
)

// Addresses of the diagnostic block.
const (
	RCAMonitorTimers1 uint32 = 0x20010
	RCAMonitorTimers2 uint32 = 0x20011
	RCAControlTimers1 uint32 = 0x20012
	RCAControlTimers2 uint32 = 0x20013
	RCAStatus         uint32 = 0x20014
)

// Block is the diagnostic block.
var Block = router.Range{Low: RCAMonitorTimers1, High: RCAStatus}

// ErrShortReply indicates a diagnostic reply isn't 8 bytes.
var ErrShortReply = errors.New("diagnostic reply must be 8 bytes")

// Source provides the recorded timers and line state.
type Source interface {
	LastMonitorTimers() link.PhaseTimers
	LastControlTimers() link.PhaseTimers
	LineState() link.LineState
}

// Status is the link status snapshot.
type Status struct {
	Lines       byte
	Ready       bool
	Initialized bool
	Bindings    int
	SetupCode   byte
	Forwarded   uint32
}

// Link flag bits of Status.
const (
	FlagReady byte = 1 << iota
	FlagInitialized
)

// Encode returns the 8-byte status reply.
func (s Status) Encode() (b [8]byte) {
	b[0] = s.Lines
	if s.Ready {
		b[1] |= FlagReady
	}
	if s.Initialized {
		b[1] |= FlagInitialized
	}
	b[2] = byte(s.Bindings)
	b[3] = s.SetupCode
	binary.BigEndian.PutUint32(b[4:], s.Forwarded)
	return
}

// DecodeStatus decodes the status reply.
func DecodeStatus(b []byte) (s Status, err error) {
	if len(b) != 8 {
		return s, ErrShortReply
	}
	s.Lines = b[0]
	s.Ready = b[1]&FlagReady != 0
	s.Initialized = b[1]&FlagInitialized != 0
	s.Bindings = int(b[2])
	s.SetupCode = b[3]
	s.Forwarded = binary.BigEndian.Uint32(b[4:])
	return
}

// DecodeWords decodes a timers reply.
func DecodeWords(b []byte) (words [4]uint16, err error) {
	if len(b) != 8 {
		return words, ErrShortReply
	}
	for n := range words {
		words[n] = binary.BigEndian.Uint16(b[n*2:])
	}
	return
}

func encodeWords(words ...uint16) (b [8]byte) {
	for n, w := range words {
		binary.BigEndian.PutUint16(b[n*2:], w)
	}
	return
}

// AddressTimers encodes the four address phase timers.
func AddressTimers(t link.PhaseTimers) [8]byte {
	return encodeWords(t.Address[:]...)
}

// MonitorTimers2 encodes request length, reply length, lowest payload and ceiling.
func MonitorTimers2(t link.PhaseTimers) [8]byte {
	return encodeWords(t.Length, t.ReplyLength, t.LowestPayload(), t.Ceiling)
}

// ControlTimers2 encodes length, lowest payload, last payload and ceiling.
func ControlTimers2(t link.PhaseTimers) [8]byte {
	return encodeWords(t.Length, t.LowestPayload(), t.LastPayload(), t.Ceiling)
}

// Recorder implements amb.Handler for the diagnostic block.
type Recorder struct {
	Source Source
	Status func() Status
}

// New creates a Recorder.
func New(source Source, status func() Status) *Recorder {
	return &Recorder{Source: source, Status: status}
}

// HandleMessage implements amb.Handler. Control requests are ignored.
func (r *Recorder) HandleMessage(msg *amb.Message) error {
	if msg.Dir != amb.Monitor {
		return nil
	}
	var reply [8]byte
	switch msg.RCA {
	case RCAMonitorTimers1:
		reply = AddressTimers(r.Source.LastMonitorTimers())
	case RCAMonitorTimers2:
		reply = MonitorTimers2(r.Source.LastMonitorTimers())
	case RCAControlTimers1:
		reply = AddressTimers(r.Source.LastControlTimers())
	case RCAControlTimers2:
		reply = ControlTimers2(r.Source.LastControlTimers())
	case RCAStatus:
		status := r.Status()
		status.Lines = r.Source.LineState().Bits()
		reply = status.Encode()
	default:
		msg.Len = 0
		return nil
	}
	msg.SetPayload(reply[:]...)
	return nil
}

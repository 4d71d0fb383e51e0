package amb

import (
	"encoding/binary"

	"github.com/golang/glog"
	"go.uber.org/atomic"

	"github.com/robotalks/ambsi.go/pkg/can"
)

// Address window of a node.
const (
	NodeSpan    uint32 = 0x40000
	MaxRelative uint32 = NodeSpan - 1
)

// Built-in monitor points answered by the slave itself.
const (
	RCASlaveRevision     uint32 = 0x30000
	RCASlaveErrors       uint32 = 0x30001
	RCASlaveTransactions uint32 = 0x30002
)

// DefaultCapacity is the default size of the callback table.
const DefaultCapacity = 16

// ProtocolRevision is the revision of the slave protocol.
var ProtocolRevision = [3]byte{1, 1, 1}

// Codes recorded as the last slave error.
const (
	ErrCodeNone        byte = 0x00
	ErrCodeHandler     byte = 0x01
	ErrCodeInvalidSize byte = 0x02
)

type callback struct {
	low, high uint32
	handler   Handler
}

// Slave is the bus slave: it owns the callback table and turns frames
// into handler invocations. It's not safe for concurrent HandleFrame
// calls; the caller serializes them (see bridge.Server).
type Slave struct {
	NodeAddress byte
	Capacity    int

	cbs []callback

	numErrors       atomic.Uint32
	lastError       atomic.Uint32
	numTransactions atomic.Uint32
}

// SlaveStats are the slave counters.
type SlaveStats struct {
	Errors       uint16
	LastError    byte
	Transactions uint32
}

// NewSlave creates a Slave for the node address.
func NewSlave(node byte) *Slave {
	return &Slave{NodeAddress: node, Capacity: DefaultCapacity}
}

// BaseAddress calculates the CAN ID base of the node.
func (s *Slave) BaseAddress() uint32 {
	return (uint32(s.NodeAddress) + 1) * NodeSpan
}

// Register implements Registry.
func (s *Slave) Register(low, high uint32, handler Handler) error {
	if low > high || high > MaxRelative {
		return &RangeError{Low: low, High: high}
	}
	limit := s.Capacity
	if limit <= 0 {
		limit = DefaultCapacity
	}
	if len(s.cbs) >= limit {
		return ErrTableFull
	}
	s.cbs = append(s.cbs, callback{low: low, high: high, handler: handler})
	glog.V(2).Infof("registered [0x%05x, 0x%05x] (%d/%d)", low, high, len(s.cbs), limit)
	return nil
}

// UnregisterLast implements Registry.
func (s *Slave) UnregisterLast() error {
	if n := len(s.cbs); n > 0 {
		cb := s.cbs[n-1]
		s.cbs[n-1] = callback{}
		s.cbs = s.cbs[:n-1]
		glog.V(2).Infof("unregistered [0x%05x, 0x%05x]", cb.low, cb.high)
	}
	return nil
}

// NumCallbacks returns the number of registered callbacks.
func (s *Slave) NumCallbacks() int {
	return len(s.cbs)
}

// Stats returns the counters.
func (s *Slave) Stats() SlaveStats {
	return SlaveStats{
		Errors:       uint16(s.numErrors.Load()),
		LastError:    byte(s.lastError.Load()),
		Transactions: s.numTransactions.Load(),
	}
}

// MessageFrom decodes a frame into a message relative to the node.
func (s *Slave) MessageFrom(f can.Frame) (*Message, error) {
	rca := f.ID - s.BaseAddress()
	if rca == 0 || rca > MaxRelative {
		return nil, ErrNotForNode
	}
	if f.Len > MaxPayload {
		return nil, can.ErrInvalidLen
	}
	msg := &Message{RCA: rca, Len: f.Len}
	if f.Len == 0 {
		msg.Dir = Monitor
	} else {
		msg.Dir = Control
		copy(msg.Data[:], f.Data[:f.Len])
	}
	return msg, nil
}

// FrameFrom encodes the reply of a monitor message.
func (s *Slave) FrameFrom(msg *Message) can.Frame {
	f := can.Frame{ID: s.BaseAddress() + msg.RCA, Len: msg.Len}
	copy(f.Data[:], msg.Payload())
	return f
}

// HandleFrame processes an incoming frame. The returned frame is
// non-nil when a monitor reply must be transmitted.
func (s *Slave) HandleFrame(f can.Frame) (*can.Frame, error) {
	msg, err := s.MessageFrom(f)
	if err != nil {
		return nil, err
	}
	if msg.Dir == Monitor && s.builtin(msg) {
		s.numTransactions.Inc()
		reply := s.FrameFrom(msg)
		return &reply, nil
	}
	return s.Dispatch(msg), nil
}

// Dispatch runs the first handler bound to the message RCA. Later
// bindings covering the same RCA are shadowed, so at most one reply is
// produced per request and fixed bindings win over forwarded ranges.
func (s *Slave) Dispatch(msg *Message) *can.Frame {
	var handler Handler
	for _, cb := range s.cbs {
		if msg.RCA >= cb.low && msg.RCA <= cb.high {
			handler = cb.handler
			break
		}
	}
	if handler == nil {
		glog.V(2).Infof("no handler for %s", msg)
		return nil
	}
	s.numTransactions.Inc()
	if err := handler.HandleMessage(msg); err != nil {
		s.recordError(ErrCodeHandler)
		glog.Warningf("handler error on rca 0x%05x: %v", msg.RCA, err)
	}
	if msg.Dir != Monitor {
		return nil
	}
	if !msg.IsValid() {
		s.recordError(ErrCodeInvalidSize)
		glog.Errorf("drop reply of rca 0x%05x: invalid length %d", msg.RCA, msg.Len)
		return nil
	}
	reply := s.FrameFrom(msg)
	return &reply
}

func (s *Slave) recordError(code byte) {
	s.numErrors.Inc()
	s.lastError.Store(uint32(code))
}

func (s *Slave) builtin(msg *Message) bool {
	switch msg.RCA {
	case RCASlaveRevision:
		msg.SetPayload(ProtocolRevision[:]...)
	case RCASlaveErrors:
		stats := s.Stats()
		msg.SetPayload(byte(stats.Errors>>8), byte(stats.Errors), 0, stats.LastError)
	case RCASlaveTransactions:
		msg.Len = 4
		binary.BigEndian.PutUint32(msg.Data[:4], s.numTransactions.Load())
	default:
		return false
	}
	return true
}

package link

import (
	"github.com/golang/glog"
	"go.uber.org/atomic"

	"github.com/robotalks/ambsi.go/pkg/amb"
)

// Config is the configuration of Engine.
type Config struct {
	// Ceiling is the countdown of each phase, in strobe polls.
	Ceiling uint16
	// Retries is the number of retries of Monitor after failure.
	Retries int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Ceiling: MaxCeiling, Retries: 1}
}

// Stats are the counters of Engine.
type Stats struct {
	Transactions uint32
	Timeouts     uint32
	Violations   uint32
	Rejected     uint32
}

// Engine composes phases into Control and Monitor transactions.
type Engine struct {
	lines  Lines
	config Config

	busy      atomic.Bool
	attention bool
	selected  bool
	direction Direction

	monTimers PhaseTimers
	ctlTimers PhaseTimers

	transactions atomic.Uint32
	timeouts     atomic.Uint32
	violations   atomic.Uint32
	rejected     atomic.Uint32
}

// NewEngine creates an Engine which owns lines.
func NewEngine(lines Lines, config Config) *Engine {
	if config.Ceiling == 0 {
		config.Ceiling = MaxCeiling
	}
	e := &Engine{lines: lines, config: config}
	e.monTimers.reset(config.Ceiling)
	e.ctlTimers.reset(config.Ceiling)
	e.release()
	return e
}

// Ceiling returns the phase countdown ceiling.
func (e *Engine) Ceiling() uint16 {
	return e.config.Ceiling
}

// SetSelect drives the select line.
func (e *Engine) SetSelect(on bool) {
	e.selected = on
	e.lines.SetSelect(on)
}

// PeerReady samples the ready line of the peer.
func (e *Engine) PeerReady() bool {
	return e.lines.PeerReady()
}

// LineState samples the lines.
func (e *Engine) LineState() LineState {
	return LineState{
		Attention: e.attention,
		Select:    e.selected,
		Direction: e.direction,
		Strobe:    e.lines.StrobeAsserted(),
		PeerReady: e.lines.PeerReady(),
	}
}

// LastMonitorTimers returns the timers of the most recent Monitor transaction.
func (e *Engine) LastMonitorTimers() PhaseTimers {
	return e.monTimers
}

// LastControlTimers returns the timers of the most recent Control transaction.
func (e *Engine) LastControlTimers() PhaseTimers {
	return e.ctlTimers
}

// Stats returns the counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Transactions: e.transactions.Load(),
		Timeouts:     e.timeouts.Load(),
		Violations:   e.violations.Load(),
		Rejected:     e.rejected.Load(),
	}
}

// Control forwards msg to the peer, no reply is expected.
// Only a timeout of the first address phase fails the transaction.
func (e *Engine) Control(msg *amb.Message) error {
	if !e.acquire() {
		return ErrBusy
	}
	defer e.release()
	return e.control(msg)
}

// MonitorQuiet forwards msg to the peer and reads the reply into msg.
// On failure msg is left as the exchange made it.
func (e *Engine) MonitorQuiet(msg *amb.Message) error {
	if !e.acquire() {
		return ErrBusy
	}
	defer e.release()
	return e.monitor(msg)
}

// Monitor is MonitorQuiet with retries. Attention is dropped and the
// original request is restored before each retry. When all attempts fail,
// msg is turned into a Control message with no payload.
func (e *Engine) Monitor(msg *amb.Message) error {
	if !e.acquire() {
		return ErrBusy
	}
	defer e.release()
	req := *msg
	err := e.monitor(msg)
	for n := 0; err != nil && n < e.config.Retries; n++ {
		glog.V(2).Infof("retry monitor %06x: %v", req.RCA, err)
		e.idle()
		*msg = req
		err = e.monitor(msg)
	}
	if err != nil {
		msg.Dir, msg.Len = amb.Control, 0
	}
	return err
}

func (e *Engine) acquire() bool {
	if e.busy.CompareAndSwap(false, true) {
		return true
	}
	e.rejected.Inc()
	return false
}

func (e *Engine) release() {
	e.idle()
	e.busy.Store(false)
}

// idle restores lines to drive with attention low.
func (e *Engine) idle() {
	e.setDirection(Drive)
	e.setAttention(false)
}

func (e *Engine) setAttention(on bool) {
	e.attention = on
	e.lines.SetAttention(on)
}

func (e *Engine) setDirection(dir Direction) {
	e.direction = dir
	e.lines.SetDirection(dir)
}

// exchange performs one phase and returns the byte read and the
// remaining countdown, 0 means timeout.
func (e *Engine) exchange(b byte, mode Mode) (byte, uint16) {
	timer := e.config.Ceiling
	for ; timer > 0 && !e.lines.StrobeAsserted(); timer-- {
	}
	if mode == Write {
		e.lines.Put(b)
	} else {
		b = e.lines.Get()
	}
	e.lines.Ack()
	return b, timer
}

func (e *Engine) sendAddress(rca uint32, timers *PhaseTimers) error {
	for n := range timers.Address {
		_, timers.Address[n] = e.exchange(byte(rca>>(8*uint(n))), Write)
		if timers.Address[n] == 0 {
			e.timeouts.Inc()
			if n == 0 {
				return &PhaseError{Phase: PhaseAddress0, Err: ErrPeerTimeout}
			}
			glog.V(4).Infof("%06x %s timeout", rca, Phase(n))
		}
	}
	return nil
}

func (e *Engine) control(msg *amb.Message) error {
	e.transactions.Inc()
	timers := &e.ctlTimers
	timers.reset(e.config.Ceiling)
	e.setAttention(true)
	if err := e.sendAddress(msg.RCA, timers); err != nil {
		glog.Warningf("control %06x: %v", msg.RCA, err)
		return err
	}
	size := msg.Len
	if size > amb.MaxPayload {
		size = amb.MaxPayload
	}
	if _, timers.Length = e.exchange(size, Write); timers.Length == 0 {
		e.timeouts.Inc()
		glog.V(4).Infof("%06x length timeout", msg.RCA)
	}
	for n := 0; n < int(size); n++ {
		_, timers.Payload[n] = e.exchange(msg.Data[n], Write)
		timers.PayloadCount = n + 1
		if timers.Payload[n] == 0 {
			e.timeouts.Inc()
			glog.V(4).Infof("%06x payload[%d] timeout", msg.RCA, n)
		}
	}
	return nil
}

func (e *Engine) monitor(msg *amb.Message) error {
	e.transactions.Inc()
	timers := &e.monTimers
	timers.reset(e.config.Ceiling)
	e.setAttention(true)
	if err := e.sendAddress(msg.RCA, timers); err != nil {
		glog.Warningf("monitor %06x: %v", msg.RCA, err)
		return err
	}
	if _, timers.Length = e.exchange(msg.Len, Write); timers.Length == 0 {
		e.timeouts.Inc()
		glog.V(4).Infof("%06x length timeout", msg.RCA)
	}

	e.setDirection(Sense)
	size, timer := e.exchange(0, Read)
	timers.ReplyLength = timer
	if timer == 0 {
		e.timeouts.Inc()
		return &PhaseError{Phase: PhaseReplyLength, Err: ErrPeerTimeout}
	}
	if size > amb.MaxPayload {
		e.violations.Inc()
		glog.Warningf("monitor %06x: reply length %d", msg.RCA, size)
		return &PhaseError{Phase: PhaseReplyLength, Err: ErrProtocolViolation}
	}
	msg.Len = size
	for n := 0; n < int(size); n++ {
		msg.Data[n], timers.Payload[n] = e.exchange(0, Read)
		timers.PayloadCount = n + 1
		if timers.Payload[n] == 0 {
			e.timeouts.Inc()
			return &PhaseError{Phase: PhasePayload, Index: n, Err: ErrPeerTimeout}
		}
	}
	return nil
}

// Package setup negotiates the forwarded address ranges with the peer.
package setup

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/ambsi.go/pkg/amb"
	"github.com/robotalks/ambsi.go/pkg/router"
)

// Reserved addresses of the setup protocol.
const (
	RCASetup                uint32 = 0x20001
	RCASpecialMonitorRanges uint32 = 0x20003
	RCASpecialControlRanges uint32 = 0x20004
	RCAMonitorRanges        uint32 = 0x20005
	RCAControlRanges        uint32 = 0x20006
)

// Prober performs a monitor request without the failure overwrite.
type Prober interface {
	MonitorQuiet(*amb.Message) error
}

// Query is one range query of the negotiation.
type Query struct {
	RCA  uint32
	Role router.Role
	// Carve splits the range around the reserved block.
	Carve bool
	// FailCode is replied when the range can't be bound.
	FailCode Code
}

// Queries are the range queries in negotiation order.
var Queries = [4]Query{
	{RCA: RCASpecialMonitorRanges, Role: router.RoleMonitorForward, Carve: true, FailCode: CodeSpecialMonitorFailed},
	{RCA: RCASpecialControlRanges, Role: router.RoleControlForward, FailCode: CodeSpecialControlFailed},
	{RCA: RCAMonitorRanges, Role: router.RoleMonitorForward, FailCode: CodeMonitorFailed},
	{RCA: RCAControlRanges, Role: router.RoleControlForward, FailCode: CodeControlFailed},
}

// Config is the configuration of Controller.
type Config struct {
	Router *router.Router
	Prober Prober
	// MonitorForward and ControlForward are bound to negotiated ranges.
	MonitorForward amb.Handler
	ControlForward amb.Handler
	// Reserved is carved out of the special-monitor range.
	Reserved router.Range
}

// Controller is the setup handler and owns the link state.
type Controller struct {
	config   Config
	states   *LinkStateMachine
	ranges   [4]router.Range
	lastCode Code
}

// New creates a Controller in NotReady.
func New(config Config) *Controller {
	return &Controller{
		config:   config,
		states:   NewLinkStateMachine(nil),
		lastCode: CodeNotReady,
	}
}

// State returns the link state.
func (c *Controller) State() LinkState {
	return c.states.Current()
}

// MarkReady records the peer completed its bring-up.
func (c *Controller) MarkReady(ctx context.Context) error {
	return c.states.MarkReady(ctx)
}

// LastCode returns the code of the most recent setup request.
func (c *Controller) LastCode() Code {
	return c.lastCode
}

// Ranges returns the negotiated ranges in query order,
// valid only when Initialized.
func (c *Controller) Ranges() [4]router.Range {
	return c.ranges
}

// HandleMessage implements amb.Handler.
func (c *Controller) HandleMessage(msg *amb.Message) error {
	if msg.Dir == amb.Control {
		glog.Warningf("setup rejected: %v", ErrMalformedRequest)
		return ErrMalformedRequest
	}
	code := c.Negotiate(context.Background())
	msg.SetPayload(byte(code))
	return nil
}

// Negotiate queries the peer for the four ranges and binds them.
// Any failure rolls back the bindings of this attempt, most recent first.
func (c *Controller) Negotiate(ctx context.Context) (code Code) {
	defer func() { c.lastCode = code }()
	switch c.states.Current() {
	case NotReady:
		glog.Warningf("setup: %v", ErrNotReady)
		return CodeNotReady
	case Initialized:
		glog.Infof("setup: %v", ErrAlreadyInitialized)
		return CodeAlreadyInitialized
	}

	r := c.config.Router
	mark := r.Mark()
	var ranges [4]router.Range
	for n, q := range Queries {
		// A short reply leaves the rest of Data zero and still decodes.
		msg := &amb.Message{Dir: amb.Monitor, RCA: q.RCA}
		if err := c.config.Prober.MonitorQuiet(msg); err != nil {
			glog.Warningf("setup: range query 0x%05x: %v", q.RCA, err)
			c.rollback(mark)
			return CodePeerTimeout
		}
		ranges[n] = router.DecodeRange(msg.Data)
		if err := c.bind(q, ranges[n]); err != nil {
			glog.Errorf("setup: %v", err)
			c.rollback(mark)
			return q.FailCode
		}
	}
	if err := c.states.Initialize(ctx); err != nil {
		glog.Errorf("setup: %v", err)
		c.rollback(mark)
		return CodePeerTimeout
	}
	c.ranges = ranges
	glog.Infof("setup: ranges %v", ranges)
	return CodeOK
}

func (c *Controller) bind(q Query, rng router.Range) error {
	handler := c.config.MonitorForward
	if q.Role == router.RoleControlForward {
		handler = c.config.ControlForward
	}
	parts := []router.Range{rng}
	if q.Carve {
		if parts = rng.Carve(c.config.Reserved); len(parts) == 0 {
			return &router.BindError{Role: q.Role, Range: rng, Err: ErrReservedRange}
		}
	}
	for _, part := range parts {
		if err := c.config.Router.Bind(q.Role, part, handler); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) rollback(mark int) {
	if err := c.config.Router.Rollback(mark); err != nil {
		glog.Errorf("setup: rollback: %v", err)
	}
}

// Package bridge wires the link engine, router, setup controller and
// diagnostics into one process-wide context.
package bridge

import (
	"errors"

	"github.com/golang/glog"
	"go.uber.org/atomic"

	"github.com/robotalks/ambsi.go/pkg/amb"
	"github.com/robotalks/ambsi.go/pkg/can/msgs"
	"github.com/robotalks/ambsi.go/pkg/diag"
	fx "github.com/robotalks/ambsi.go/pkg/framework"
	"github.com/robotalks/ambsi.go/pkg/link"
	"github.com/robotalks/ambsi.go/pkg/router"
	"github.com/robotalks/ambsi.go/pkg/sensor"
	"github.com/robotalks/ambsi.go/pkg/setup"
)

// Fixed addresses answered by the bridge.
const (
	RCAVersion     uint32 = 0x20000
	RCAPeerVersion uint32 = 0x20002
	RCAAmbient     uint32 = 0x30003
)

// Bridge is the process-wide context. It's created once and all its
// handlers run on the loop goroutine.
type Bridge struct {
	Config  *Config
	Engine  *link.Engine
	Router  *router.Router
	Setup   *setup.Controller
	Diag    *diag.Recorder
	Sampler *sensor.Sampler

	version   [3]byte
	forwarded atomic.Uint32
}

// New creates the Bridge and registers the fixed bindings.
func New(config *Config, lines link.Lines, registry amb.Registry, s sensor.Sensor) (*Bridge, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	version, _ := ParseVersion(config.Version)
	b := &Bridge{
		Config:  config,
		Engine:  link.NewEngine(lines, config.LinkConfig()),
		Router:  router.New(registry),
		Sampler: sensor.NewSampler(s),
		version: version,
	}
	b.Sampler.Period = config.SamplePeriod
	b.Diag = diag.New(b.Engine, b.Status)
	b.Setup = setup.New(setup.Config{
		Router:         b.Router,
		Prober:         b.Engine,
		MonitorForward: amb.HandlerFunc(b.forwardMonitor),
		ControlForward: amb.HandlerFunc(b.forwardControl),
		Reserved:       diag.Block,
	})
	b.Engine.SetSelect(true)

	fixed := []struct {
		role    router.Role
		rng     router.Range
		handler amb.Handler
	}{
		{router.RoleVersion, router.Single(RCAVersion), amb.HandlerFunc(b.handleVersion)},
		{router.RoleSetup, router.Single(setup.RCASetup), b.Setup},
		{router.RoleDiagnostic, diag.Block, b.Diag},
		{router.RoleAmbient, router.Single(RCAAmbient), amb.HandlerFunc(b.handleAmbient)},
	}
	for _, f := range fixed {
		if err := b.Router.Bind(f.role, f.rng, f.handler); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// AddToLoop implements LoopAdder.
func (b *Bridge) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvLink, NewLinkWatcher(b.Engine, b.Setup))
	loop.Add(b.Sampler)
}

// Version returns the firmware version.
func (b *Bridge) Version() [3]byte {
	return b.version
}

// Forwarded returns the number of requests forwarded to the peer.
func (b *Bridge) Forwarded() uint32 {
	return b.forwarded.Load()
}

// Status returns the status snapshot without line bits.
func (b *Bridge) Status() diag.Status {
	state := b.Setup.State()
	return diag.Status{
		Ready:       state != setup.NotReady,
		Initialized: state == setup.Initialized,
		Bindings:    b.Router.Len(),
		SetupCode:   byte(b.Setup.LastCode()),
		Forwarded:   b.forwarded.Load(),
	}
}

// StatusMsg returns the status published to clients.
func (b *Bridge) StatusMsg() *msgs.Status {
	status := &msgs.Status{
		Node:      uint32(b.Config.Node),
		LinkState: string(b.Setup.State()),
		SetupCode: uint32(b.Setup.LastCode()),
	}
	for _, binding := range b.Router.Bindings() {
		status.Bindings = append(status.Bindings, &msgs.Range{
			Low:  binding.Low,
			High: binding.High,
			Role: binding.Role.String(),
		})
	}
	return status
}

func (b *Bridge) handleVersion(msg *amb.Message) error {
	msg.SetPayload(b.version[:]...)
	return nil
}

func (b *Bridge) handleAmbient(msg *amb.Message) error {
	if msg.Dir == amb.Monitor {
		sample := b.Sampler.Sample()
		msg.SetPayload(sample[:]...)
	}
	return nil
}

// Forwarder performs transactions with the peer.
type Forwarder interface {
	Monitor(*amb.Message) error
	Control(*amb.Message) error
}

// ForwardMonitor forwards msg bound to a monitor range. A control
// message is forwarded as control.
func ForwardMonitor(f Forwarder, msg *amb.Message) error {
	if msg.Dir == amb.Control {
		return ForwardControl(f, msg)
	}
	return f.Monitor(msg)
}

// ForwardControl forwards msg bound to a control range. A monitor
// message is forwarded as monitor.
func ForwardControl(f Forwarder, msg *amb.Message) error {
	if msg.Dir == amb.Monitor {
		return ForwardMonitor(f, msg)
	}
	return f.Control(msg)
}

func (b *Bridge) forwardMonitor(msg *amb.Message) error {
	b.forwarded.Inc()
	b.forwardDone(msg, ForwardMonitor(b.Engine, msg))
	return nil
}

func (b *Bridge) forwardControl(msg *amb.Message) error {
	b.forwarded.Inc()
	b.forwardDone(msg, ForwardControl(b.Engine, msg))
	return nil
}

// forwardDone never fails the handler, failures are carried by msg.
func (b *Bridge) forwardDone(msg *amb.Message, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, link.ErrBusy) {
		msg.Dir, msg.Len = amb.Control, 0
	}
	glog.V(2).Infof("forward 0x%05x: %v", msg.RCA, err)
}

package bridge

import (
	"context"
	"errors"
	"io"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/ambsi.go/pkg/amb"
	"github.com/robotalks/ambsi.go/pkg/can"
	"github.com/robotalks/ambsi.go/pkg/can/msgs"
	fx "github.com/robotalks/ambsi.go/pkg/framework"
)

// FrameMsg is a received frame posted to the loop.
type FrameMsg struct {
	Frame can.Frame
	// Reply receives the monitor reply, if any.
	Reply can.FrameWriter
}

// FrameHandler processes a frame and returns the reply frame, if any.
type FrameHandler interface {
	HandleFrame(can.Frame) (*can.Frame, error)
}

// Dispatcher hands FrameMsgs to the bus slave on the loop goroutine.
type Dispatcher struct {
	Handler FrameHandler
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(handler FrameHandler) *Dispatcher {
	return &Dispatcher{Handler: handler}
}

// AddToLoop implements LoopAdder.
func (d *Dispatcher) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvDispatch, d)
}

// Control implements Controller.
func (d *Dispatcher) Control(cc fx.ControlContext) error {
	for _, m := range cc.Messages() {
		msg, ok := m.(*FrameMsg)
		if !ok {
			continue
		}
		reply, err := d.Handler.HandleFrame(msg.Frame)
		switch {
		case errors.Is(err, amb.ErrNotForNode):
			glog.V(4).Infof("ignore %s", msg.Frame)
		case err != nil:
			glog.Warningf("drop %s: %v", msg.Frame, err)
		case reply != nil && msg.Reply != nil:
			glog.V(4).Infof("reply %s", reply)
			if err := msg.Reply.WriteFrame(*reply); err != nil {
				glog.Errorf("write reply: %v", err)
			}
		}
	}
	return nil
}

// Server reads frames from a transport and posts them to the loop.
type Server struct {
	Name       string
	ReadWriter can.ReadWriter
	// Loop receives the frames, defaults to the loop running the Server.
	Loop fx.LoopControl
}

// NewServer creates a Server.
func NewServer(name string, rw can.ReadWriter) *Server {
	return &Server{Name: name, ReadWriter: rw}
}

// AddToLoop implements LoopAdder.
func (s *Server) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(s)
}

// Run implements Runnable. Malformed frames are dropped, it stops on
// transport errors.
func (s *Server) Run(ctx context.Context) error {
	ctl := s.Loop
	if ctl == nil {
		ctl = fx.LoopCtlFrom(ctx)
	}
	serve := func() error {
		for {
			f, err := s.ReadWriter.ReadFrame()
			if can.IsMalformed(err) {
				glog.Warningf("%s drop: %v", s.Name, err)
				continue
			}
			if err != nil {
				return err
			}
			glog.V(4).Infof("%s recv %s", s.Name, f)
			ctl.PostMessage(&FrameMsg{Frame: f, Reply: s.ReadWriter})
			ctl.TriggerNext()
		}
	}
	var err error
	if closer, ok := s.ReadWriter.(io.Closer); ok {
		err = fx.RunWithContextCloser(ctx, closer, serve)
	} else {
		err = serve()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		glog.Errorf("%s: %v", s.Name, err)
	}
	return err
}

// StatusPublisher publishes the bridge status whenever it changes.
type StatusPublisher struct {
	Bridge  *Bridge
	Publish func(*msgs.Status) error

	last *msgs.Status
}

// AddToLoop implements LoopAdder.
func (p *StatusPublisher) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvPublish, p)
}

// Control implements Controller.
func (p *StatusPublisher) Control(fx.ControlContext) error {
	status := p.Bridge.StatusMsg()
	if p.last != nil && proto.Equal(status, p.last) {
		return nil
	}
	if err := p.Publish(status); err != nil {
		return err
	}
	p.last = status
	return nil
}

package bridge

import (
	"github.com/golang/glog"

	fx "github.com/robotalks/ambsi.go/pkg/framework"
	"github.com/robotalks/ambsi.go/pkg/link"
	"github.com/robotalks/ambsi.go/pkg/setup"
)

// LinkWatcher completes the readiness handshake with the peer: it
// drives select low and marks the link Ready once the peer reports ready.
type LinkWatcher struct {
	Engine *link.Engine
	Setup  *setup.Controller

	started bool
}

// NewLinkWatcher creates a LinkWatcher.
func NewLinkWatcher(engine *link.Engine, ctl *setup.Controller) *LinkWatcher {
	return &LinkWatcher{Engine: engine, Setup: ctl}
}

// Control implements Controller.
func (w *LinkWatcher) Control(cc fx.ControlContext) error {
	if !w.started {
		w.started = true
		w.Engine.SetSelect(false)
		glog.Info("waiting for peer")
	}
	if w.Setup.State() != setup.NotReady || !w.Engine.PeerReady() {
		return nil
	}
	return w.Setup.MarkReady(cc.Context())
}

package setup

import (
	"context"

	"github.com/golang/glog"
	"github.com/looplab/fsm"
)

// LinkState is the state of the link with the peer.
type LinkState string

// Link states, monotonic in this order.
const (
	NotReady    LinkState = "not-ready"
	Ready       LinkState = "ready"
	Initialized LinkState = "initialized"
)

// Events of the link state machine.
const (
	EventReady      = "ready"
	EventInitialize = "initialize"
)

// LinkStateMachine wraps the state machine of LinkState.
type LinkStateMachine struct {
	fsm *fsm.FSM
}

// NewLinkStateMachine creates the state machine in NotReady.
func NewLinkStateMachine(callbacks fsm.Callbacks) *LinkStateMachine {
	if callbacks == nil {
		callbacks = fsm.Callbacks{}
	}
	if _, ok := callbacks["enter_state"]; !ok {
		callbacks["enter_state"] = func(_ context.Context, e *fsm.Event) {
			glog.Infof("link %s -> %s", e.Src, e.Dst)
		}
	}
	return &LinkStateMachine{
		fsm: fsm.NewFSM(
			string(NotReady),
			fsm.Events{
				{Name: EventReady, Src: []string{string(NotReady)}, Dst: string(Ready)},
				{Name: EventInitialize, Src: []string{string(Ready)}, Dst: string(Initialized)},
			},
			callbacks,
		),
	}
}

// Current returns the current state.
func (m *LinkStateMachine) Current() LinkState {
	return LinkState(m.fsm.Current())
}

// Is tells if the current state is s.
func (m *LinkStateMachine) Is(s LinkState) bool {
	return m.fsm.Is(string(s))
}

// MarkReady moves NotReady to Ready, it's a no-op otherwise.
func (m *LinkStateMachine) MarkReady(ctx context.Context) error {
	if !m.fsm.Can(EventReady) {
		return nil
	}
	return m.fsm.Event(ctx, EventReady)
}

// Initialize moves Ready to Initialized.
func (m *LinkStateMachine) Initialize(ctx context.Context) error {
	return m.fsm.Event(ctx, EventInitialize)
}

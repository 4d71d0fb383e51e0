package setup_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ambsi.go/pkg/amb"
	"github.com/robotalks/ambsi.go/pkg/link"
	"github.com/robotalks/ambsi.go/pkg/link/sim"
	"github.com/robotalks/ambsi.go/pkg/router"
	"github.com/robotalks/ambsi.go/pkg/setup"
)

var reserved = router.Range{Low: 0x20010, High: 0x20014}

var peerRanges = map[uint32]router.Range{
	setup.RCASpecialMonitorRanges: {Low: 0x20007, High: 0x200FF},
	setup.RCASpecialControlRanges: {Low: 0x20100, High: 0x201FF},
	setup.RCAMonitorRanges:        {Low: 0x00001, High: 0x0FFFF},
	setup.RCAControlRanges:        {Low: 0x10000, High: 0x1FFFF},
}

type fixture struct {
	peer   *sim.Peer
	slave  *amb.Slave
	router *router.Router
	ctl    *setup.Controller
	fixed  int
}

func nop(*amb.Message) error { return nil }

func newFixture(t *testing.T) *fixture {
	f := &fixture{peer: sim.New(), slave: amb.NewSlave(0)}
	for rca, rng := range peerRanges {
		b := rng.Encode()
		f.peer.Registers[rca] = b[:]
	}
	f.router = router.New(f.slave)
	require.NoError(t, f.router.Bind(router.RoleVersion, router.Single(0x20000), amb.HandlerFunc(nop)))
	require.NoError(t, f.router.Bind(router.RoleDiagnostic, reserved, amb.HandlerFunc(nop)))
	engine := link.NewEngine(f.peer, link.Config{Ceiling: 32, Retries: 1})
	f.ctl = setup.New(setup.Config{
		Router:         f.router,
		Prober:         engine,
		MonitorForward: amb.HandlerFunc(nop),
		ControlForward: amb.HandlerFunc(nop),
		Reserved:       reserved,
	})
	require.NoError(t, f.router.Bind(router.RoleSetup, router.Single(setup.RCASetup), f.ctl))
	f.fixed = f.router.Len()
	return f
}

func (f *fixture) request(t *testing.T) []byte {
	msg := &amb.Message{Dir: amb.Monitor, RCA: setup.RCASetup}
	require.NoError(t, f.ctl.HandleMessage(msg))
	return msg.Payload()
}

func TestSetupScenario(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, []byte{0x06}, f.request(t))
	require.Equal(t, setup.NotReady, f.ctl.State())
	require.Empty(t, f.peer.Transactions())

	require.NoError(t, f.ctl.MarkReady(context.Background()))
	require.Equal(t, setup.Ready, f.ctl.State())
	require.Equal(t, []byte{0x00}, f.request(t))
	require.Equal(t, setup.Initialized, f.ctl.State())
	require.Equal(t, f.fixed+5, f.router.Len())
	require.Equal(t, f.fixed+5, f.slave.NumCallbacks())

	bindings := f.router.Bindings()[f.fixed:]
	expected := []router.Binding{
		{Range: router.Range{Low: 0x20007, High: 0x2000F}, Role: router.RoleMonitorForward},
		{Range: router.Range{Low: 0x20015, High: 0x200FF}, Role: router.RoleMonitorForward},
		{Range: router.Range{Low: 0x20100, High: 0x201FF}, Role: router.RoleControlForward},
		{Range: router.Range{Low: 0x00001, High: 0x0FFFF}, Role: router.RoleMonitorForward},
		{Range: router.Range{Low: 0x10000, High: 0x1FFFF}, Role: router.RoleControlForward},
	}
	for n, b := range expected {
		require.Equal(t, b.Range, bindings[n].Range)
		require.Equal(t, b.Role, bindings[n].Role)
	}
	ranges := f.ctl.Ranges()
	require.Equal(t, peerRanges[setup.RCAControlRanges], ranges[3])

	numTxns := len(f.peer.Transactions())
	require.Equal(t, 4, numTxns)
	require.Equal(t, []byte{0x05}, f.request(t))
	require.Equal(t, f.fixed+5, f.router.Len())
	require.Len(t, f.peer.Transactions(), numTxns)
	require.Equal(t, setup.CodeAlreadyInitialized, f.ctl.LastCode())

	require.NoError(t, f.ctl.MarkReady(context.Background()))
	require.Equal(t, setup.Initialized, f.ctl.State())
}

func TestSetupRollback(t *testing.T) {
	for k := 1; k <= 4; k++ {
		t.Run(fmt.Sprintf("step%d", k), func(t *testing.T) {
			f := newFixture(t)
			failing := setup.Queries[k-1].RCA
			f.peer.Responder = func(rca uint32) []byte {
				if rca == failing {
					return make([]byte, 9)
				}
				return f.peer.Registers[rca]
			}
			require.NoError(t, f.ctl.MarkReady(context.Background()))
			require.Equal(t, []byte{0x07}, f.request(t))
			require.Equal(t, setup.Ready, f.ctl.State())
			require.Equal(t, f.fixed, f.router.Len())
			require.Equal(t, f.fixed, f.slave.NumCallbacks())
			require.Len(t, f.peer.Transactions(), k)

			f.peer.Responder = nil
			require.Equal(t, []byte{0x00}, f.request(t))
			require.Equal(t, setup.Initialized, f.ctl.State())
			require.Equal(t, f.fixed+5, f.router.Len())
		})
	}
}

func TestSetupRegistrationFailure(t *testing.T) {
	for k := 1; k <= 4; k++ {
		t.Run(fmt.Sprintf("range%d", k), func(t *testing.T) {
			f := newFixture(t)
			q := setup.Queries[k-1]
			bad := router.Range{Low: peerRanges[q.RCA].Low, High: amb.MaxRelative + 1}.Encode()
			f.peer.Registers[q.RCA] = bad[:]
			require.NoError(t, f.ctl.MarkReady(context.Background()))
			require.Equal(t, []byte{byte(k)}, f.request(t))
			require.Equal(t, setup.Code(k), f.ctl.LastCode())
			require.True(t, errors.Is(f.ctl.LastCode().Err(), setup.ErrRegistration))
			require.Equal(t, setup.Ready, f.ctl.State())
			require.Equal(t, f.fixed, f.slave.NumCallbacks())
		})
	}
}

func TestSetupSpecialMonitorInsideReserved(t *testing.T) {
	f := newFixture(t)
	inside := router.Range{Low: 0x20011, High: 0x20013}.Encode()
	f.peer.Registers[setup.RCASpecialMonitorRanges] = inside[:]
	require.NoError(t, f.ctl.MarkReady(context.Background()))
	require.Equal(t, []byte{byte(setup.CodeSpecialMonitorFailed)}, f.request(t))
	require.Equal(t, setup.Ready, f.ctl.State())
	require.Equal(t, f.fixed, f.router.Len())
	require.Len(t, f.peer.Transactions(), 1)
}

func TestSetupRejectsControl(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctl.MarkReady(context.Background()))
	msg := &amb.Message{Dir: amb.Control, RCA: setup.RCASetup}
	msg.SetPayload(1)
	require.Equal(t, setup.ErrMalformedRequest, f.ctl.HandleMessage(msg))
	require.Empty(t, f.peer.Transactions())
	require.Equal(t, setup.Ready, f.ctl.State())
}

func TestSetupShortReplyAccepted(t *testing.T) {
	f := newFixture(t)
	f.peer.Registers[setup.RCASpecialControlRanges] = nil
	require.NoError(t, f.ctl.MarkReady(context.Background()))
	require.Equal(t, []byte{0x00}, f.request(t))
	require.Equal(t, router.Range{}, f.ctl.Ranges()[1])
}

func TestCodeErr(t *testing.T) {
	require.NoError(t, setup.CodeOK.Err())
	require.Equal(t, setup.ErrNotReady, setup.CodeNotReady.Err())
	require.Equal(t, setup.ErrAlreadyInitialized, setup.CodeAlreadyInitialized.Err())
	require.Equal(t, link.ErrPeerTimeout, setup.CodePeerTimeout.Err())
	require.Equal(t, "ok", setup.CodeOK.String())
}

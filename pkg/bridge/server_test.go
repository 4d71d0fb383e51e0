package bridge

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ambsi.go/pkg/can"
	"github.com/robotalks/ambsi.go/pkg/can/msgs"
	"github.com/robotalks/ambsi.go/pkg/can/stream"
	fx "github.com/robotalks/ambsi.go/pkg/framework"
)

type queueRW struct {
	in  chan can.Frame
	out []can.Frame
	mu  sync.Mutex
}

func (q *queueRW) ReadFrame() (can.Frame, error) {
	f, ok := <-q.in
	if !ok {
		return can.Frame{}, io.EOF
	}
	return f, nil
}

func (q *queueRW) WriteFrame(f can.Frame) error {
	q.mu.Lock()
	q.out = append(q.out, f)
	q.mu.Unlock()
	return nil
}

func TestServerDispatch(t *testing.T) {
	f := newFixture(t)
	loop := fx.NewLoop()
	loop.Add(NewDispatcher(f.slave))

	rw := &queueRW{in: make(chan can.Frame, 4)}
	srv := NewServer("test", rw)
	srv.Loop = loop

	frame, err := can.NewFrame(f.slave.BaseAddress() + RCAVersion)
	require.NoError(t, err)
	rw.in <- frame
	other, err := can.NewFrame(0x10)
	require.NoError(t, err)
	rw.in <- other
	close(rw.in)
	require.Equal(t, io.EOF, srv.Run(context.Background()))

	loop.RunOnce(context.Background())
	require.Len(t, rw.out, 1)
	require.Equal(t, frame.ID, rw.out[0].ID)
	require.Equal(t, []byte{2, 4, 6}, rw.out[0].Payload())
}

func TestServerDropsMalformedFrame(t *testing.T) {
	f := newFixture(t)
	loop := fx.NewLoop()
	loop.Add(NewDispatcher(f.slave))

	var in bytes.Buffer
	bad := make([]byte, can.WireSize)
	bad[4] = 9
	in.Write(bad)
	frame, err := can.NewFrame(f.slave.BaseAddress() + RCAVersion)
	require.NoError(t, err)
	b, err := frame.MarshalBinary()
	require.NoError(t, err)
	in.Write(b)

	var out bytes.Buffer
	srv := NewServer("serial", stream.New(&struct {
		io.Reader
		io.Writer
	}{&in, &out}))
	srv.Loop = loop
	require.Equal(t, io.EOF, srv.Run(context.Background()))
	require.Zero(t, in.Len())

	loop.RunOnce(context.Background())
	var reply can.Frame
	require.NoError(t, reply.UnmarshalBinary(out.Bytes()))
	require.Equal(t, frame.ID, reply.ID)
	require.Equal(t, []byte{2, 4, 6}, reply.Payload())
}

func TestStatusPublisher(t *testing.T) {
	f := newFixture(t)
	var published []*msgs.Status
	p := &StatusPublisher{Bridge: f.bridge, Publish: func(s *msgs.Status) error {
		published = append(published, s)
		return nil
	}}
	loop := fx.NewLoop()
	loop.Add(p)
	loop.RunOnce(context.Background())
	loop.RunOnce(context.Background())
	require.Len(t, published, 1)

	f.markReady(t)
	loop.RunOnce(context.Background())
	require.Len(t, published, 2)
	require.Equal(t, "ready", published[1].LinkState)
}

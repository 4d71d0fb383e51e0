package sh

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ambsi.go/pkg/can"
)

// loopback replies every monitor frame with reply.
type loopback struct {
	reply   []byte
	frames  chan can.Frame
	written []can.Frame
}

func (l *loopback) ReadFrame() (can.Frame, error) {
	f, ok := <-l.frames
	if !ok {
		return can.Frame{}, io.EOF
	}
	return f, nil
}

func (l *loopback) WriteFrame(f can.Frame) error {
	l.written = append(l.written, f)
	if f.Len == 0 && l.reply != nil {
		reply, err := can.NewFrame(f.ID, l.reply...)
		if err != nil {
			return err
		}
		l.frames <- reply
	}
	return nil
}

func TestClientMonitor(t *testing.T) {
	rw := &loopback{reply: []byte{1, 1, 0}, frames: make(chan can.Frame, 1)}
	c := NewClient(rw, 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	data, err := c.Monitor(ctx, 0x20000)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 1, 0}, data)
	require.Equal(t, uint32(0x80000+0x20000), rw.written[0].ID)
}

func TestClientTimeout(t *testing.T) {
	rw := &loopback{frames: make(chan can.Frame, 1)}
	c := NewClient(rw, 0, 10*time.Millisecond)
	_, err := c.Monitor(context.Background(), 0x20000)
	require.Equal(t, ErrTimeout, err)
	require.Empty(t, c.pending)
}

func TestClientControl(t *testing.T) {
	rw := &loopback{frames: make(chan can.Frame, 1)}
	c := NewClient(rw, 0, time.Second)
	require.Equal(t, can.ErrInvalidLen, c.Control(0x10000))
	require.NoError(t, c.Control(0x10000, 0xaa))
	require.Len(t, rw.written, 1)
	require.Equal(t, []byte{0xaa}, rw.written[0].Payload())
}

func TestParseBytes(t *testing.T) {
	data, err := ParseBytes([]string{"0x1f", "ff", "0"})
	require.NoError(t, err)
	require.Equal(t, []byte{0x1f, 0xff, 0}, data)
	_, err = ParseBytes([]string{"100"})
	require.Error(t, err)
}

package sh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robotalks/ambsi.go/pkg/amb"
	"github.com/robotalks/ambsi.go/pkg/can"
)

var (
	// ErrTimeout indicates no reply is received in time.
	ErrTimeout = errors.New("reply timeout")
	// ErrNotConnected indicates no bridge is connected.
	ErrNotConnected = errors.New("not connected")
)

// Client sends requests to a bridge node and matches replies by CAN ID.
type Client struct {
	ReadWriter can.ReadWriter
	Node       byte
	Timeout    time.Duration

	pendingLock sync.Mutex
	pending     map[uint32][]chan can.Frame
	writeLock   sync.Mutex
}

// NewClient creates a Client.
func NewClient(rw can.ReadWriter, node byte, timeout time.Duration) *Client {
	return &Client{
		ReadWriter: rw,
		Node:       node,
		Timeout:    timeout,
		pending:    make(map[uint32][]chan can.Frame),
	}
}

// BaseAddress is the CAN ID base of the node.
func (c *Client) BaseAddress() uint32 {
	return (uint32(c.Node) + 1) * amb.NodeSpan
}

// Monitor sends a monitor request and waits for the reply payload.
func (c *Client) Monitor(ctx context.Context, rca uint32) ([]byte, error) {
	f := can.Frame{ID: c.BaseAddress() + rca}
	ch := make(chan can.Frame, 1)
	c.pendingLock.Lock()
	c.pending[f.ID] = append(c.pending[f.ID], ch)
	c.pendingLock.Unlock()
	if err := c.write(f); err != nil {
		c.cancel(f.ID, ch)
		return nil, err
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-ch:
		return append([]byte(nil), reply.Payload()...), nil
	case <-timer.C:
		c.cancel(f.ID, ch)
		return nil, ErrTimeout
	case <-ctx.Done():
		c.cancel(f.ID, ch)
		return nil, ctx.Err()
	}
}

// Control sends a control request, data must not be empty.
func (c *Client) Control(rca uint32, data ...byte) error {
	if len(data) == 0 {
		return can.ErrInvalidLen
	}
	f, err := can.NewFrame(c.BaseAddress()+rca, data...)
	if err != nil {
		return err
	}
	return c.write(f)
}

// Run implements Runnable.
func (c *Client) Run(ctx context.Context) error {
	for {
		f, err := c.ReadWriter.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		c.HandleFrame(f)
	}
}

// HandleFrame completes the oldest pending request of the frame ID.
func (c *Client) HandleFrame(f can.Frame) {
	c.pendingLock.Lock()
	defer c.pendingLock.Unlock()
	chs := c.pending[f.ID]
	if len(chs) == 0 {
		return
	}
	chs[0] <- f
	if len(chs) == 1 {
		delete(c.pending, f.ID)
	} else {
		c.pending[f.ID] = chs[1:]
	}
}

func (c *Client) write(f can.Frame) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	return c.ReadWriter.WriteFrame(f)
}

func (c *Client) cancel(id uint32, ch chan can.Frame) {
	c.pendingLock.Lock()
	defer c.pendingLock.Unlock()
	chs := c.pending[id]
	for n, pending := range chs {
		if pending == ch {
			chs = append(chs[:n], chs[n+1:]...)
			break
		}
	}
	if len(chs) == 0 {
		delete(c.pending, id)
	} else {
		c.pending[id] = chs
	}
}

package mqtt

import (
	"context"
	"io"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/ambsi.go/pkg/can"
	"github.com/robotalks/ambsi.go/pkg/can/msgs"
)

type doneToken struct {
	paho.Token
}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Error() error                   { return nil }

// localClient accepts subscriptions without a broker.
type localClient struct {
	paho.Client
	subscribed chan string
}

func (c *localClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	c.subscribed <- topic
	return doneToken{}
}

func (c *localClient) Unsubscribe(topics ...string) paho.Token {
	return doneToken{}
}

func TestReadWriterStopsWithFullBuffer(t *testing.T) {
	q := NewQueue(paho.NewClientOptions(), "")
	client := &localClient{subscribed: make(chan string, 1)}
	q.Client = client
	rw := NewReadWriter(q).ForBridge(1)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() {
		runErr <- rw.Run(ctx)
	}()
	require.Equal(t, "1/rx", <-client.subscribed)

	payload, err := msgs.EncodeFrame(can.Frame{ID: 0x80000})
	require.NoError(t, err)
	for n := 0; n < cap(rw.frameCh); n++ {
		rw.handleMsg("1/rx", payload)
	}
	blocked := make(chan interface{}, 1)
	go func() {
		defer func() { blocked <- recover() }()
		rw.handleMsg("1/rx", payload)
	}()

	cancel()
	require.Equal(t, context.Canceled, <-runErr)
	select {
	case r := <-blocked:
		require.Nil(t, r)
	case <-time.After(time.Second):
		t.Fatal("handleMsg still blocked after stop")
	}
	// late deliveries from the client goroutine are dropped
	rw.handleMsg("1/rx", payload)

	_, err = rw.ReadFrame()
	require.Equal(t, io.EOF, err)
}

func TestReadWriterDeliversFrames(t *testing.T) {
	rw := NewReadWriter(nil).ForClient(2)
	payload, err := msgs.EncodeFrame(can.Frame{ID: 0xc0000, Len: 1, Data: [8]byte{7}})
	require.NoError(t, err)
	rw.handleMsg("2/tx", payload)
	rw.handleMsg("2/tx", []byte{0xff, 0xff, 0xff})
	f, err := rw.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, uint32(0xc0000), f.ID)
	require.Equal(t, []byte{7}, f.Payload())
}

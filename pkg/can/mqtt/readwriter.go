package mqtt

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/ambsi.go/pkg/can"
	"github.com/robotalks/ambsi.go/pkg/can/msgs"
)

// Topic suffixes relative to the node prefix.
const (
	TopicRx   = "/rx"
	TopicTx   = "/tx"
	TopicMeta = "/meta"
)

// ReadWriter implements can.ReadWriter over a Queue.
// Frames are encoded as msgs.Frame.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	frameCh  chan can.Frame
	done     chan struct{}
	stopOnce sync.Once
}

// NewReadWriter creates the ReadWriter.
func NewReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:   q,
		frameCh: make(chan can.Frame, 16),
		done:    make(chan struct{}),
	}
}

// NodeTopic returns the topic prefix of a node.
func NodeTopic(node byte) string {
	return strconv.Itoa(int(node))
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForBridge sets topics for the bridge side:
// SubTopic = node/rx
// PubTopic = node/tx
func (p *ReadWriter) ForBridge(node byte) *ReadWriter {
	prefix := NodeTopic(node)
	return p.WithTopics(prefix+TopicRx, prefix+TopicTx)
}

// ForClient sets topics for a bus client talking to the bridge:
// SubTopic = node/tx
// PubTopic = node/rx
func (p *ReadWriter) ForClient(node byte) *ReadWriter {
	prefix := NodeTopic(node)
	return p.WithTopics(prefix+TopicTx, prefix+TopicRx)
}

// ReadFrame implements can.FrameReader.
// It returns io.EOF after Run stops.
func (p *ReadWriter) ReadFrame() (can.Frame, error) {
	select {
	case <-p.done:
		return can.Frame{}, io.EOF
	default:
	}
	select {
	case f := <-p.frameCh:
		return f, nil
	case <-p.done:
		return can.Frame{}, io.EOF
	}
}

// WriteFrame implements can.FrameWriter.
func (p *ReadWriter) WriteFrame(f can.Frame) error {
	payload, err := msgs.EncodeFrame(f)
	if err != nil {
		return err
	}
	token := p.Queue.Pub(p.PubTopic, payload, false)
	token.Wait()
	return token.Error()
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, p.handleMsg)
	<-ctx.Done()
	sub.Close()
	p.stop()
	return ctx.Err()
}

// stop releases ReadFrame and blocked handleMsg calls. frameCh stays
// open as handleMsg may still run on the client goroutine.
func (p *ReadWriter) stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

func (p *ReadWriter) handleMsg(topic string, payload []byte) {
	f, err := msgs.DecodeFrame(payload)
	if err != nil {
		glog.Errorf("drop frame on %q: %v", topic, err)
		return
	}
	select {
	case p.frameCh <- f:
	case <-p.done:
		glog.V(4).Infof("drop frame on %q: stopped", topic)
	}
}

// PublishMeta publishes retained JSON metadata of a node.
func PublishMeta(q *Queue, node byte, meta interface{}) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	token := q.Pub(NodeTopic(node)+TopicMeta, payload, true)
	token.Wait()
	return token.Error()
}

package mqtt

import (
	"context"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/ambsi.go/pkg/can"
	"github.com/robotalks/ambsi.go/pkg/can/msgs"
)

// TopicStatus is the suffix of the retained status topic.
const TopicStatus = "/status"

// Endpoint connects a bridge node to the broker: frames on node/rx and
// node/tx, retained meta and status. The meta is cleared by a will when
// the connection is lost.
type Endpoint struct {
	Queue      *Queue
	ReadWriter *ReadWriter
	Node       byte
	Meta       interface{}
}

// NewEndpoint creates an Endpoint.
func NewEndpoint(brokerURL string, node byte, clientID string, meta interface{}) (*Endpoint, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+NodeTopic(node)+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID(clientID)
	}
	e := &Endpoint{Queue: NewQueue(opts, topicPrefix), Node: node, Meta: meta}
	e.ReadWriter = NewReadWriter(e.Queue).ForBridge(node)
	e.Queue.OnConnect = func(q *Queue) {
		if err := PublishMeta(q, node, e.Meta); err != nil {
			glog.Errorf("publish meta: %v", err)
		}
	}
	return e, nil
}

// ReadFrame implements can.FrameReader.
func (e *Endpoint) ReadFrame() (can.Frame, error) {
	return e.ReadWriter.ReadFrame()
}

// WriteFrame implements can.FrameWriter.
func (e *Endpoint) WriteFrame(f can.Frame) error {
	return e.ReadWriter.WriteFrame(f)
}

// PublishStatus publishes retained status of the node.
func (e *Endpoint) PublishStatus(status *msgs.Status) error {
	payload, err := proto.Marshal(status)
	if err != nil {
		return err
	}
	token := e.Queue.Pub(NodeTopic(e.Node)+TopicStatus, payload, true)
	token.Wait()
	return token.Error()
}

// Run implements Runnable.
func (e *Endpoint) Run(ctx context.Context) error {
	if err := e.Queue.Connect(); err != nil {
		return err
	}
	err := e.ReadWriter.Run(ctx)
	e.Queue.Pub(NodeTopic(e.Node)+TopicMeta, nil, true).Wait()
	e.Queue.Close()
	return err
}

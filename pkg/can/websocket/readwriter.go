// Package websocket carries CAN frames over websocket connections,
// one binary message per frame.
package websocket

import (
	"net/http"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/ambsi.go/pkg/can"
	"github.com/robotalks/ambsi.go/pkg/can/msgs"
)

// ReadWriter implements can.ReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a bridge websocket endpoint.
func Dial(url, origin string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadFrame implements can.FrameReader.
func (p *ReadWriter) ReadFrame() (can.Frame, error) {
	var pkt []byte
	if err := websocket.Message.Receive((*websocket.Conn)(p), &pkt); err != nil {
		return can.Frame{}, err
	}
	return msgs.DecodeFrame(pkt)
}

// WriteFrame implements can.FrameWriter.
func (p *ReadWriter) WriteFrame(f can.Frame) error {
	pkt, err := msgs.EncodeFrame(f)
	if err != nil {
		return err
	}
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close closes the connection.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// Handler creates an http.Handler serving each connection with fn.
// The connection is closed when fn returns.
func Handler(fn func(*ReadWriter)) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		glog.V(2).Infof("websocket connected from %s", conn.Request().RemoteAddr)
		fn(New(conn))
	})
}

// Package stream carries CAN frames over a byte stream, e.g. a serial port.
package stream

import (
	"io"

	"github.com/robotalks/ambsi.go/pkg/can"
)

// ReadWriter implements can.ReadWriter.
// Each frame is a fixed 16-byte SocketCAN record.
type ReadWriter struct {
	io.ReadWriter
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{s}
}

// ReadFrame implements FrameReader.
func (p *ReadWriter) ReadFrame() (f can.Frame, err error) {
	var buf [can.WireSize]byte
	if _, err = io.ReadFull(p, buf[:]); err != nil {
		return
	}
	err = f.UnmarshalBinary(buf[:])
	return
}

// WriteFrame implements FrameWriter.
func (p *ReadWriter) WriteFrame(f can.Frame) error {
	b, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = p.Write(b)
	return err
}

// Close implements io.Closer when the underlying stream does.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

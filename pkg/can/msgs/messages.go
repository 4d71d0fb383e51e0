package msgs

import (
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/ambsi.go/pkg/can"
)

// Frame is the wire form of a CAN frame.
type Frame struct {
	Id   uint32 `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	Data []byte `protobuf:"bytes,2,opt,name=data,proto3" json:"data,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Frame) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Frame) Reset() { *m = Frame{} }

// String implements proto.Message.
func (m *Frame) String() string { return proto.CompactTextString(m) }

// FrameFrom converts a can.Frame.
func FrameFrom(f can.Frame) *Frame {
	m := &Frame{Id: f.ID}
	if f.Len > 0 {
		m.Data = append([]byte(nil), f.Payload()...)
	}
	return m
}

// CAN converts back to can.Frame.
func (m *Frame) CAN() (can.Frame, error) {
	return can.NewFrame(m.Id, m.Data...)
}

// EncodeFrame marshals a can.Frame.
func EncodeFrame(f can.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return proto.Marshal(FrameFrom(f))
}

// DecodeFrame unmarshals a can.Frame.
func DecodeFrame(data []byte) (can.Frame, error) {
	var m Frame
	if err := proto.Unmarshal(data, &m); err != nil {
		return can.Frame{}, fmt.Errorf("%w: %v", can.ErrMalformedFrame, err)
	}
	return m.CAN()
}

// Range is a negotiated address range.
type Range struct {
	Low  uint32 `protobuf:"varint,1,opt,name=low,proto3" json:"low,omitempty"`
	High uint32 `protobuf:"varint,2,opt,name=high,proto3" json:"high,omitempty"`
	Role string `protobuf:"bytes,3,opt,name=role,proto3" json:"role,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Range) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Range) Reset() { *m = Range{} }

// String implements proto.Message.
func (m *Range) String() string { return proto.CompactTextString(m) }

// Status is published by the bridge whenever link state changes.
type Status struct {
	Node      uint32   `protobuf:"varint,1,opt,name=node,proto3" json:"node,omitempty"`
	LinkState string   `protobuf:"bytes,2,opt,name=link_state,proto3" json:"link_state,omitempty"`
	SetupCode uint32   `protobuf:"varint,3,opt,name=setup_code,proto3" json:"setup_code,omitempty"`
	Bindings  []*Range `protobuf:"bytes,4,rep,name=bindings,proto3" json:"bindings,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Status) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Status) Reset() { *m = Status{} }

// String implements proto.Message.
func (m *Status) String() string { return proto.CompactTextString(m) }

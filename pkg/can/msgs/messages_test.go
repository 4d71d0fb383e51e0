package msgs

import (
	"errors"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/ambsi.go/pkg/can"
)

func TestFrameCodec(t *testing.T) {
	testCases := []struct {
		name  string
		frame can.Frame
	}{
		{"empty", can.Frame{ID: 0x60000}},
		{"payload", can.Frame{ID: 0x60001, Len: 8, Data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeFrame(tc.frame)
			require.NoError(t, err)
			f, err := DecodeFrame(data)
			require.NoError(t, err)
			require.Equal(t, tc.frame, f)
		})
	}
}

func TestFrameRejectsOversize(t *testing.T) {
	data, err := proto.Marshal(&Frame{Id: 1, Data: make([]byte, 9)})
	require.NoError(t, err)
	_, err = DecodeFrame(data)
	require.Equal(t, can.ErrInvalidLen, err)
	_, err = EncodeFrame(can.Frame{ID: can.MaxID + 1})
	require.Equal(t, can.ErrInvalidID, err)
}

func TestDecodeFrameGarbage(t *testing.T) {
	_, err := DecodeFrame([]byte{0xff, 0xff, 0xff})
	require.True(t, errors.Is(err, can.ErrMalformedFrame))
	require.True(t, can.IsMalformed(err))
}

func TestStatusMarshal(t *testing.T) {
	status := &Status{
		Node:      1,
		LinkState: "initialized",
		Bindings:  []*Range{{Low: 0x20000, High: 0x20000, Role: "version"}},
	}
	data, err := proto.Marshal(status)
	require.NoError(t, err)
	var decoded Status
	require.NoError(t, proto.Unmarshal(data, &decoded))
	require.Equal(t, status.LinkState, decoded.LinkState)
	require.Len(t, decoded.Bindings, 1)
	require.Equal(t, uint32(0x20000), decoded.Bindings[0].Low)
	require.Equal(t, "version", decoded.Bindings[0].Role)
}

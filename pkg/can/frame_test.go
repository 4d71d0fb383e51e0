package can

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameMarshal(t *testing.T) {
	testCases := []struct {
		name   string
		frame  Frame
		expect []byte
	}{
		{
			"monitor request",
			Frame{ID: 0x60003},
			[]byte{0x03, 0x00, 0x06, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			"control request",
			Frame{ID: 0x1fffffff, Len: 3, Data: [8]byte{1, 2, 3, 4}},
			[]byte{0xff, 0xff, 0xff, 0x9f, 3, 0, 0, 0, 1, 2, 3, 0, 0, 0, 0, 0},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := tc.frame.MarshalBinary()
			require.NoError(t, err)
			require.Equal(t, tc.expect, b)
			var f Frame
			require.NoError(t, f.UnmarshalBinary(b))
			expect := tc.frame
			expect.Data = [8]byte{}
			copy(expect.Data[:], tc.frame.Payload())
			require.Equal(t, expect, f)
		})
	}
}

func TestFrameInvalid(t *testing.T) {
	_, err := Frame{ID: MaxID + 1}.MarshalBinary()
	require.Equal(t, ErrInvalidID, err)
	_, err = Frame{Len: 9}.MarshalBinary()
	require.Equal(t, ErrInvalidLen, err)
	_, err = NewFrame(1, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	require.Equal(t, ErrInvalidLen, err)

	var f Frame
	require.Equal(t, ErrShortFrame, f.UnmarshalBinary(make([]byte, 15)))
	b := make([]byte, WireSize)
	b[4] = 9
	require.Equal(t, ErrInvalidLen, f.UnmarshalBinary(b))
}

func TestIsMalformed(t *testing.T) {
	require.True(t, IsMalformed(ErrInvalidLen))
	require.True(t, IsMalformed(ErrInvalidID))
	require.True(t, IsMalformed(fmt.Errorf("decode: %w", ErrMalformedFrame)))
	require.False(t, IsMalformed(io.EOF))
	require.False(t, IsMalformed(io.ErrUnexpectedEOF))
}

func TestFrameStandardID(t *testing.T) {
	b := []byte{0x23, 0x41, 0, 0, 1, 0, 0, 0, 0xaa, 0, 0, 0, 0, 0, 0, 0}
	var f Frame
	require.NoError(t, f.UnmarshalBinary(b))
	require.Equal(t, uint32(0x123), f.ID)
	require.Equal(t, []byte{0xaa}, f.Payload())
}

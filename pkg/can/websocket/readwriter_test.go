package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ambsi.go/pkg/can"
)

func TestFrameEcho(t *testing.T) {
	srv := httptest.NewServer(Handler(func(rw *ReadWriter) {
		for {
			f, err := rw.ReadFrame()
			if err != nil {
				return
			}
			if rw.WriteFrame(f) != nil {
				return
			}
		}
	}))
	defer srv.Close()

	rw, err := Dial("ws"+strings.TrimPrefix(srv.URL, "http"), srv.URL)
	require.NoError(t, err)
	defer rw.Close()

	f, err := can.NewFrame(0x40000, 1, 2, 3)
	require.NoError(t, err)
	require.NoError(t, rw.WriteFrame(f))
	echo, err := rw.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, f, echo)
}

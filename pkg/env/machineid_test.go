package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientID(t *testing.T) {
	require.Equal(t, "ambsi:0123456789ab:1f", ClientID("0123456789abcdef", 0x1f))
	require.Equal(t, "ambsi:unknown:00", ClientID("", 0))
}

package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ambsi.go/pkg/amb"
)

func TestRangeRoundTrip(t *testing.T) {
	r := Range{Low: 0x00020002, High: 0x00020FFF}
	b := r.Encode()
	require.Equal(t, [8]byte{0x02, 0x00, 0x02, 0x00, 0xFF, 0x0F, 0x02, 0x00}, b)
	require.Equal(t, r, DecodeRange(b))
}

func TestRangeCarve(t *testing.T) {
	block := Range{Low: 0x20010, High: 0x20014}
	cases := []struct {
		name  string
		r     Range
		parts []Range
	}{
		{"around", Range{0x20000, 0x2FFFF}, []Range{{0x20000, 0x2000F}, {0x20015, 0x2FFFF}}},
		{"below", Range{0x10000, 0x1FFFF}, []Range{{0x10000, 0x1FFFF}}},
		{"above", Range{0x20015, 0x20100}, []Range{{0x20015, 0x20100}}},
		{"low-edge", Range{0x20010, 0x20100}, []Range{{0x20015, 0x20100}}},
		{"high-edge", Range{0x20000, 0x20014}, []Range{{0x20000, 0x2000F}}},
		{"inside", Range{0x20011, 0x20012}, nil},
		{"exact", block, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.parts, c.r.Carve(block))
		})
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Low: 0x100, High: 0x1FF}
	require.True(t, r.Contains(0x100))
	require.True(t, r.Contains(0x1FF))
	require.False(t, r.Contains(0xFF))
	require.False(t, r.Contains(0x200))
	require.True(t, Single(5).Contains(5))
	require.False(t, Range{Low: 2, High: 1}.Valid())
}

func nopHandler(*amb.Message) error { return nil }

func TestRouterBindRollback(t *testing.T) {
	slave := amb.NewSlave(0)
	r := New(slave)
	require.NoError(t, r.Bind(RoleVersion, Single(0x20000), amb.HandlerFunc(nopHandler)))
	require.NoError(t, r.Bind(RoleSetup, Single(0x20001), amb.HandlerFunc(nopHandler)))

	mark := r.Mark()
	require.Equal(t, 2, mark)
	require.NoError(t, r.Bind(RoleMonitorForward, Range{0x21000, 0x21FFF}, amb.HandlerFunc(nopHandler)))
	require.NoError(t, r.Bind(RoleControlForward, Range{0x22000, 0x22FFF}, amb.HandlerFunc(nopHandler)))
	require.Equal(t, 4, slave.NumCallbacks())

	require.NoError(t, r.Rollback(mark))
	require.Equal(t, 2, slave.NumCallbacks())
	bindings := r.Bindings()
	require.Len(t, bindings, 2)
	require.Equal(t, RoleVersion, bindings[0].Role)
	require.Equal(t, RoleSetup, bindings[1].Role)

	require.NoError(t, r.Rollback(mark))
	require.Equal(t, 2, r.Len())
}

func TestRouterLookupFirstMatch(t *testing.T) {
	r := New(amb.NewSlave(0))
	require.NoError(t, r.Bind(RoleDiagnostic, Range{0x20010, 0x20014}, amb.HandlerFunc(nopHandler)))
	require.NoError(t, r.Bind(RoleMonitorForward, Range{0x20000, 0x2FFFF}, amb.HandlerFunc(nopHandler)))

	b, ok := r.Lookup(0x20012)
	require.True(t, ok)
	require.Equal(t, RoleDiagnostic, b.Role)
	b, ok = r.Lookup(0x20020)
	require.True(t, ok)
	require.Equal(t, RoleMonitorForward, b.Role)
	_, ok = r.Lookup(0x30000)
	require.False(t, ok)
}

func TestRouterBindErrors(t *testing.T) {
	slave := amb.NewSlave(0)
	slave.Capacity = 1
	r := New(slave)

	err := r.Bind(RoleVersion, Range{Low: 2, High: 1}, amb.HandlerFunc(nopHandler))
	require.True(t, errors.Is(err, ErrInvalidRange))

	require.NoError(t, r.Bind(RoleVersion, Single(0x20000), amb.HandlerFunc(nopHandler)))
	err = r.Bind(RoleSetup, Single(0x20001), amb.HandlerFunc(nopHandler))
	require.True(t, errors.Is(err, amb.ErrTableFull))
	var bindErr *BindError
	require.True(t, errors.As(err, &bindErr))
	require.Equal(t, RoleSetup, bindErr.Role)
	require.Equal(t, 1, r.Len())
}

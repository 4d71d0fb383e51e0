package main

import (
	"encoding/binary"

	"github.com/robotalks/ambsi.go/pkg/bridge"
	"github.com/robotalks/ambsi.go/pkg/link/sim"
	"github.com/robotalks/ambsi.go/pkg/router"
	"github.com/robotalks/ambsi.go/pkg/setup"
)

// Ranges the simulated peer claims during setup.
var simRanges = map[uint32]router.Range{
	setup.RCASpecialMonitorRanges: {Low: bridge.RCAPeerVersion, High: 0x200ff},
	setup.RCASpecialControlRanges: {Low: 0x21000, High: 0x210ff},
	setup.RCAMonitorRanges:        {Low: 0x00001, High: 0x0ffff},
	setup.RCAControlRanges:        {Low: 0x10000, High: 0x1ffff},
}

var simVersion = []byte{0, 1, 0}

// newSimPeer creates a ready peer which replies the RCA to every monitor point.
func newSimPeer() *sim.Peer {
	peer := sim.New()
	peer.MaxLog = 64
	peer.Responder = func(rca uint32) []byte {
		if rng, ok := simRanges[rca]; ok {
			b := rng.Encode()
			return b[:]
		}
		if rca == bridge.RCAPeerVersion {
			return simVersion
		}
		reply := make([]byte, 4)
		binary.BigEndian.PutUint32(reply, rca)
		return reply
	}
	peer.SetReady(true)
	return peer
}

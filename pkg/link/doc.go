// Package link implements the handshake transfer protocol with the peer
// controller over the parallel lines.
//
// Every byte is one phase: wait for the peer's strobe with a bounded
// countdown, drive or sample the data lines, then pulse ack. A transaction
// is a sequence of phases framed by the attention line. Phases are polled,
// never timed by the wall clock, so Lines can be simulated deterministically.
package link

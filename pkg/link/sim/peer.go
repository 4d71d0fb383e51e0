// Package sim simulates the peer controller on the parallel lines.
package sim

import (
	"encoding/binary"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/ambsi.go/pkg/amb"
	"github.com/robotalks/ambsi.go/pkg/link"
)

// Steps of a transaction as seen by the peer, counted by ack pulses.
const (
	StepAddress0    = 0
	StepLength      = 4
	StepReplyLength = 5
	StepReplyData   = 6
	StepControlData = 5
)

// Forever stalls a step in every transaction.
const Forever = -1

// Responder produces the reply payload of a monitor request.
type Responder func(rca uint32) []byte

// Transaction is what the peer received during one attention period.
type Transaction struct {
	Dir     amb.Direction
	RCA     uint32
	Len     byte
	Data    []byte
	Reply   []byte
	Stalled bool
}

// WireByte is a byte seen on the data lines.
type WireByte struct {
	Step      int
	Direction link.Direction
	Value     byte
}

// Peer implements link.Lines as the peer would drive them.
type Peer struct {
	// Responder overrides Registers when set.
	Responder Responder
	// Registers are monitor replies by RCA.
	Registers map[uint32][]byte
	// MaxLog bounds the recorded transactions, 0 for unbounded.
	MaxLog int

	lock      sync.Mutex
	ready     bool
	attention bool
	selected  bool
	direction link.Direction
	delays    map[int]int
	stalls    map[int]int
	rawLen    int

	step    int
	polls   int
	stalled map[int]bool
	req     []byte
	reply   []byte
	readPos int
	sensed  bool

	txns []Transaction
	acks int
	wire []WireByte
}

// New creates a Peer.
func New() *Peer {
	return &Peer{
		Registers: make(map[uint32][]byte),
		delays:    make(map[int]int),
		stalls:    make(map[int]int),
		rawLen:    -1,
	}
}

// SetReady drives the peer ready line.
func (p *Peer) SetReady(ready bool) {
	p.lock.Lock()
	p.ready = ready
	p.lock.Unlock()
}

// Delay makes the peer assert strobe after polls polls at step.
func (p *Peer) Delay(step, polls int) {
	p.lock.Lock()
	p.delays[step] = polls
	p.lock.Unlock()
}

// Stall keeps strobe low at step for the next count transactions,
// or every transaction with Forever.
func (p *Peer) Stall(step, count int) {
	p.lock.Lock()
	p.stalls[step] = count
	p.lock.Unlock()
}

// SetRawReplyLength makes the peer report n as reply length
// regardless of the payload. Negative restores normal replies.
func (p *Peer) SetRawReplyLength(n int) {
	p.lock.Lock()
	p.rawLen = n
	p.lock.Unlock()
}

// Transactions returns the completed attention periods.
func (p *Peer) Transactions() []Transaction {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]Transaction(nil), p.txns...)
}

// Acks returns the number of ack pulses.
func (p *Peer) Acks() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.acks
}

// Wire returns all bytes seen on the data lines.
func (p *Peer) Wire() []WireByte {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]WireByte(nil), p.wire...)
}

// Selected tells the state of the select line.
func (p *Peer) Selected() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.selected
}

// Direction returns the current direction of the data lines.
func (p *Peer) Direction() link.Direction {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.direction
}

// Attention tells the state of the attention line.
func (p *Peer) Attention() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.attention
}

// ClearLog drops recorded transactions, acks and wire bytes.
func (p *Peer) ClearLog() {
	p.lock.Lock()
	p.txns, p.acks, p.wire = nil, 0, nil
	p.lock.Unlock()
}

// SetAttention implements link.Lines.
func (p *Peer) SetAttention(on bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if on == p.attention {
		return
	}
	p.attention = on
	if on {
		p.begin()
	} else {
		p.finish()
	}
}

// StrobeAsserted implements link.Lines.
func (p *Peer) StrobeAsserted() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.attention || p.stalled[p.step] {
		return false
	}
	if p.polls < p.delays[p.step] {
		p.polls++
		return false
	}
	return true
}

// SetDirection implements link.Lines.
func (p *Peer) SetDirection(dir link.Direction) {
	p.lock.Lock()
	p.direction = dir
	if dir == link.Sense && p.attention {
		p.sensed = true
	}
	p.lock.Unlock()
}

// Put implements link.Lines.
func (p *Peer) Put(b byte) {
	p.lock.Lock()
	p.wire = append(p.wire, WireByte{Step: p.step, Direction: link.Drive, Value: b})
	p.req = append(p.req, b)
	p.lock.Unlock()
}

// Get implements link.Lines.
func (p *Peer) Get() byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.reply == nil {
		p.reply = p.respond()
	}
	var b byte
	if p.readPos < len(p.reply) {
		b = p.reply[p.readPos]
	}
	p.readPos++
	p.wire = append(p.wire, WireByte{Step: p.step, Direction: link.Sense, Value: b})
	return b
}

// Ack implements link.Lines.
func (p *Peer) Ack() {
	p.lock.Lock()
	p.acks++
	p.step++
	p.polls = 0
	p.lock.Unlock()
}

// SetSelect implements link.Lines.
func (p *Peer) SetSelect(on bool) {
	p.lock.Lock()
	p.selected = on
	p.lock.Unlock()
}

// PeerReady implements link.Lines.
func (p *Peer) PeerReady() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.ready
}

func (p *Peer) begin() {
	p.step, p.polls, p.readPos, p.sensed = 0, 0, 0, false
	p.req, p.reply = nil, nil
	p.stalled = make(map[int]bool)
	for step, count := range p.stalls {
		if count == 0 {
			continue
		}
		p.stalled[step] = true
		if count > 0 {
			p.stalls[step] = count - 1
		}
	}
}

func (p *Peer) finish() {
	t := Transaction{Dir: amb.Control, Stalled: len(p.stalled) > 0}
	if len(p.req) >= 4 {
		t.RCA = binary.LittleEndian.Uint32(p.req[:4])
	}
	if len(p.req) > StepLength {
		t.Len = p.req[StepLength]
		t.Data = append([]byte(nil), p.req[StepLength+1:]...)
	}
	if p.sensed {
		t.Dir = amb.Monitor
		if n := p.readPos; n > 1 && len(p.reply) > 1 {
			if n > len(p.reply) {
				n = len(p.reply)
			}
			t.Reply = append([]byte(nil), p.reply[1:n]...)
		}
	}
	glog.V(4).Infof("peer %s rca=%06x len=%d", t.Dir, t.RCA, t.Len)
	p.txns = append(p.txns, t)
	if p.MaxLog > 0 && len(p.txns) > p.MaxLog {
		p.txns = append([]Transaction(nil), p.txns[len(p.txns)-p.MaxLog:]...)
		p.wire = nil
	}
}

// respond builds the reply: length byte followed by payload.
func (p *Peer) respond() []byte {
	var rca uint32
	if len(p.req) >= 4 {
		rca = binary.LittleEndian.Uint32(p.req[:4])
	}
	var data []byte
	if p.Responder != nil {
		data = p.Responder(rca)
	} else {
		data = p.Registers[rca]
	}
	size := byte(len(data))
	if p.rawLen >= 0 {
		size = byte(p.rawLen)
	}
	return append([]byte{size}, data...)
}

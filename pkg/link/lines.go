package link

// Direction is the direction of the shared data lines.
type Direction int

// Directions.
const (
	Drive Direction = iota
	Sense
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Sense {
		return "sense"
	}
	return "drive"
}

// Mode selects what a phase does with the data lines.
type Mode int

// Modes.
const (
	Write Mode = iota
	Read
)

// Lines are the hardware signals owned by the Engine.
type Lines interface {
	// SetAttention drives the attention (interrupt) line to the peer.
	SetAttention(bool)
	// StrobeAsserted samples the peer's data strobe.
	StrobeAsserted() bool
	// SetDirection switches the shared data lines.
	SetDirection(Direction)
	// Put drives a byte on the data lines.
	Put(byte)
	// Get samples the data lines.
	Get() byte
	// Ack pulses the acknowledge line high then low.
	Ack()
	// SetSelect drives the select line.
	SetSelect(bool)
	// PeerReady samples the peer's ready line.
	PeerReady() bool
}

// LineState is a snapshot of driven outputs and sampled inputs.
type LineState struct {
	Attention bool
	Select    bool
	Direction Direction
	Strobe    bool
	PeerReady bool
}

// Line state bits.
const (
	BitAttention byte = 1 << iota
	BitSelect
	BitSense
	BitStrobe
	BitPeerReady
)

// Bits packs the state into one byte.
func (s LineState) Bits() (b byte) {
	if s.Attention {
		b |= BitAttention
	}
	if s.Select {
		b |= BitSelect
	}
	if s.Direction == Sense {
		b |= BitSense
	}
	if s.Strobe {
		b |= BitStrobe
	}
	if s.PeerReady {
		b |= BitPeerReady
	}
	return
}

package link

// MaxCeiling is the longest countdown of a phase.
const MaxCeiling uint16 = 0xFFFF

// Phase identifies one byte exchange in a transaction.
type Phase int

// Phases in transaction order.
const (
	PhaseAddress0 Phase = iota
	PhaseAddress1
	PhaseAddress2
	PhaseAddress3
	PhaseLength
	PhaseReplyLength
	PhasePayload
)

var phaseNames = [...]string{
	"address0", "address1", "address2", "address3",
	"length", "reply-length", "payload",
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// PhaseTimers keeps the remaining countdown of every phase of a
// transaction. Zero means the phase timed out. Phases that did not run
// keep Ceiling.
type PhaseTimers struct {
	Address      [4]uint16
	Length       uint16
	ReplyLength  uint16
	Payload      [8]uint16
	PayloadCount int
	Ceiling      uint16
}

func (t *PhaseTimers) reset(ceiling uint16) {
	*t = PhaseTimers{
		Length:      ceiling,
		ReplyLength: ceiling,
		Ceiling:     ceiling,
	}
	for n := range t.Address {
		t.Address[n] = ceiling
	}
	for n := range t.Payload {
		t.Payload[n] = ceiling
	}
}

// LowestPayload returns the smallest countdown of payload phases.
func (t PhaseTimers) LowestPayload() uint16 {
	lowest := t.Ceiling
	for _, v := range t.Payload[:t.PayloadCount] {
		if v < lowest {
			lowest = v
		}
	}
	return lowest
}

// LastPayload returns the countdown of the last payload phase.
func (t PhaseTimers) LastPayload() uint16 {
	if t.PayloadCount == 0 {
		return t.Ceiling
	}
	return t.Payload[t.PayloadCount-1]
}

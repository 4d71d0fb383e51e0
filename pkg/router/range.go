// Package router binds RCA ranges to handler roles.
package router

import (
	"encoding/binary"
	"fmt"
)

// Range is an inclusive RCA range.
type Range struct {
	Low  uint32
	High uint32
}

// Single is the range of one address.
func Single(rca uint32) Range {
	return Range{Low: rca, High: rca}
}

// Valid tells if Low doesn't exceed High.
func (r Range) Valid() bool {
	return r.Low <= r.High
}

// Contains tells if rca is in the range.
func (r Range) Contains(rca uint32) bool {
	return rca >= r.Low && rca <= r.High
}

// Overlaps tells if two ranges share any address.
func (r Range) Overlaps(o Range) bool {
	return r.Low <= o.High && o.Low <= r.High
}

// Encode returns the range reply: low then high, each LSB first.
func (r Range) Encode() (b [8]byte) {
	binary.LittleEndian.PutUint32(b[0:4], r.Low)
	binary.LittleEndian.PutUint32(b[4:8], r.High)
	return
}

// DecodeRange decodes a range reply.
func DecodeRange(b [8]byte) Range {
	return Range{
		Low:  binary.LittleEndian.Uint32(b[0:4]),
		High: binary.LittleEndian.Uint32(b[4:8]),
	}
}

// Carve removes block from the range and returns the non-empty parts
// below and above it, in that order.
func (r Range) Carve(block Range) []Range {
	if !r.Overlaps(block) {
		return []Range{r}
	}
	var parts []Range
	if r.Low < block.Low {
		parts = append(parts, Range{Low: r.Low, High: block.Low - 1})
	}
	if r.High > block.High {
		parts = append(parts, Range{Low: block.High + 1, High: r.High})
	}
	return parts
}

// String implements fmt.Stringer.
func (r Range) String() string {
	return fmt.Sprintf("[%05x, %05x]", r.Low, r.High)
}

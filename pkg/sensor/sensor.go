// Package sensor samples the ambient temperature of the bridge board.
package sensor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Sample is the raw reading: temperature LSB, temperature MSB,
// count remain and count per degree.
type Sample [4]byte

// Sensor reads a Sample.
type Sensor interface {
	Read() (Sample, error)
}

// Fixed is a Sensor always returning itself.
type Fixed Sample

// Read implements Sensor.
func (s Fixed) Read() (Sample, error) {
	return Sample(s), nil
}

var (
	// ErrCRC indicates the 1-wire driver reported a CRC mismatch.
	ErrCRC = errors.New("scratchpad crc mismatch")
	// ErrMalformed indicates the w1_slave content can't be parsed.
	ErrMalformed = errors.New("malformed w1_slave")
)

// W1Sensor reads a DS1820 through the Linux 1-wire sysfs w1_slave file.
type W1Sensor struct {
	Path string
}

// NewW1Sensor creates W1Sensor.
func NewW1Sensor(path string) *W1Sensor {
	return &W1Sensor{Path: path}
}

// Read implements Sensor.
func (s *W1Sensor) Read() (Sample, error) {
	content, err := os.ReadFile(s.Path)
	if err != nil {
		return Sample{}, err
	}
	return ParseW1Slave(string(content))
}

// ParseW1Slave extracts the sample from the scratchpad dump of w1_slave:
//
//	2d 00 4b 46 ff ff 06 10 c9 : crc=c9 YES
//	2d 00 4b 46 ff ff 06 10 c9 t=22437
func ParseW1Slave(content string) (Sample, error) {
	line := content
	if n := strings.IndexByte(content, '\n'); n >= 0 {
		line = content[:n]
	}
	fields := strings.Fields(line)
	if len(fields) < 11 || fields[9] != ":" {
		return Sample{}, ErrMalformed
	}
	if fields[len(fields)-1] != "YES" {
		return Sample{}, ErrCRC
	}
	var scratchpad [9]byte
	for n := range scratchpad {
		v, err := strconv.ParseUint(fields[n], 16, 8)
		if err != nil {
			return Sample{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		scratchpad[n] = byte(v)
	}
	return Sample{scratchpad[0], scratchpad[1], scratchpad[6], scratchpad[7]}, nil
}

// Celsius converts the sample using the extended resolution formula
// of the DS1820.
func (s Sample) Celsius() float64 {
	raw := int16(uint16(s[1])<<8 | uint16(s[0]))
	t := float64(raw>>1) - 0.25
	if s[3] != 0 {
		t += (float64(s[3]) - float64(s[2])) / float64(s[3])
	}
	return t
}

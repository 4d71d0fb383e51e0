package sensor

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/golang/glog"
	"go.uber.org/atomic"

	fx "github.com/robotalks/ambsi.go/pkg/framework"
)

// DefaultPeriod is the default sampling period.
const DefaultPeriod = time.Second

// Sampler keeps the most recent sample of a Sensor.
type Sampler struct {
	Sensor Sensor
	Period time.Duration

	sample  atomic.Uint32
	samples atomic.Uint32
	errors  atomic.Uint32
}

// NewSampler creates a Sampler.
func NewSampler(sensor Sensor) *Sampler {
	return &Sampler{Sensor: sensor, Period: DefaultPeriod}
}

// AddToLoop implements LoopAdder.
func (s *Sampler) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(fx.NamedRun("sampler", s))
}

// Run implements Runnable. The sensor is read off the loop goroutine
// since a conversion may take most of a second.
func (s *Sampler) Run(ctx context.Context) error {
	period := s.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		s.Update()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Update reads the sensor once.
func (s *Sampler) Update() error {
	sample, err := s.Sensor.Read()
	if err != nil {
		if s.errors.Inc() == 1 {
			glog.Errorf("sensor: %v", err)
		}
		return err
	}
	s.sample.Store(binary.LittleEndian.Uint32(sample[:]))
	s.samples.Inc()
	return nil
}

// Sample returns the most recent sample, zero before the first read.
func (s *Sampler) Sample() (sample Sample) {
	binary.LittleEndian.PutUint32(sample[:], s.sample.Load())
	return
}

// Stats returns the number of successful reads and failures.
func (s *Sampler) Stats() (samples, errors uint32) {
	return s.samples.Load(), s.errors.Load()
}

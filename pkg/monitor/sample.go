// Package monitor turns periodic spot measurements of an SMU channel into a
// stream of numeric samples and keeps a time window of them for display.
package monitor

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/itohio/gosmu/pkg/smu"
)

// DefaultBufferSize is the default size of sample channel buffers.
const DefaultBufferSize = 100

// Sample is one voltage/current reading pair of a channel.
type Sample struct {
	Timestamp time.Time
	Channel   string
	Voltage   float64 // V
	Current   float64 // A
	Power     float64 // W, Voltage * Current
}

// Measurer is the part of smu.Channel the poller uses.
type Measurer interface {
	ID() string
	MeasureVoltage() (string, error)
	MeasureCurrent() (string, error)
}

var _ Measurer = (*smu.Channel)(nil)

// Poller measures a channel at a fixed interval.
type Poller struct {
	ch       Measurer
	interval time.Duration
	bufSize  int
	now      func() time.Time
}

// NewPoller creates a poller for ch. Note that every spot measurement switches
// the channel output on.
func NewPoller(ch Measurer, interval time.Duration, bufSize int) *Poller {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Poller{
		ch:       ch,
		interval: interval,
		bufSize:  bufSize,
		now:      time.Now,
	}
}

// Run starts polling. The returned channel is closed when ctx is done or the
// device is closed.
func (p *Poller) Run(ctx context.Context) <-chan Sample {
	out := make(chan Sample, p.bufSize)

	go func() {
		defer close(out)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s, err := p.measure()
				if err != nil {
					if errors.Is(err, smu.ErrNotConnected) {
						return
					}
					log.Printf("Failed to measure channel %s: %v", p.ch.ID(), err)
					continue
				}

				select {
				case out <- s:
				case <-ctx.Done():
					return
				default:
					log.Printf("Monitor output channel full, dropping sample")
				}
			}
		}
	}()

	return out
}

// measure takes one voltage and one current reading.
func (p *Poller) measure() (Sample, error) {
	rawV, err := p.ch.MeasureVoltage()
	if err != nil {
		return Sample{}, err
	}
	rawI, err := p.ch.MeasureCurrent()
	if err != nil {
		return Sample{}, err
	}

	v, err := smu.ParseReading(rawV)
	if err != nil {
		return Sample{}, err
	}
	i, err := smu.ParseReading(rawI)
	if err != nil {
		return Sample{}, err
	}

	return Sample{
		Timestamp: p.now(),
		Channel:   p.ch.ID(),
		Voltage:   v,
		Current:   i,
		Power:     v * i,
	}, nil
}

package monitor

import (
	"sync"
	"time"
)

// Recorder keeps the samples of a sliding time window and notifies listeners
// on every new sample.
type Recorder struct {
	window time.Duration

	mu       sync.RWMutex
	samples  []Sample // oldest first
	shutdown bool     // set when the input closes, suppresses callbacks

	cbMu      sync.RWMutex
	callbacks []func(samples []Sample)
}

// NewRecorder creates a recorder keeping window worth of samples.
func NewRecorder(window time.Duration) *Recorder {
	if window <= 0 {
		window = 30 * time.Second
	}
	return &Recorder{
		window:  window,
		samples: make([]Sample, 0),
	}
}

// Process consumes input until it closes. Callbacks stop once input closes.
func (r *Recorder) Process(input <-chan Sample) {
	for s := range input {
		r.add(s)
	}
	r.mu.Lock()
	r.shutdown = true
	r.mu.Unlock()
}

// add appends s and drops samples older than the window, measured from s.
func (r *Recorder) add(s Sample) {
	r.mu.Lock()
	r.samples = append(r.samples, s)

	cutoff := s.Timestamp.Add(-r.window)
	drop := 0
	for drop < len(r.samples) && !r.samples[drop].Timestamp.After(cutoff) {
		drop++
	}
	if drop > 0 {
		r.samples = r.samples[drop:]
	}

	notify := !r.shutdown
	r.mu.Unlock()

	if notify {
		r.notify()
	}
}

func (r *Recorder) notify() {
	samples := r.Samples()

	r.cbMu.RLock()
	defer r.cbMu.RUnlock()
	for _, cb := range r.callbacks {
		cb(samples)
	}
}

// OnUpdate registers a callback receiving a copy of the window after each sample.
func (r *Recorder) OnUpdate(cb func(samples []Sample)) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// Samples returns a copy of the current window, oldest first.
func (r *Recorder) Samples() []Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Sample, len(r.samples))
	copy(result, r.samples)
	return result
}

// Latest returns the newest sample.
func (r *Recorder) Latest() (Sample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.samples) == 0 {
		return Sample{}, false
	}
	return r.samples[len(r.samples)-1], true
}

// Reset clears the window and re-enables callbacks for a new input stream.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = r.samples[:0]
	r.shutdown = false
}

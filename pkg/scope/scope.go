// Package scope provides an oscilloscope-style fyne widget plotting the
// voltage and current of a monitored SMU channel.
package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gosmu/pkg/monitor"
)

// maxDisplayPoints limits the number of points drawn per trace.
const maxDisplayPoints = 1000

// axis is the value range of one vertical scale.
type axis struct {
	min, max float64
}

// ScopeWidget displays voltage on the left scale and current on the right scale.
type ScopeWidget struct {
	widget.BaseWidget

	window time.Duration // minimum visible time span

	// Data (protected by mu)
	mu      sync.RWMutex
	display []monitor.Sample // downsampled, reused between updates
	voltage axis
	current axis
	xMin    time.Time
	xMax    time.Time
}

// New creates a new ScopeWidget showing at least window worth of time.
func New(window time.Duration) *ScopeWidget {
	if window <= 0 {
		window = 30 * time.Second
	}
	s := &ScopeWidget{
		window:  window,
		display: make([]monitor.Sample, 0, maxDisplayPoints),
	}
	s.updateAutoScale()
	s.ExtendBaseWidget(s)
	return s
}

// UpdateData replaces the plotted samples.
// This should be called from the recorder callback using fyne.Do().
func (s *ScopeWidget) UpdateData(samples []monitor.Sample) {
	s.mu.Lock()
	s.display = monitor.Downsample(s.display, samples, maxDisplayPoints)
	s.updateAutoScale()
	s.mu.Unlock()

	// Refresh outside the lock, the renderer takes a read lock
	s.Refresh()
}

// Clear removes all samples.
func (s *ScopeWidget) Clear() {
	s.UpdateData(nil)
}

// updateAutoScale calculates both vertical ranges and the time range.
func (s *ScopeWidget) updateAutoScale() {
	if len(s.display) == 0 {
		s.voltage = axis{min: 0, max: 1}
		s.current = axis{min: 0, max: 1}
		s.xMin = time.Now()
		s.xMax = s.xMin.Add(s.window)
		return
	}

	s.voltage = scaleAxis(s.display, func(v monitor.Sample) float64 { return v.Voltage })
	s.current = scaleAxis(s.display, func(v monitor.Sample) float64 { return v.Current })

	s.xMin = s.display[0].Timestamp
	s.xMax = s.display[len(s.display)-1].Timestamp
	if s.xMax.Sub(s.xMin) < s.window {
		s.xMax = s.xMin.Add(s.window)
	}
}

// scaleAxis returns the range of value over samples with a 10% margin.
func scaleAxis(samples []monitor.Sample, value func(monitor.Sample) float64) axis {
	if len(samples) == 0 {
		return axis{min: 0, max: 1}
	}

	a := axis{min: value(samples[0]), max: value(samples[0])}
	for _, s := range samples[1:] {
		v := value(s)
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
	}

	span := a.max - a.min
	if span == 0 {
		span = max(abs(a.max), 1e-9)
	}
	margin := span * 0.1
	a.min -= margin
	a.max += margin
	return a
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}

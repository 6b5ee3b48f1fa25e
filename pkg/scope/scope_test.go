package scope

import (
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"github.com/stretchr/testify/assert"

	"github.com/itohio/gosmu/pkg/monitor"
)

func TestScaleAxis(t *testing.T) {
	voltage := func(s monitor.Sample) float64 { return s.Voltage }

	tests := []struct {
		name     string
		samples  []monitor.Sample
		min, max float64
	}{
		{"empty", nil, 0, 1},
		{"range", []monitor.Sample{{Voltage: 0}, {Voltage: 10}, {Voltage: 5}}, -1, 11},
		{"flat", []monitor.Sample{{Voltage: 5}, {Voltage: 5}}, 4.5, 5.5},
		{"flat zero", []monitor.Sample{{Voltage: 0}}, -1e-10, 1e-10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := scaleAxis(tt.samples, voltage)
			assert.InDelta(t, tt.min, a.min, 1e-12)
			assert.InDelta(t, tt.max, a.max, 1e-12)
		})
	}
}

func TestPlotArea(t *testing.T) {
	p := newPlotArea(fyne.NewSize(540, 260))
	assert.Equal(t, float32(400), p.width)
	assert.Equal(t, float32(200), p.height)

	a := axis{min: 0, max: 10}
	assert.InDelta(t, p.y+p.height, p.valueY(0, a), 1e-4)
	assert.InDelta(t, p.y, p.valueY(10, a), 1e-4)
	assert.InDelta(t, p.y+p.height/2, p.valueY(5, a), 1e-4)
	// out of range values stay inside the plot
	assert.InDelta(t, p.y, p.valueY(100, a), 1e-4)
	assert.InDelta(t, p.y+p.height, p.valueY(0, axis{}), 1e-4)

	now := time.Now()
	assert.InDelta(t, p.x, p.timeX(now, now, now.Add(10*time.Second)), 1e-4)
	assert.InDelta(t, p.x+p.width/2, p.timeX(now.Add(5*time.Second), now, now.Add(10*time.Second)), 1e-3)
	assert.Equal(t, p.x, p.timeX(now, now, now))
}

func TestFormatSI(t *testing.T) {
	tests := []struct {
		v    float64
		unit string
		want string
	}{
		{0, "V", "0V"},
		{5, "V", "5V"},
		{-12.5, "V", "-12.5V"},
		{0.0015, "A", "1.5mA"},
		{2.5e-7, "A", "250nA"},
		{1e-5, "A", "10µA"},
		{2500, "W", "2.5kW"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatSI(tt.v, tt.unit))
		})
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "0.50s", formatTime(500*time.Millisecond))
	assert.Equal(t, "3.0s", formatTime(3*time.Second))
}

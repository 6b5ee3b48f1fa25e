package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// series builds n samples 10 ms apart at 5 V and 1 mA.
func series(n int) []Sample {
	now := time.Now()
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{
			Timestamp: now.Add(time.Duration(i) * 10 * time.Millisecond),
			Channel:   "1",
			Voltage:   5,
			Current:   0.001,
		}
	}
	return samples
}

func TestDownsample_NoDownsampling(t *testing.T) {
	samples := series(3)

	result := Downsample(nil, samples, 10)
	assert.Equal(t, samples, result)

	dst := make([]Sample, 0, 10)
	result = Downsample(dst, samples, 10)
	assert.Equal(t, samples, result)
	// Should reuse dst
	assert.Equal(t, cap(dst), cap(result))
}

func TestDownsample_KeepsCurrentSpike(t *testing.T) {
	samples := series(1000)
	samples[537].Current = 0.1 // compliance hit lasting one sample
	samples[812].Current = -0.05

	result := Downsample(nil, samples, 100)
	require.LessOrEqual(t, len(result), 100)

	var peak, dip float64
	for _, s := range result {
		peak = max(peak, s.Current)
		dip = min(dip, s.Current)
	}
	assert.Equal(t, 0.1, peak)
	assert.Equal(t, -0.05, dip)
}

func TestDownsample_KeepsVoltageExtremes(t *testing.T) {
	samples := series(1000)
	samples[3].Voltage = 0
	samples[998].Voltage = 20

	result := Downsample(nil, samples, 40)
	require.LessOrEqual(t, len(result), 40)
	assert.Contains(t, result, samples[3])
	assert.Contains(t, result, samples[998])
}

func TestDownsample_TimeOrder(t *testing.T) {
	samples := series(500)
	for i := range samples {
		// a sawtooth puts minima after maxima inside buckets
		samples[i].Voltage = float64(20 - i%7)
		samples[i].Current = float64(i % 5)
	}

	result := Downsample(nil, samples, 50)
	require.NotEmpty(t, result)
	require.LessOrEqual(t, len(result), 50)
	for i := 1; i < len(result); i++ {
		assert.True(t, result[i].Timestamp.After(result[i-1].Timestamp), "sample %d out of order", i)
	}
	assert.Equal(t, samples[0], result[0])
}

func TestDownsample_FlatSignal(t *testing.T) {
	samples := series(1000)

	dst := make([]Sample, 0, 200)
	result := Downsample(dst, samples, 100)
	// every extreme of a flat bucket is its first sample
	require.Len(t, result, 25)
	assert.Equal(t, cap(dst), cap(result))
	assert.Equal(t, samples[0], result[0])
	assert.Equal(t, samples[40], result[1])
}

func TestDownsample_Empty(t *testing.T) {
	assert.Empty(t, Downsample(nil, nil, 10))
	assert.Empty(t, Downsample(nil, nil, 0))
}

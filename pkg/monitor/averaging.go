package monitor

// Stage transforms a sample stream. It must close its output when the input closes.
type Stage func(in <-chan Sample) <-chan Sample

// NewAveraging creates a stage emitting the moving average of the last
// windowSize samples for every input sample.
func NewAveraging(windowSize int, bufSize int) Stage {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var buffer []Sample
			for s := range in {
				buffer = append(buffer, s)
				if len(buffer) > windowSize {
					buffer = buffer[1:] // Remove oldest
				}
				out <- average(buffer)
			}
		}()

		return out
	}
}

// average averages a slice of samples.
// Uses the most recent sample's timestamp and channel.
func average(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var sumV, sumI, sumP float64
	last := samples[len(samples)-1]

	for _, s := range samples {
		sumV += s.Voltage
		sumI += s.Current
		sumP += s.Power
	}

	n := float64(len(samples))
	return Sample{
		Timestamp: last.Timestamp,
		Channel:   last.Channel,
		Voltage:   sumV / n,
		Current:   sumI / n,
		Power:     sumP / n,
	}
}

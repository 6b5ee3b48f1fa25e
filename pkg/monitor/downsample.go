package monitor

import "slices"

// Downsample reduces samples to at most maxPoints for display. The samples are
// split into buckets of equal count and each bucket keeps the samples holding
// its lowest and highest voltage and current, in time order, so short spikes
// such as compliance hits stay visible. dst is reused when large enough.
func Downsample(dst []Sample, samples []Sample, maxPoints int) []Sample {
	if len(samples) <= maxPoints || len(samples) == 0 {
		return append(dst[:0], samples...)
	}

	// up to four samples per bucket
	buckets := max(maxPoints/4, 1)
	if cap(dst) >= buckets*4 {
		dst = dst[:0]
	} else {
		dst = make([]Sample, 0, buckets*4)
	}

	for b := range buckets {
		lo := b * len(samples) / buckets
		hi := (b + 1) * len(samples) / buckets

		picks := extremes(samples[lo:hi])
		slices.Sort(picks[:])
		prev := -1
		for _, i := range picks {
			if i != prev {
				dst = append(dst, samples[lo+i])
				prev = i
			}
		}
	}

	return dst
}

// extremes returns the indices of the minimum and maximum voltage and current
// of a non-empty bucket.
func extremes(bucket []Sample) [4]int {
	var minV, maxV, minI, maxI int
	for i, s := range bucket {
		if s.Voltage < bucket[minV].Voltage {
			minV = i
		}
		if s.Voltage > bucket[maxV].Voltage {
			maxV = i
		}
		if s.Current < bucket[minI].Current {
			minI = i
		}
		if s.Current > bucket[maxI].Current {
			maxI = i
		}
	}
	return [4]int{minV, maxV, minI, maxI}
}

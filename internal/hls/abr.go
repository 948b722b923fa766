package hls

import (
	"sync"
	"time"
)

const (
	defaultBandwidthEstimate = 500_000 // bits/s before any sample
	ewmaAlpha                = 0.3
	bandwidthSafetyFactor    = 0.8
	minSampleDuration        = time.Millisecond
)

// bandwidthEstimator keeps an exponentially weighted average of measured
// segment throughput.
type bandwidthEstimator struct {
	mu       sync.Mutex
	estimate float64
	samples  int
}

func (e *bandwidthEstimator) sample(bytes int, elapsed time.Duration) {
	if bytes <= 0 {
		return
	}
	elapsed = max(elapsed, minSampleDuration)
	bps := float64(bytes*8) / elapsed.Seconds()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.samples == 0 {
		e.estimate = bps
	} else {
		e.estimate = ewmaAlpha*bps + (1-ewmaAlpha)*e.estimate
	}
	e.samples++
}

func (e *bandwidthEstimator) bitsPerSecond() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.samples == 0 {
		return defaultBandwidthEstimate
	}
	return e.estimate
}

// selectLevel returns the highest level whose bandwidth fits within the
// safety margin of the estimate. levels must be sorted ascending; the lowest
// level is chosen when none fit.
func selectLevel(levels []uint32, estimate float64) int {
	budget := estimate * bandwidthSafetyFactor
	choice := 0
	for i, bw := range levels {
		if float64(bw) <= budget {
			choice = i
		}
	}
	return choice
}

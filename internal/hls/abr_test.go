package hls

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSelectLevel(t *testing.T) {
	levels := []uint32{400_000, 1_200_000, 3_000_000}

	tests := []struct {
		name     string
		estimate float64
		want     int
	}{
		{"below lowest", 100_000, 0},
		{"fits lowest only", 600_000, 0},
		{"fits middle", 1_600_000, 1},
		{"middle without margin", 1_300_000, 0},
		{"fits all", 10_000_000, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectLevel(levels, tt.estimate))
		})
	}
}

func TestBandwidthEstimator(t *testing.T) {
	var e bandwidthEstimator
	assert.Equal(t, float64(defaultBandwidthEstimate), e.bitsPerSecond())

	e.sample(125_000, time.Second) // 1 Mbit/s
	assert.InDelta(t, 1_000_000, e.bitsPerSecond(), 1)

	e.sample(250_000, time.Second) // 2 Mbit/s
	assert.InDelta(t, 0.3*2_000_000+0.7*1_000_000, e.bitsPerSecond(), 1)

	e.sample(0, time.Second)
	assert.InDelta(t, 1_300_000, e.bitsPerSecond(), 1)
}

func TestSegmentBufferEvictsBackBuffer(t *testing.T) {
	b := newSegmentBuffer(5 * time.Second)
	for seq := uint64(0); seq < 4; seq++ {
		b.queued(bufferedSegment{seq: seq, duration: 2 * time.Second, size: 100})
	}

	forward, back, _, _ := b.snapshot()
	assert.Equal(t, 8*time.Second, forward)
	assert.Zero(t, back)

	for seq := uint64(0); seq < 3; seq++ {
		b.appended(seq)
	}
	forward, back, count, bytes := b.snapshot()
	assert.Equal(t, 2*time.Second, forward)
	assert.Equal(t, 4*time.Second, back, "oldest segment evicted past the back buffer length")
	assert.Equal(t, 3, count)
	assert.Equal(t, int64(300), bytes)

	b.dropped(3)
	forward, _, _, _ = b.snapshot()
	assert.Zero(t, forward)
}

func TestSegmentBufferFlushForward(t *testing.T) {
	b := newSegmentBuffer(0)
	b.queued(bufferedSegment{seq: 1, duration: time.Second})
	b.appended(1)
	b.queued(bufferedSegment{seq: 2, duration: time.Second})
	b.flushForward()

	forward, back, count, _ := b.snapshot()
	assert.Zero(t, forward)
	assert.Zero(t, back, "zero back buffer keeps nothing")
	assert.Equal(t, 1, count)
}

package hls

import (
	"sync"
	"time"
)

type bufferedSegment struct {
	seq      uint64
	duration time.Duration
	size     int
}

// segmentBuffer tracks fetched segments waiting to be appended (forward) and
// appended segments retained behind the playhead (back). Back media beyond
// backBufferLength is evicted oldest first.
type segmentBuffer struct {
	mu               sync.Mutex
	backBufferLength time.Duration
	forward          []bufferedSegment
	back             []bufferedSegment
	appendedCount    int
	appendedBytes    int64
}

func newSegmentBuffer(backBufferLength time.Duration) *segmentBuffer {
	return &segmentBuffer{backBufferLength: backBufferLength}
}

func (b *segmentBuffer) queued(seg bufferedSegment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forward = append(b.forward, seg)
}

// appended moves a segment from forward to back and applies eviction
func (b *segmentBuffer) appended(seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, seg := range b.forward {
		if seg.seq != seq {
			continue
		}
		b.forward = append(b.forward[:i], b.forward[i+1:]...)
		b.back = append(b.back, seg)
		b.appendedCount++
		b.appendedBytes += int64(seg.size)
		break
	}
	b.evictLocked()
}

// dropped removes a segment that will never be appended
func (b *segmentBuffer) dropped(seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, seg := range b.forward {
		if seg.seq == seq {
			b.forward = append(b.forward[:i], b.forward[i+1:]...)
			return
		}
	}
}

func (b *segmentBuffer) evictLocked() {
	if b.backBufferLength <= 0 {
		b.back = b.back[:0]
		return
	}
	total := durationOf(b.back)
	for len(b.back) > 0 && total > b.backBufferLength {
		total -= b.back[0].duration
		b.back = b.back[1:]
	}
}

func (b *segmentBuffer) flushForward() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forward = nil
}

func (b *segmentBuffer) snapshot() (forward, back time.Duration, count int, bytes int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return durationOf(b.forward), durationOf(b.back), b.appendedCount, b.appendedBytes
}

func durationOf(segs []bufferedSegment) time.Duration {
	var total time.Duration
	for _, s := range segs {
		total += s.duration
	}
	return total
}

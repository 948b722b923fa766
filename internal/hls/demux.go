package hls

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/mmcdole/livecast/internal/domain"
)

// Container is a segment container format
type Container int

const (
	ContainerUnknown Container = iota
	ContainerMPEGTS
	ContainerFMP4
)

func (c Container) String() string {
	switch c {
	case ContainerMPEGTS:
		return "mpegts"
	case ContainerFMP4:
		return "fmp4"
	default:
		return "unknown"
	}
}

const (
	tsPacketSize = 188
	tsSyncByte   = 0x47
)

var fmp4Boxes = [][]byte{[]byte("ftyp"), []byte("styp"), []byte("moof"), []byte("moov")}

// ProbeContainer identifies the container of a segment from its framing.
// MPEG-TS needs whole 188-byte packets, each starting with the sync byte.
func ProbeContainer(data []byte) Container {
	if len(data) >= tsPacketSize && len(data)%tsPacketSize == 0 {
		ok := true
		for i := 0; i < len(data); i += tsPacketSize {
			if data[i] != tsSyncByte {
				ok = false
				break
			}
		}
		if ok {
			return ContainerMPEGTS
		}
	}
	if len(data) >= 8 {
		for _, box := range fmp4Boxes {
			if bytes.Equal(data[4:8], box) {
				return ContainerFMP4
			}
		}
	}
	return ContainerUnknown
}

// demuxer validates segments and appends them to the sink. After a parse or
// append failure it halts, dropping segments until reset.
type demuxer struct {
	mu     sync.Mutex
	sink   domain.MediaSink
	halted bool
}

func (d *demuxer) attach(sink domain.MediaSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
}

func (d *demuxer) detach() {
	d.attach(nil)
}

func (d *demuxer) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.halted = false
}

func (d *demuxer) isHalted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.halted
}

// appendSegment returns (false, nil) when the segment was dropped because the
// demuxer is halted. The sink write happens outside the lock.
func (d *demuxer) appendSegment(data []byte) (bool, error) {
	d.mu.Lock()
	if d.halted {
		d.mu.Unlock()
		return false, nil
	}
	sink := d.sink
	if sink == nil {
		d.mu.Unlock()
		return false, errSinkDetached
	}
	if ProbeContainer(data) == ContainerUnknown {
		d.halted = true
		d.mu.Unlock()
		return false, errUnknownContainer
	}
	d.mu.Unlock()

	if _, err := sink.Write(data); err != nil {
		d.mu.Lock()
		d.halted = true
		d.mu.Unlock()
		return false, fmt.Errorf("append to media: %w", err)
	}
	return true, nil
}

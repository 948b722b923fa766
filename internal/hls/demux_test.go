package hls

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeContainer(t *testing.T) {
	brokenTS := tsSegment(3)
	brokenTS[tsPacketSize*2] = 0x00

	tests := []struct {
		name string
		data []byte
		want Container
	}{
		{"single ts packet", tsSegment(1), ContainerMPEGTS},
		{"many ts packets", tsSegment(50), ContainerMPEGTS},
		{"ts with lost sync", brokenTS, ContainerUnknown},
		{"partial ts packet", tsSegment(2)[:tsPacketSize+10], ContainerUnknown},
		{"fmp4 init", []byte("\x00\x00\x00\x18ftypiso6"), ContainerFMP4},
		{"fmp4 fragment", []byte("\x00\x00\x00\x10moof\x00\x00\x00\x00"), ContainerFMP4},
		{"segment type", []byte("\x00\x00\x00\x10styp"), ContainerFMP4},
		{"empty", nil, ContainerUnknown},
		{"html", []byte("<html><body>404</body></html>"), ContainerUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProbeContainer(tt.data))
		})
	}
}

func TestContainerString(t *testing.T) {
	assert.Equal(t, "mpegts", ContainerMPEGTS.String())
	assert.Equal(t, "fmp4", ContainerFMP4.String())
	assert.Equal(t, "unknown", ContainerUnknown.String())
}

func TestDemuxerHaltsUntilReset(t *testing.T) {
	sink := &syncSink{}
	d := &demuxer{}
	d.attach(sink)

	ok, err := d.appendSegment(tsSegment(1))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = d.appendSegment([]byte("garbage"))
	assert.ErrorIs(t, err, errUnknownContainer)
	assert.True(t, d.isHalted())

	ok, err = d.appendSegment(tsSegment(1))
	require.NoError(t, err)
	assert.False(t, ok, "halted demuxer drops segments")

	d.reset()
	ok, err = d.appendSegment(tsSegment(1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2*tsPacketSize, sink.Len())
}

func TestDemuxerSinkErrors(t *testing.T) {
	d := &demuxer{}
	_, err := d.appendSegment(tsSegment(1))
	assert.ErrorIs(t, err, errSinkDetached)

	writeErr := errors.New("pipe closed")
	d.attach(&syncSink{err: writeErr})
	_, err = d.appendSegment(tsSegment(1))
	assert.ErrorIs(t, err, writeErr)
	assert.True(t, d.isHalted())
}

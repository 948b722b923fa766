package hls

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeManifestMaster(t *testing.T) {
	levels, media, err := decodeManifest("http://localhost:8080/hls/test.m3u8", []byte(masterPlaylist))
	require.NoError(t, err)
	assert.Nil(t, media)
	require.Len(t, levels, 2)

	assert.Equal(t, uint32(400000), levels[0].bandwidth)
	assert.Equal(t, "http://localhost:8080/hls/low/index.m3u8", levels[0].uri)
	assert.Equal(t, "640x360", levels[0].size)
	assert.Equal(t, uint32(2000000), levels[1].bandwidth)
	assert.Equal(t, []uint32{400000, 2000000}, levelBandwidths(levels))
}

func TestDecodeManifestMedia(t *testing.T) {
	levels, media, err := decodeManifest("http://localhost:8080/hls/test.m3u8", []byte(vodPlaylist))
	require.NoError(t, err)
	assert.Nil(t, levels)
	require.NotNil(t, media)

	assert.True(t, media.closed)
	assert.Equal(t, 2*time.Second, media.targetDuration)
	require.Len(t, media.segments, 2)
	assert.Equal(t, segmentRef{seq: 0, uri: "http://localhost:8080/hls/seg0.ts", duration: 2 * time.Second}, media.segments[0])
	assert.Equal(t, uint64(1), media.segments[1].seq)
}

func TestDecodeMediaRejectsMaster(t *testing.T) {
	_, err := decodeMedia("http://localhost/hls/test.m3u8", []byte(masterPlaylist))
	assert.Error(t, err)
}

func TestDecodeManifestRejectsGarbage(t *testing.T) {
	_, _, err := decodeManifest("http://localhost/hls/test.m3u8", []byte("nope"))
	assert.Error(t, err)
}

func TestStartIndex(t *testing.T) {
	live := &mediaPlaylist{segments: make([]segmentRef, 6)}
	short := &mediaPlaylist{segments: make([]segmentRef, 2)}
	vod := &mediaPlaylist{segments: make([]segmentRef, 6), closed: true}

	assert.Equal(t, 3, startIndex(live, false))
	assert.Equal(t, 5, startIndex(live, true))
	assert.Equal(t, 0, startIndex(short, false))
	assert.Equal(t, 0, startIndex(vod, true))
}

func TestReloadInterval(t *testing.T) {
	mp := &mediaPlaylist{targetDuration: 4 * time.Second}
	assert.Equal(t, 4*time.Second, reloadInterval(mp, false))
	assert.Equal(t, 2*time.Second, reloadInterval(mp, true))

	tiny := &mediaPlaylist{targetDuration: 200 * time.Millisecond}
	assert.Equal(t, minReloadInterval, reloadInterval(tiny, false))
}

func TestResolveURL(t *testing.T) {
	got, err := resolveURL("http://host/hls/live/index.m3u8", "../seg1.ts")
	require.NoError(t, err)
	assert.Equal(t, "http://host/hls/seg1.ts", got)

	got, err = resolveURL("http://host/hls/index.m3u8", "https://cdn.example/seg1.ts")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/seg1.ts", got)
}

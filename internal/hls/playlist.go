package hls

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/grafov/m3u8"
)

const (
	liveSyncSegments           = 3
	lowLatencyLiveSyncSegments = 1
	minReloadInterval          = 500 * time.Millisecond
)

// level is one playable variant from a master playlist
type level struct {
	uri       string
	bandwidth uint32
	codecs    string
	size      string
}

// segmentRef is a media segment resolved against its playlist
type segmentRef struct {
	seq      uint64
	uri      string
	duration time.Duration
}

// mediaPlaylist is the subset of a decoded media playlist the loader uses
type mediaPlaylist struct {
	targetDuration time.Duration
	segments       []segmentRef
	closed         bool
}

// decodeManifest decodes a playlist fetched from base. Exactly one of the
// returned levels (master) or media playlist is set.
func decodeManifest(base string, body []byte) ([]level, *mediaPlaylist, error) {
	p, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, nil, fmt.Errorf("decode playlist: %w", err)
	}

	switch listType {
	case m3u8.MASTER:
		levels, err := masterLevels(base, p.(*m3u8.MasterPlaylist))
		if err != nil {
			return nil, nil, err
		}
		return levels, nil, nil
	case m3u8.MEDIA:
		media, err := mediaFromPlaylist(base, p.(*m3u8.MediaPlaylist))
		if err != nil {
			return nil, nil, err
		}
		return nil, media, nil
	default:
		return nil, nil, fmt.Errorf("unknown playlist type %d", listType)
	}
}

// decodeMedia decodes a playlist that must be a media playlist
func decodeMedia(base string, body []byte) (*mediaPlaylist, error) {
	levels, media, err := decodeManifest(base, body)
	if err != nil {
		return nil, err
	}
	if media == nil || levels != nil {
		return nil, fmt.Errorf("expected media playlist at %s", base)
	}
	return media, nil
}

func masterLevels(base string, master *m3u8.MasterPlaylist) ([]level, error) {
	var levels []level
	for _, v := range master.Variants {
		if v == nil || v.Iframe || v.URI == "" {
			continue
		}
		uri, err := resolveURL(base, v.URI)
		if err != nil {
			return nil, err
		}
		levels = append(levels, level{
			uri:       uri,
			bandwidth: v.Bandwidth,
			codecs:    v.Codecs,
			size:      v.Resolution,
		})
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("master playlist %s has no playable variants", base)
	}
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].bandwidth < levels[j].bandwidth
	})
	return levels, nil
}

func mediaFromPlaylist(base string, p *m3u8.MediaPlaylist) (*mediaPlaylist, error) {
	mp := &mediaPlaylist{
		targetDuration: time.Duration(p.TargetDuration * float64(time.Second)),
		closed:         p.Closed,
	}

	count := int(p.Count())
	seq := p.SeqNo
	for i := 0; i < count && i < len(p.Segments); i++ {
		seg := p.Segments[i]
		if seg == nil {
			continue
		}
		uri, err := resolveURL(base, seg.URI)
		if err != nil {
			return nil, err
		}
		mp.segments = append(mp.segments, segmentRef{
			seq:      seq,
			uri:      uri,
			duration: time.Duration(seg.Duration * float64(time.Second)),
		})
		seq++
	}
	return mp, nil
}

func levelBandwidths(levels []level) []uint32 {
	bws := make([]uint32, len(levels))
	for i, l := range levels {
		bws[i] = l.bandwidth
	}
	return bws
}

// startIndex picks where loading begins: the first segment of a closed
// playlist, otherwise a few segments back from the live edge.
func startIndex(mp *mediaPlaylist, lowLatency bool) int {
	if mp.closed {
		return 0
	}
	n := liveSyncSegments
	if lowLatency {
		n = lowLatencyLiveSyncSegments
	}
	return max(len(mp.segments)-n, 0)
}

// reloadInterval is how long to wait before refreshing a live playlist
func reloadInterval(mp *mediaPlaylist, lowLatency bool) time.Duration {
	d := mp.targetDuration
	if lowLatency {
		d /= 2
	}
	return max(d, minReloadInterval)
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

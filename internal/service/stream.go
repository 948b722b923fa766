package service

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mmcdole/livecast/internal/domain"
)

// ServerInfo describes the streaming server origins
type ServerInfo struct {
	RTMP string
	HLS  string
}

// StreamService maps stream keys onto server URLs
type StreamService struct {
	rtmp string
	hls  string
}

// NewStreamService creates a stream service for the given origins
func NewStreamService(rtmpOrigin, hlsOrigin string) *StreamService {
	return &StreamService{
		rtmp: strings.TrimRight(rtmpOrigin, "/"),
		hls:  strings.TrimRight(hlsOrigin, "/"),
	}
}

// ValidateKey rejects keys that cannot be used as a single URL path segment
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", domain.ErrInvalidStreamKey)
	}
	if strings.Contains(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStreamKey, key)
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q contains whitespace", domain.ErrInvalidStreamKey, key)
	}
	return nil
}

// StreamURL returns the HLS playlist URL for key
func (s *StreamService) StreamURL(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return s.hls + "/hls/" + key + ".m3u8", nil
}

// IngestURL returns the RTMP publish URL for key
func (s *StreamService) IngestURL(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return s.rtmp + "/stream/" + key, nil
}

// ServerInfo returns the configured origins
func (s *StreamService) ServerInfo() ServerInfo {
	return ServerInfo{RTMP: s.rtmp, HLS: s.hls}
}

package domain

import "time"

// Status is the observable state of a playback session.
type Status int

const (
	StatusConnecting Status = iota
	StatusPlaying
	StatusError
)

// String returns the lowercase status name
func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusPlaying:
		return "playing"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorType classifies a stream client error
type ErrorType int

const (
	ErrorTypeOther ErrorType = iota
	ErrorTypeNetwork
	ErrorTypeMedia
)

// String returns the error type name as reported by the stream client
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeNetwork:
		return "networkError"
	case ErrorTypeMedia:
		return "mediaError"
	default:
		return "otherError"
	}
}

// EventKind identifies a stream client lifecycle event
type EventKind int

const (
	EventManifestParsed EventKind = iota
	EventError
	EventLevelSwitched
	EventFragBuffered
)

// String returns the event kind name
func (k EventKind) String() string {
	switch k {
	case EventManifestParsed:
		return "manifestParsed"
	case EventError:
		return "error"
	case EventLevelSwitched:
		return "levelSwitched"
	case EventFragBuffered:
		return "fragBuffered"
	default:
		return "unknown"
	}
}

// Event is delivered by a StreamClient to its registered handlers.
// Fatal, Type and Details are only meaningful for EventError.
type Event struct {
	Kind    EventKind
	Fatal   bool
	Type    ErrorType
	Details string // e.g. "manifestLoadError", "fragParsingError"
	Level   int    // variant index for EventLevelSwitched
}

// ClientConfig configures a StreamClient
type ClientConfig struct {
	LowLatencyMode   bool
	BackBufferLength time.Duration
	EnableWorker     bool
}

// DefaultClientConfig returns the configuration sessions create clients with
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		LowLatencyMode:   true,
		BackBufferLength: 90 * time.Second,
		EnableWorker:     true,
	}
}

// HLSMimeType is the media type a surface must accept to play HLS natively
const HLSMimeType = "application/vnd.apple.mpegurl"

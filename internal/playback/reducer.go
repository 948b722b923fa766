// Package playback owns one live-stream playback attempt: it drives a stream
// client, reduces the client's events into a small observable state, and
// applies the recovery policy for fatal errors.
package playback

import "github.com/mmcdole/livecast/internal/domain"

// User-facing status messages
const (
	MsgUnsupported  = "HLS is not supported in this browser"
	MsgNetworkError = "Network error - stream may not be available"
	MsgMediaError   = "Media error - trying to recover..."
	msgFatalPrefix  = "Fatal error: "
)

// State is a snapshot of a session
type State struct {
	URL          string
	Status       domain.Status
	ErrorMessage string
}

// Effect is the side effect a transition asks the session to perform
type Effect int

const (
	EffectNone Effect = iota
	EffectPlay
	EffectScheduleRetry
	EffectRecoverMedia
)

// Reduce applies a client event to the current state.
// ErrorMessage is non-empty iff the returned Status is StatusError.
func Reduce(s State, ev domain.Event) (State, Effect) {
	switch ev.Kind {
	case domain.EventManifestParsed:
		// Error is left only through Resume
		if s.Status != domain.StatusConnecting {
			return s, EffectNone
		}
		s.Status = domain.StatusPlaying
		s.ErrorMessage = ""
		return s, EffectPlay

	case domain.EventError:
		if !ev.Fatal {
			return s, EffectNone
		}
		s.Status = domain.StatusError
		switch ev.Type {
		case domain.ErrorTypeNetwork:
			s.ErrorMessage = MsgNetworkError
			return s, EffectScheduleRetry
		case domain.ErrorTypeMedia:
			s.ErrorMessage = MsgMediaError
			return s, EffectRecoverMedia
		default:
			s.ErrorMessage = msgFatalPrefix + ev.Details
			return s, EffectNone
		}
	}

	return s, EffectNone
}

// Resume is the network-retry transition: Error back to Connecting.
// It reports false when the state is not eligible.
func Resume(s State) (State, bool) {
	if s.Status != domain.StatusError {
		return s, false
	}
	s.Status = domain.StatusConnecting
	s.ErrorMessage = ""
	return s, true
}

func unsupported(s State) State {
	s.Status = domain.StatusError
	s.ErrorMessage = MsgUnsupported
	return s
}

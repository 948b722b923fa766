package tui

import "github.com/mmcdole/livecast/internal/playback"

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// WatchRequestMsg asks the model to start watching a key (deep link)
type WatchRequestMsg struct {
	Key string
}

// BroadcastRequestMsg asks the model to open the broadcaster screen (deep link)
type BroadcastRequestMsg struct {
	Key string
}

// SessionStateMsg carries a playback state from the session observer.
// Gen identifies the watch it belongs to so late updates are ignored.
type SessionStateMsg struct {
	State playback.State
	Gen   int
}

// CopiedMsg reports the result of a clipboard copy
type CopiedMsg struct {
	What string
	Err  error
}

// TickMsg drives the spinner and refreshes engine stats while watching
type TickMsg struct {
	Gen int
}

// ClearStatusMsg clears the status line
type ClearStatusMsg struct{}

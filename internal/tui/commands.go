package tui

import (
	"errors"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/livecast/internal/playback"
)

// Command factories for async operations

var errClipboardUnsupported = errors.New("no clipboard utility found")

// writeClipboard is overridable in tests
var writeClipboard = func(text string) error {
	if clipboard.Unsupported {
		return errClipboardUnsupported
	}
	return clipboard.WriteAll(text)
}

// WaitForStateCmd reads the next session state from the observer channel.
// The model re-issues it after every SessionStateMsg. It returns nil once
// done is closed.
func WaitForStateCmd(ch <-chan playback.State, done <-chan struct{}, gen int) tea.Cmd {
	return func() tea.Msg {
		select {
		case state := <-ch:
			return SessionStateMsg{State: state, Gen: gen}
		case <-done:
			return nil
		}
	}
}

// CopyCmd copies text to the system clipboard
func CopyCmd(what, text string) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{What: what, Err: writeClipboard(text)}
	}
}

// TickCmd returns a command that sends a tick for watch gen after a delay
func TickCmd(delay time.Duration, gen int) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{Gen: gen}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

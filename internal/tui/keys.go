package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application
type KeyMap struct {
	// Role select
	Watch     key.Binding
	Broadcast key.Binding
	Edit      key.Binding
	Complete  key.Binding

	// Broadcaster
	CopyCapture key.Binding
	CopyTest    key.Binding
	CopyLink    key.Binding

	// Viewer
	Retry key.Binding

	// Global
	Back key.Binding
	Quit key.Binding
	Help key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Watch: key.NewBinding(
			key.WithKeys("w", "enter"),
			key.WithHelp("w/enter", "watch"),
		),
		Broadcast: key.NewBinding(
			key.WithKeys("b", "ctrl+b"),
			key.WithHelp("b", "broadcast"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e", "/", "i"),
			key.WithHelp("e", "edit key"),
		),
		Complete: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "complete"),
		),
		CopyCapture: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy capture cmd"),
		),
		CopyTest: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "copy test cmd"),
		),
		CopyLink: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "copy share cmd"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reconnect"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

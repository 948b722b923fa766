package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/livecast/internal/domain"
	"github.com/mmcdole/livecast/internal/hls"
	"github.com/mmcdole/livecast/internal/playback"
	"github.com/mmcdole/livecast/internal/service"
	"github.com/mmcdole/livecast/internal/tui/components"
)

// Screen is the screen currently shown
type Screen int

const (
	ScreenRoleSelect Screen = iota
	ScreenViewer
	ScreenBroadcaster
)

const (
	// DefaultStreamKey prefills the key input
	DefaultStreamKey = "test"

	tickInterval   = 250 * time.Millisecond
	statusDuration = 3 * time.Second
	stateQueueSize = 16
	historyLimit   = 50
)

var errEmptyKey = errors.New("enter a stream key first")

// statsSource is implemented by the built-in engine's client
type statsSource interface {
	Stats() hls.Stats
}

// Services groups the application services the TUI drives
type Services struct {
	Streams   *service.StreamService
	Broadcast *service.BroadcastService
	History   *service.HistoryService
	Viewer    *service.ViewerService
}

// Model is the main Bubble Tea model for the application
type Model struct {
	Screen Screen
	Ready  bool

	svc    Services
	keys   KeyMap
	logger *slog.Logger

	// Role select
	KeyInput components.KeyInput
	editing  bool

	// Viewer
	key       string
	streamURL string
	state     playback.State
	stateCh   chan playback.State
	stateDone chan struct{} // closed when the watch ends
	gen       int           // bumped per watch so stale messages are dropped
	stats     *hls.Stats

	// Broadcaster
	instructions service.Instructions

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg    string
	StatusIsErr  bool
	SpinnerFrame int
	showHelp     bool

	initial tea.Msg
}

// ModelOption configures the initial model
type ModelOption func(*Model)

// WithWatch opens the viewer on key at startup
func WithWatch(key string) ModelOption {
	return func(m *Model) {
		m.initial = WatchRequestMsg{Key: key}
		m.KeyInput.SetValue(key)
	}
}

// WithBroadcast opens the broadcaster screen on key at startup
func WithBroadcast(key string) ModelOption {
	return func(m *Model) {
		m.initial = BroadcastRequestMsg{Key: key}
		m.KeyInput.SetValue(key)
	}
}

// WithLogger sets the TUI logger
func WithLogger(logger *slog.Logger) ModelOption {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModel creates a new application model
func NewModel(svc Services, opts ...ModelOption) Model {
	m := Model{
		Screen:   ScreenRoleSelect,
		svc:      svc,
		keys:     DefaultKeyMap(),
		logger:   slog.Default(),
		KeyInput: components.NewKeyInput(DefaultStreamKey),
		editing:  true,
	}
	m.refreshHistory()
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	if m.initial == nil {
		return nil
	}
	initial := m.initial
	return func() tea.Msg { return initial }
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case WatchRequestMsg:
		return m.startWatch(msg.Key)

	case BroadcastRequestMsg:
		return m.openBroadcaster(msg.Key)

	case SessionStateMsg:
		if msg.Gen != m.gen || m.Screen != ScreenViewer {
			return m, nil
		}
		m.state = msg.State
		return m, WaitForStateCmd(m.stateCh, m.stateDone, m.gen)

	case TickMsg:
		if msg.Gen != m.gen || m.Screen != ScreenViewer {
			return m, nil
		}
		m.SpinnerFrame++
		m.refreshStats()
		return m, TickCmd(tickInterval, m.gen)

	case CopiedMsg:
		if msg.Err != nil {
			return m, m.setStatus(fmt.Sprintf("Copy failed: %v", msg.Err), true)
		}
		return m, m.setStatus("Copied "+msg.What, false)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil

	case ErrMsg:
		return m, m.setStatus(msg.Error(), true)
	}

	return m, nil
}

// handleKeyMsg routes key presses by screen
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch m.Screen {
	case ScreenViewer:
		return m.handleViewerKey(msg)
	case ScreenBroadcaster:
		return m.handleBroadcasterKey(msg)
	default:
		return m.handleRoleSelectKey(msg)
	}
}

func (m Model) handleRoleSelectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		switch {
		case msg.String() == "enter":
			return m.startWatch(m.KeyInput.Value())
		case msg.String() == "ctrl+b":
			return m.openBroadcaster(m.KeyInput.Value())
		case key.Matches(msg, m.keys.Back):
			m.editing = false
			m.KeyInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.KeyInput, cmd = m.KeyInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Watch):
		return m.startWatch(m.KeyInput.Value())
	case key.Matches(msg, m.keys.Broadcast):
		return m.openBroadcaster(m.KeyInput.Value())
	case key.Matches(msg, m.keys.Edit):
		m.editing = true
		return m, m.KeyInput.Focus()
	case key.Matches(msg, m.keys.Complete):
		var cmd tea.Cmd
		m.KeyInput, cmd = m.KeyInput.Update(msg)
		return m, cmd
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	}
	return m, nil
}

func (m Model) handleViewerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m.backToRoleSelect()
	case key.Matches(msg, m.keys.Retry):
		return m.startWatch(m.key)
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	}
	return m, nil
}

func (m Model) handleBroadcasterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	inst := m.instructions
	switch {
	case key.Matches(msg, m.keys.CopyCapture):
		return m, CopyCmd("capture command", inst.CaptureCommandLine())
	case key.Matches(msg, m.keys.CopyTest):
		return m, CopyCmd("test command", inst.TestCommandLine())
	case key.Matches(msg, m.keys.CopyLink):
		return m, CopyCmd("share command", inst.ShareCommand)
	case msg.String() == "w":
		return m.startWatch(inst.Key)
	case key.Matches(msg, m.keys.Back):
		return m.backToRoleSelect()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	}
	return m, nil
}

// startWatch replaces any running session with one for key
func (m Model) startWatch(streamKey string) (tea.Model, tea.Cmd) {
	if streamKey == "" {
		return m, m.setStatus(errEmptyKey.Error(), true)
	}

	url, err := m.svc.Streams.StreamURL(streamKey)
	if err != nil {
		return m, m.setStatus(err.Error(), true)
	}

	if m.stateDone != nil {
		close(m.stateDone)
		m.stateDone = nil
		m.stateCh = nil
	}
	m.gen++
	ch := make(chan playback.State, stateQueueSize)
	session, err := m.svc.Viewer.Watch(streamKey, playback.NewChannelObserver(ch))
	if err != nil {
		m.logger.Error("failed to start viewer", "key", streamKey, "error", err)
		return m, m.setStatus(fmt.Sprintf("Cannot watch %s: %v", streamKey, err), true)
	}

	m.Screen = ScreenViewer
	m.key = streamKey
	m.streamURL = url
	m.state = session.State()
	m.stateCh = ch
	m.stateDone = make(chan struct{})
	m.stats = nil
	m.StatusMsg = ""
	return m, tea.Batch(WaitForStateCmd(ch, m.stateDone, m.gen), TickCmd(tickInterval, m.gen))
}

func (m Model) openBroadcaster(streamKey string) (tea.Model, tea.Cmd) {
	if streamKey == "" {
		return m, m.setStatus(errEmptyKey.Error(), true)
	}

	inst, err := m.svc.Broadcast.Instructions(streamKey)
	if err != nil {
		return m, m.setStatus(err.Error(), true)
	}
	if m.svc.History != nil {
		if err := m.svc.History.Record(domain.RoleBroadcaster, streamKey); err != nil {
			m.logger.Warn("failed to record broadcast key", "key", streamKey, "error", err)
		}
	}

	m.stopViewer()
	m.Screen = ScreenBroadcaster
	m.instructions = inst
	m.StatusMsg = ""
	return m, nil
}

func (m Model) backToRoleSelect() (tea.Model, tea.Cmd) {
	m.stopViewer()
	m.Screen = ScreenRoleSelect
	m.refreshHistory()
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.stopViewer()
	return m, tea.Quit
}

// stopViewer ends the session; in-flight state and tick messages are
// dropped by the generation check
func (m *Model) stopViewer() {
	if m.Screen == ScreenViewer || m.stateCh != nil {
		m.svc.Viewer.Stop()
	}
	if m.stateDone != nil {
		close(m.stateDone)
	}
	m.gen++
	m.stateCh = nil
	m.stateDone = nil
	m.stats = nil
}

func (m *Model) refreshStats() {
	session, _ := m.svc.Viewer.Current()
	if session == nil {
		m.stats = nil
		return
	}
	if src, ok := session.Client().(statsSource); ok {
		stats := src.Stats()
		m.stats = &stats
	}
}

func (m *Model) refreshHistory() {
	if m.svc.History == nil {
		return
	}
	m.KeyInput.SetHistory(m.svc.History.Keys(historyLimit))
}

func (m *Model) setStatus(msg string, isErr bool) tea.Cmd {
	m.StatusMsg = msg
	m.StatusIsErr = isErr
	return ClearStatusCmd(statusDuration)
}

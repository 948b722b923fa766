package playback

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/livecast/internal/domain"
)

// DefaultRetryDelay is how long a session waits before resuming loading
// after a fatal network error
const DefaultRetryDelay = 3 * time.Second

// timer is the subset of *time.Timer a session needs
type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// Session manages one playback attempt against one stream URL.
// All state mutation is serialized on mu; the client delivers its events
// one at a time, and stale events after Stop are dropped.
type Session struct {
	engine     domain.Engine
	clientCfg  domain.ClientConfig
	retryDelay time.Duration
	maxRetries int
	afterFunc  afterFunc
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// notifyMu is taken before mu is released so observers see
	// transitions in the order they were applied
	notifyMu sync.Mutex

	mu        sync.Mutex
	state     State
	started   bool
	stopped   bool
	client    domain.StreamClient
	surface   domain.Surface
	retry     timer
	retries   int // consecutive fatal network errors
	observers []Observer
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetryDelay overrides the delay before resuming after a network error
func WithRetryDelay(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.retryDelay = d
		}
	}
}

// WithMaxNetworkRetries bounds consecutive network retries. Zero means unlimited.
func WithMaxNetworkRetries(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithClientConfig overrides the configuration used to create the client
func WithClientConfig(cfg domain.ClientConfig) Option {
	return func(s *Session) {
		s.clientCfg = cfg
	}
}

// WithObserver registers an observer before the session starts
func WithObserver(o Observer) Option {
	return func(s *Session) {
		s.observers = append(s.observers, o)
	}
}

func withAfterFunc(f afterFunc) Option {
	return func(s *Session) {
		s.afterFunc = f
	}
}

// NewSession creates an idle session. Engine may be nil, in which case only
// native surface playback is attempted.
func NewSession(engine domain.Engine, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		engine:     engine,
		clientCfg:  domain.DefaultClientConfig(),
		retryDelay: DefaultRetryDelay,
		afterFunc:  realAfterFunc,
		logger:     slog.Default(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins playback of streamURL on surface. It does not block; every
// outcome after the initial status arrives through observers.
func (s *Session) Start(streamURL string, surface domain.Surface) error {
	if streamURL == "" {
		return domain.ErrInvalidStreamURL
	}
	if surface == nil {
		return domain.ErrNoSurface
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return domain.ErrSessionStarted
	}
	s.started = true
	s.surface = surface
	s.state = State{URL: streamURL, Status: domain.StatusConnecting}

	var client domain.StreamClient
	native := false
	switch {
	case s.engine != nil && s.engine.IsSupported():
		client = s.engine.NewClient(s.clientCfg)
		s.client = client
		client.On(domain.EventManifestParsed, s.handleEvent)
		client.On(domain.EventError, s.handleEvent)
		client.On(domain.EventLevelSwitched, s.handleEvent)
		s.logger.Info("playback session started", "url", streamURL, "mode", "engine")

	case surface.CanPlayType(domain.HLSMimeType):
		native = true
		surface.OnLoadedMetadata(func() {
			s.handleEvent(domain.Event{Kind: domain.EventManifestParsed})
		})
		s.logger.Info("playback session started", "url", streamURL, "mode", "native")

	default:
		s.state = unsupported(s.state)
		s.logger.Warn("no playback capability", "url", streamURL)
	}
	state := s.state
	observers := s.observers
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.notify(observers, state)
	s.notifyMu.Unlock()

	// Outside the lock: a client or surface may report back synchronously
	if client != nil {
		client.LoadSource(streamURL)
		client.AttachMedia(surface)
	}
	if native {
		if err := surface.SetSource(streamURL); err != nil {
			s.logger.Error("failed to set native source", "error", err, "url", streamURL)
			s.handleEvent(domain.Event{
				Kind:    domain.EventError,
				Fatal:   true,
				Type:    domain.ErrorTypeOther,
				Details: err.Error(),
			})
		}
	}
	return nil
}

// handleEvent is the single entry point for client and surface events.
func (s *Session) handleEvent(ev domain.Event) {
	s.mu.Lock()
	if s.stopped || !s.started {
		s.mu.Unlock()
		return
	}

	if ev.Kind == domain.EventError && !ev.Fatal {
		s.logger.Debug("non-fatal stream error", "type", ev.Type, "details", ev.Details)
	}
	if ev.Kind == domain.EventLevelSwitched {
		s.logger.Debug("level switched", "level", ev.Level)
	}

	prev := s.state
	next, effect := Reduce(prev, ev)
	s.state = next

	switch effect {
	case EffectPlay:
		s.retries = 0
	case EffectScheduleRetry:
		s.scheduleRetryLocked()
	}

	client := s.client
	surface := s.surface
	observers := s.observers
	s.notifyMu.Lock()
	s.mu.Unlock()

	if next != prev {
		if next.Status == domain.StatusError {
			s.logger.Warn("playback error", "type", ev.Type, "details", ev.Details, "message", next.ErrorMessage)
		}
		s.notify(observers, next)
	}
	s.notifyMu.Unlock()

	switch effect {
	case EffectPlay:
		if err := surface.Play(s.ctx); err != nil {
			s.logger.Error("play command rejected", "error", err)
		}
	case EffectRecoverMedia:
		if client != nil {
			client.RecoverMediaError()
		}
	}
}

func (s *Session) scheduleRetryLocked() {
	if s.maxRetries > 0 && s.retries >= s.maxRetries {
		s.logger.Warn("network retries exhausted", "attempts", s.retries)
		return
	}
	s.retries++
	if s.retry != nil {
		s.retry.Stop()
	}
	s.retry = s.afterFunc(s.retryDelay, s.fireRetry)
}

func (s *Session) fireRetry() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.retry = nil
	next, ok := Resume(s.state)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.state = next
	client := s.client
	observers := s.observers
	attempt := s.retries
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.logger.Info("resuming stream load", "attempt", attempt)
	s.notify(observers, next)
	s.notifyMu.Unlock()
	if client != nil {
		client.StartLoad()
	}
}

// Stop releases the client. It is safe to call at any point and more than once.
func (s *Session) Stop() {
	s.stop(nil)
}

// StopAndClose stops the session and closes surface before the client is
// destroyed. Events the client raises while the surface goes away are
// dropped, and a client blocked writing to the surface is released. surface
// is closed even when the session was never started or already stopped.
func (s *Session) StopAndClose(surface io.Closer) error {
	var err error
	closed := false
	s.stop(func() {
		closed = true
		err = surface.Close()
	})
	if !closed {
		err = surface.Close()
	}
	return err
}

func (s *Session) stop(release func()) {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	client := s.client
	s.client = nil
	s.surface = nil
	s.mu.Unlock()

	s.cancel()
	if release != nil {
		release()
	}
	if client != nil {
		client.Destroy()
	}
	s.logger.Info("playback session stopped")
}

// State returns a snapshot of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Client returns the stream client, or nil in native mode and after Stop
func (s *Session) Client() domain.StreamClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Stopped reports whether Stop has been called
func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Subscribe registers an observer for future transitions
func (s *Session) Subscribe(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

func (s *Session) notify(observers []Observer, state State) {
	for _, o := range observers {
		o.OnStateChange(state)
	}
}

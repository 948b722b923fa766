package service

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mmcdole/livecast/internal/adapter"
	"github.com/mmcdole/livecast/internal/domain"
	"github.com/mmcdole/livecast/internal/playback"
)

// Surface is a playback surface the viewer owns and closes
type Surface interface {
	domain.Surface
	io.Closer
}

// SurfaceFactory creates a fresh surface for each watch
type SurfaceFactory func() (Surface, error)

// mediaAcceptor is implemented by surfaces that may refuse piped media
type mediaAcceptor interface {
	AcceptsMedia() bool
}

// nativeOnly hides an engine so sessions fall through to native playback
type nativeOnly struct{}

func (nativeOnly) IsSupported() bool                                 { return false }
func (nativeOnly) NewClient(domain.ClientConfig) domain.StreamClient { return nil }

// ViewerService runs one playback session per surface at a time
type ViewerService struct {
	streams    *StreamService
	history    *HistoryService
	engine     domain.Engine
	mode       adapter.EngineMode
	newSurface SurfaceFactory
	opts       []playback.Option
	logger     *slog.Logger

	mu      sync.Mutex
	key     string
	session *playback.Session
	surface Surface
}

// NewViewerService creates a viewer service. history may be nil.
func NewViewerService(
	streams *StreamService,
	history *HistoryService,
	engine domain.Engine,
	mode adapter.EngineMode,
	newSurface SurfaceFactory,
	logger *slog.Logger,
	opts ...playback.Option,
) *ViewerService {
	if logger == nil {
		logger = slog.Default()
	}
	if mode == "" {
		mode = adapter.EngineAuto
	}
	return &ViewerService{
		streams:    streams,
		history:    history,
		engine:     engine,
		mode:       mode,
		newSurface: newSurface,
		opts:       opts,
		logger:     logger,
	}
}

// Watch stops any current session and starts watching key. Observers are
// registered before the session starts so they see the first transition.
func (s *ViewerService) Watch(key string, observers ...playback.Observer) (*playback.Session, error) {
	url, err := s.streams.StreamURL(key)
	if err != nil {
		return nil, err
	}

	s.Stop()

	surface, err := s.newSurface()
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}

	opts := append([]playback.Option{playback.WithLogger(s.logger.With("key", key))}, s.opts...)
	for _, o := range observers {
		opts = append(opts, playback.WithObserver(o))
	}
	session := playback.NewSession(s.engineFor(surface), opts...)

	s.mu.Lock()
	s.key = key
	s.session = session
	s.surface = surface
	s.mu.Unlock()

	if err := session.Start(url, surface); err != nil {
		s.Stop()
		return nil, err
	}

	if s.history != nil {
		if err := s.history.Record(domain.RoleViewer, key); err != nil {
			s.logger.Warn("failed to record watch", "key", key, "error", err)
		}
	}
	s.logger.Info("watching stream", "key", key, "url", url, "mode", s.mode)
	return session, nil
}

// engineFor picks the engine for the configured mode. In auto mode a surface
// that cannot take piped media gets native playback.
func (s *ViewerService) engineFor(surface Surface) domain.Engine {
	switch s.mode {
	case adapter.EngineNative:
		return nativeOnly{}
	case adapter.EngineAuto:
		if a, ok := surface.(mediaAcceptor); ok && !a.AcceptsMedia() {
			return nativeOnly{}
		}
	}
	if s.engine == nil {
		return nativeOnly{}
	}
	return s.engine
}

// Stop ends the current session and closes its surface
func (s *ViewerService) Stop() {
	s.mu.Lock()
	session, surface, key := s.session, s.surface, s.key
	s.session, s.surface, s.key = nil, nil, ""
	s.mu.Unlock()

	var err error
	switch {
	case session != nil && surface != nil:
		// The surface goes first so a client blocked writing to it can exit
		err = session.StopAndClose(surface)
	case session != nil:
		session.Stop()
	case surface != nil:
		err = surface.Close()
	}
	if err != nil {
		s.logger.Warn("failed to close surface", "key", key, "error", err)
	}
}

// Current returns the running session and its key
func (s *ViewerService) Current() (*playback.Session, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, s.key
}

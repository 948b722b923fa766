package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/mmcdole/livecast/internal/domain"
)

// maxPendingBytes bounds media held before the player starts
const maxPendingBytes = 32 << 20

// PipeSurface renders a stream in an external player process. In pipe mode
// segment bytes written to the surface are forwarded to the player's stdin;
// in native mode the player is launched on the stream URL.
// It implements domain.Surface.
type PipeSurface struct {
	launcher *Launcher
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	player       Player
	resolveErr   error
	resolved     bool
	cmd          *exec.Cmd
	stdin        io.WriteCloser
	pending      [][]byte
	pendingBytes int
	onLoaded     func()
	closed       bool
	done         chan struct{}
}

// SurfaceOption configures a PipeSurface
type SurfaceOption func(*PipeSurface)

// WithOutput sets where the player's stdout and stderr go. Both are
// discarded by default so the player does not draw over the TUI.
func WithOutput(stdout, stderr io.Writer) SurfaceOption {
	return func(s *PipeSurface) {
		if stdout != nil {
			s.stdout = stdout
		}
		if stderr != nil {
			s.stderr = stderr
		}
	}
}

// WithSurfaceLogger sets the surface logger
func WithSurfaceLogger(logger *slog.Logger) SurfaceOption {
	return func(s *PipeSurface) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPipeSurface creates a surface backed by the launcher's player. The
// player is not started until Play or SetSource.
func NewPipeSurface(launcher *Launcher, opts ...SurfaceOption) *PipeSurface {
	ctx, cancel := context.WithCancel(context.Background())
	s := &PipeSurface{
		launcher: launcher,
		logger:   slog.Default(),
		stdout:   io.Discard,
		stderr:   io.Discard,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Player returns the resolved player
func (s *PipeSurface) Player() (Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked()
}

func (s *PipeSurface) resolveLocked() (Player, error) {
	if !s.resolved {
		s.player, s.resolveErr = s.launcher.Resolve()
		s.resolved = true
	}
	return s.player, s.resolveErr
}

// AcceptsMedia reports whether segment bytes can be piped to the player
func (s *PipeSurface) AcceptsMedia() bool {
	p, err := s.Player()
	return err == nil && p.ReadsStdin()
}

// CanPlayType reports whether the player handles mime on its own
func (s *PipeSurface) CanPlayType(mime string) bool {
	p, err := s.Player()
	if err != nil {
		return false
	}
	return mime == domain.HLSMimeType && p.NativeHLS
}

// Write forwards segment bytes to the player. Bytes written before Play are
// held and flushed once the player starts.
func (s *PipeSurface) Write(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, domain.ErrSurfaceClosed
	}
	if s.stdin == nil {
		if s.pendingBytes+len(p) > maxPendingBytes {
			s.mu.Unlock()
			return 0, fmt.Errorf("player not started, %d bytes pending", s.pendingBytes)
		}
		s.pending = append(s.pending, append([]byte(nil), p...))
		s.pendingBytes += len(p)
		s.mu.Unlock()
		return len(p), nil
	}
	stdin := s.stdin
	s.mu.Unlock()

	n, err := stdin.Write(p)
	if err != nil {
		return n, fmt.Errorf("write to player: %w", err)
	}
	return n, nil
}

// Play starts the player reading from stdin. A no-op once started.
func (s *PipeSurface) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return domain.ErrSurfaceClosed
	}
	if s.cmd != nil {
		return nil
	}

	p, err := s.resolveLocked()
	if err != nil {
		return err
	}
	cmd, err := s.launcher.Command(s.ctx, p, StdinSource)
	if err != nil {
		return err
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := s.startLocked(cmd); err != nil {
		return err
	}
	s.stdin = stdin

	// Flush under the lock so later writes stay ordered behind pending ones
	for _, chunk := range s.pending {
		if _, err := stdin.Write(chunk); err != nil {
			s.logger.Warn("flushing pending media failed", "error", err)
			break
		}
	}
	s.pending = nil
	s.pendingBytes = 0
	return nil
}

// SetSource launches the player directly on url and then fires the
// loaded-metadata callback.
func (s *PipeSurface) SetSource(url string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSurfaceClosed
	}
	if s.cmd != nil {
		s.mu.Unlock()
		return errors.New("player already started")
	}
	p, err := s.resolveLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	cmd, err := s.launcher.Command(s.ctx, p, url)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.startLocked(cmd); err != nil {
		s.mu.Unlock()
		return err
	}
	onLoaded := s.onLoaded
	s.mu.Unlock()

	if onLoaded != nil {
		onLoaded()
	}
	return nil
}

// OnLoadedMetadata registers fn to run after SetSource starts the player
func (s *PipeSurface) OnLoadedMetadata(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLoaded = fn
}

func (s *PipeSurface) startLocked(cmd *exec.Cmd) error {
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.player.Name, err)
	}
	s.cmd = cmd
	s.logger.Info("player started", "player", s.player.Name, "pid", cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		s.logger.Info("player exited", "player", s.player.Name, "error", err)
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	}()
	return nil
}

// Done is closed when the player process exits
func (s *PipeSurface) Done() <-chan struct{} {
	return s.done
}

// Close stops the player. Safe to call more than once.
func (s *PipeSurface) Close() error {
	// Kill first: a flush blocked on a full pipe holds mu
	s.cancel()

	s.mu.Lock()
	started := s.cmd != nil
	s.closed = true
	s.pending = nil
	s.pendingBytes = 0
	stdin := s.stdin
	s.mu.Unlock()

	if stdin != nil {
		stdin.Close()
	}
	if !started {
		return nil
	}
	<-s.done
	return nil
}

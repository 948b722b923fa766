package player

import (
	"context"
	"sync"

	"github.com/mmcdole/livecast/internal/domain"
)

// DiscardSurface is a headless surface that counts media and drops it.
// It plays no types natively, so sessions always use the built-in engine.
type DiscardSurface struct {
	mu       sync.Mutex
	bytes    int64
	writes   int
	playing  bool
	closed   bool
	source   string
	onLoaded func()
}

// NewDiscardSurface creates a headless surface
func NewDiscardSurface() *DiscardSurface {
	return &DiscardSurface{}
}

func (d *DiscardSurface) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, domain.ErrSurfaceClosed
	}
	d.bytes += int64(len(p))
	d.writes++
	return len(p), nil
}

func (d *DiscardSurface) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return domain.ErrSurfaceClosed
	}
	d.playing = true
	return nil
}

func (d *DiscardSurface) CanPlayType(string) bool { return false }

func (d *DiscardSurface) AcceptsMedia() bool { return true }

// SetSource records url and reports it loaded
func (d *DiscardSurface) SetSource(url string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return domain.ErrSurfaceClosed
	}
	d.source = url
	fn := d.onLoaded
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

func (d *DiscardSurface) OnLoadedMetadata(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onLoaded = fn
}

// Close makes further writes fail
func (d *DiscardSurface) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Stats returns bytes and writes received, and whether Play was called
func (d *DiscardSurface) Stats() (bytes int64, writes int, playing bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bytes, d.writes, d.playing
}

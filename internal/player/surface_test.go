package player

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/livecast/internal/domain"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix commands not available")
	}
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not in PATH", name)
	}
}

func TestPipeSurfaceForwardsMedia(t *testing.T) {
	requireCommand(t, "cat")

	out := &lockedBuffer{}
	s := NewPipeSurface(NewLauncher("cat", nil, quietLogger()), WithOutput(out, nil))
	t.Cleanup(func() { s.Close() })

	assert.False(t, s.CanPlayType(domain.HLSMimeType))

	_, err := s.Write([]byte("early "))
	require.NoError(t, err)

	require.NoError(t, s.Play(context.Background()))
	require.NoError(t, s.Play(context.Background()), "play is idempotent")

	_, err = s.Write([]byte("late"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return out.String() == "early late"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Write([]byte("x"))
	assert.ErrorIs(t, err, domain.ErrSurfaceClosed)
	assert.ErrorIs(t, s.Play(context.Background()), domain.ErrSurfaceClosed)
}

func TestPipeSurfaceNativeSource(t *testing.T) {
	requireCommand(t, "echo")

	out := &lockedBuffer{}
	s := NewPipeSurface(NewLauncher("echo", nil, quietLogger()), WithOutput(out, nil))
	t.Cleanup(func() { s.Close() })

	loaded := make(chan struct{})
	s.OnLoadedMetadata(func() { close(loaded) })

	require.NoError(t, s.SetSource("http://host/hls/test.m3u8"))

	select {
	case <-loaded:
	case <-time.After(time.Second):
		t.Fatal("loaded-metadata not fired")
	}
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("player did not exit")
	}

	assert.Equal(t, "http://host/hls/test.m3u8", strings.TrimSpace(out.String()))
	assert.Error(t, s.SetSource("http://host/hls/other.m3u8"))
}

func TestPipeSurfaceNoPlayer(t *testing.T) {
	fakeSystem(t, "linux", nil, nil)

	s := NewPipeSurface(NewLauncher("", nil, quietLogger()))
	t.Cleanup(func() { s.Close() })

	assert.False(t, s.CanPlayType(domain.HLSMimeType))
	assert.ErrorIs(t, s.Play(context.Background()), domain.ErrPlayerNotFound)
	assert.ErrorIs(t, s.SetSource("http://host/hls/test.m3u8"), domain.ErrPlayerNotFound)
}

func TestDiscardSurface(t *testing.T) {
	d := NewDiscardSurface()
	assert.False(t, d.CanPlayType(domain.HLSMimeType))

	_, err := d.Write(make([]byte, 376))
	require.NoError(t, err)
	_, err = d.Write(make([]byte, 188))
	require.NoError(t, err)
	require.NoError(t, d.Play(context.Background()))

	n, writes, playing := d.Stats()
	assert.Equal(t, int64(564), n)
	assert.Equal(t, 2, writes)
	assert.True(t, playing)

	var fired bool
	d.OnLoadedMetadata(func() { fired = true })
	require.NoError(t, d.SetSource("http://host/hls/test.m3u8"))
	assert.True(t, fired)

	require.NoError(t, d.Close())
	_, err = d.Write([]byte{0x47})
	assert.ErrorIs(t, err, domain.ErrSurfaceClosed)
}

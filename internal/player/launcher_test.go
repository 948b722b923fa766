package player

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/livecast/internal/domain"
)

var errNotFound = errors.New("executable file not found in $PATH")

// fakeSystem swaps platform lookups for the duration of a test
func fakeSystem(t *testing.T, platform string, commands []string, apps []string) {
	t.Helper()
	origLook, origApp, origOS := lookPath, appExists, goos
	t.Cleanup(func() {
		lookPath, appExists, goos = origLook, origApp, origOS
	})

	goos = platform
	lookPath = func(file string) (string, error) {
		for _, c := range commands {
			if c == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", errNotFound
	}
	appExists = func(app string) bool {
		for _, a := range apps {
			if a == app {
				return true
			}
		}
		return false
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDetectFollowsCandidateOrder(t *testing.T) {
	fakeSystem(t, "linux", []string{"vlc", "celluloid"}, nil)

	p, err := NewLauncher("", nil, quietLogger()).Resolve()
	require.NoError(t, err)
	assert.Equal(t, "vlc", p.Name)
	assert.Equal(t, "vlc", p.Path)
	assert.True(t, p.ReadsStdin())
	assert.True(t, p.NativeHLS)
}

func TestDetectNativeOnlyPlayer(t *testing.T) {
	fakeSystem(t, "linux", []string{"haruna"}, nil)

	p, err := NewLauncher("", nil, quietLogger()).Resolve()
	require.NoError(t, err)
	assert.Equal(t, "haruna", p.Name)
	assert.False(t, p.ReadsStdin())
	assert.True(t, p.NativeHLS)
}

func TestDetectNoPlayer(t *testing.T) {
	fakeSystem(t, "linux", nil, nil)

	_, err := NewLauncher("", nil, quietLogger()).Resolve()
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestDetectMacApp(t *testing.T) {
	fakeSystem(t, "darwin", nil, []string{"IINA"})

	l := NewLauncher("", nil, quietLogger())
	p, err := l.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "iina", p.Name)
	assert.Equal(t, "open-a:IINA", p.Path)
	assert.False(t, p.ReadsStdin())

	_, err = l.Command(context.Background(), p, StdinSource)
	assert.Error(t, err)

	cmd, err := l.Command(context.Background(), p, "http://localhost:8080/hls/test.m3u8")
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "-n", "-a", "IINA", "http://localhost:8080/hls/test.m3u8"}, cmd.Args)
}

func TestConfiguredKnownPlayer(t *testing.T) {
	fakeSystem(t, "linux", []string{"/opt/bin/mpv"}, nil)

	l := NewLauncher("/opt/bin/mpv", []string{"--volume=50"}, quietLogger())
	p, err := l.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "mpv", p.Name)
	assert.True(t, p.ReadsStdin())

	cmd, err := l.Command(context.Background(), p, StdinSource)
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/bin/mpv", "--profile=low-latency", "--force-window=immediate", "--volume=50", "-"}, cmd.Args)

	cmd, err = l.Command(context.Background(), p, "http://host/hls/test.m3u8")
	require.NoError(t, err)
	assert.Equal(t, "http://host/hls/test.m3u8", cmd.Args[len(cmd.Args)-1])
}

func TestConfiguredUnknownPlayer(t *testing.T) {
	fakeSystem(t, "linux", []string{"myplayer"}, nil)

	p, err := NewLauncher("myplayer", nil, quietLogger()).Resolve()
	require.NoError(t, err)
	assert.Equal(t, "myplayer", p.Name)
	assert.True(t, p.ReadsStdin(), "unknown players are assumed to read '-' as stdin")
	assert.False(t, p.NativeHLS)
}

func TestConfiguredPlayerMissing(t *testing.T) {
	fakeSystem(t, "linux", nil, nil)

	_, err := NewLauncher("mpv", nil, quietLogger()).Resolve()
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestConfiguredMacAppFallback(t *testing.T) {
	fakeSystem(t, "darwin", nil, []string{"VLC"})

	l := NewLauncher("VLC", nil, quietLogger())
	p, err := l.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "open-a:VLC", p.Path)

	cmd, err := l.Command(context.Background(), p, "http://host/hls/k.m3u8")
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "-a", "VLC", "--args", "--network-caching=1000", "http://host/hls/k.m3u8"}, cmd.Args)
}

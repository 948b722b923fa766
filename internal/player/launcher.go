// Package player launches external media players and exposes them as
// playback surfaces.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mmcdole/livecast/internal/domain"
)

// StdinSource asks Command to have the player read media from its stdin
const StdinSource = "-"

const openAppPrefix = "open-a:"

// Player is a resolved external player
type Player struct {
	Name      string   // registry name, or the command's base name when unknown
	Path      string   // command path, or "open-a:AppName" on macOS
	Args      []string // registry args for live playback
	StdinArg  string   // argument that makes the player read stdin; empty if unsupported
	NativeHLS bool     // plays an HLS URL on its own
	openFlags []string
}

// ReadsStdin reports whether the player can be fed segment bytes
func (p Player) ReadsStdin() bool {
	return p.StdinArg != "" && !strings.HasPrefix(p.Path, openAppPrefix)
}

// launchPath defines a single way to launch a player
type launchPath struct {
	path      string   // "mpv", "/usr/bin/vlc" or "open-a:AppName"
	openFlags []string // flags for macOS open, "open-a:" paths only
}

// playerConfig defines how a player is launched and fed
type playerConfig struct {
	liveArgs  []string
	stdinArg  string
	nativeHLS bool
	platforms map[string][]launchPath // platform -> launch paths to try in order
}

// players registry - single source of truth for all player configuration
var players = map[string]playerConfig{
	"mpv": {
		liveArgs:  []string{"--profile=low-latency", "--force-window=immediate"},
		stdinArg:  "-",
		nativeHLS: true,
		platforms: map[string][]launchPath{
			"darwin":  {{path: "mpv"}},
			"linux":   {{path: "mpv"}},
			"windows": {{path: "mpv"}},
		},
	},
	"vlc": {
		liveArgs:  []string{"--network-caching=1000"},
		stdinArg:  "-",
		nativeHLS: true,
		platforms: map[string][]launchPath{
			"darwin": {
				{path: "vlc"},
				{path: openAppPrefix + "VLC"},
			},
			"linux":   {{path: "vlc"}},
			"windows": {{path: "vlc"}},
		},
	},
	"iina": {
		nativeHLS: true,
		platforms: map[string][]launchPath{
			"darwin": {
				{path: openAppPrefix + "IINA", openFlags: []string{"-n"}}, // IINA needs -n for new windows
			},
		},
	},
	"celluloid": {
		nativeHLS: true,
		platforms: map[string][]launchPath{
			"linux": {{path: "celluloid"}},
		},
	},
	"haruna": {
		nativeHLS: true,
		platforms: map[string][]launchPath{
			"linux": {{path: "haruna"}},
		},
	},
	"potplayer": {
		nativeHLS: true,
		platforms: map[string][]launchPath{
			"windows": {{path: "PotPlayerMini64.exe"}, {path: "PotPlayerMini.exe"}},
		},
	},
	"ffplay": {
		liveArgs:  []string{"-fflags", "nobuffer", "-loglevel", "error"},
		stdinArg:  "-",
		nativeHLS: true,
		platforms: map[string][]launchPath{
			"darwin":  {{path: "ffplay"}},
			"linux":   {{path: "ffplay"}},
			"windows": {{path: "ffplay"}},
		},
	},
}

// candidatePlayers defines the preferred player order for each platform.
// Players that read stdin come first so the built-in engine can be used.
var candidatePlayers = map[string][]string{
	"darwin":  {"mpv", "iina", "vlc", "ffplay"},
	"linux":   {"mpv", "vlc", "ffplay", "celluloid", "haruna"},
	"windows": {"mpv", "vlc", "ffplay", "potplayer"},
}

// Overridable in tests
var (
	lookPath  = exec.LookPath
	appExists = func(app string) bool {
		_, err := os.Stat(filepath.Join("/Applications", app+".app"))
		return err == nil
	}
	goos = runtime.GOOS
)

// Launcher resolves and starts the configured or detected player
type Launcher struct {
	command string   // configured player command, empty to auto-detect
	args    []string // additional arguments for the player
	logger  *slog.Logger
}

// NewLauncher creates a Launcher. An empty command auto-detects a player.
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command: command,
		args:    args,
		logger:  logger,
	}
}

// Resolve finds the player to use without starting it
func (l *Launcher) Resolve() (Player, error) {
	if l.command != "" {
		return l.resolveConfigured()
	}
	return l.detect()
}

// resolveConfigured maps the configured command onto the registry by base name
func (l *Launcher) resolveConfigured() (Player, error) {
	base := strings.ToLower(filepath.Base(l.command))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	p := Player{Name: base, Path: l.command, StdinArg: StdinSource}
	if cfg, ok := players[base]; ok {
		p.Args = cfg.liveArgs
		p.StdinArg = cfg.stdinArg
		p.NativeHLS = cfg.nativeHLS
		l.logger.Debug("configured player found in registry", "player", base)
	}

	if _, err := lookPath(l.command); err == nil {
		return p, nil
	}

	// On macOS, fall back to launching GUI apps with 'open -a'
	if goos == "darwin" && appExists(l.command) {
		p.Path = openAppPrefix + l.command
		if cfg, ok := players[base]; ok {
			for _, lp := range cfg.platforms["darwin"] {
				if strings.HasPrefix(lp.path, openAppPrefix) {
					p.openFlags = lp.openFlags
					break
				}
			}
		}
		return p, nil
	}
	return Player{}, fmt.Errorf("player %q: %w", l.command, domain.ErrPlayerNotFound)
}

// detect tries candidate players in order using their launch paths
func (l *Launcher) detect() (Player, error) {
	candidates, ok := candidatePlayers[goos]
	if !ok {
		candidates = candidatePlayers["linux"] // default
	}

	for _, name := range candidates {
		cfg, exists := players[name]
		if !exists {
			continue
		}
		paths, ok := cfg.platforms[goos]
		if !ok {
			l.logger.Debug("player not available on this platform", "player", name, "platform", goos)
			continue
		}

		for _, lp := range paths {
			if app, isApp := strings.CutPrefix(lp.path, openAppPrefix); isApp {
				if !appExists(app) {
					continue
				}
			} else if _, err := lookPath(lp.path); err != nil {
				l.logger.Debug("launch path not available", "player", name, "path", lp.path, "error", err)
				continue
			}

			l.logger.Info("detected player", "player", name, "path", lp.path)
			return Player{
				Name:      name,
				Path:      lp.path,
				Args:      cfg.liveArgs,
				StdinArg:  cfg.stdinArg,
				NativeHLS: cfg.nativeHLS,
				openFlags: lp.openFlags,
			}, nil
		}
	}
	return Player{}, fmt.Errorf("no candidate players on %s: %w", goos, domain.ErrPlayerNotFound)
}

// Command builds the process that plays source. Pass StdinSource to have
// the player read media from stdin.
func (l *Launcher) Command(ctx context.Context, p Player, source string) (*exec.Cmd, error) {
	args := append(append([]string{}, p.Args...), l.args...)

	if app, ok := strings.CutPrefix(p.Path, openAppPrefix); ok {
		if source == StdinSource {
			return nil, fmt.Errorf("%s cannot read media from stdin", p.Name)
		}
		cmdArgs := append([]string{}, p.openFlags...)
		cmdArgs = append(cmdArgs, "-a", app)
		if len(args) > 0 {
			cmdArgs = append(cmdArgs, "--args")
			cmdArgs = append(cmdArgs, args...)
		}
		cmdArgs = append(cmdArgs, source)
		l.logger.Info("using macOS 'open -a' to launch GUI app", "app", app, "args", cmdArgs)
		return exec.CommandContext(ctx, "open", cmdArgs...), nil
	}

	if source == StdinSource {
		if p.StdinArg == "" {
			return nil, fmt.Errorf("%s cannot read media from stdin", p.Name)
		}
		source = p.StdinArg
	}

	// URL or stdin marker goes at the end
	args = append(args, source)
	l.logger.Info("launching player", "command", p.Path, "args", args)
	return exec.CommandContext(ctx, p.Path, args...), nil
}

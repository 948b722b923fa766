package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/mmcdole/livecast/internal/adapter"
	"github.com/mmcdole/livecast/internal/hls"
	"github.com/mmcdole/livecast/internal/playback"
	"github.com/mmcdole/livecast/internal/player"
	"github.com/mmcdole/livecast/internal/service"
	"github.com/mmcdole/livecast/internal/store"
	"github.com/mmcdole/livecast/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

type options struct {
	watch     string
	broadcast string
	headless  bool
	duration  time.Duration
}

func main() {
	var (
		showVersion bool
		opts        options
	)
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&opts.watch, "watch", "", "open the viewer on a stream key")
	flag.StringVar(&opts.broadcast, "broadcast", "", "show broadcast instructions for a stream key")
	flag.BoolVar(&opts.headless, "headless", false, "watch without the TUI, printing status changes")
	flag.DurationVar(&opts.duration, "duration", 0, "stop a headless watch after this long")
	flag.Parse()

	if showVersion {
		fmt.Printf("livecast %s\n", Version)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired services
type app struct {
	cfg     *adapter.Config
	logger  *slog.Logger
	streams *service.StreamService
	history *service.HistoryService
	engine  *hls.Engine
}

func run(opts options) error {
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	} else {
		defer logCloser.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting livecast", "version", Version)

	historyStore, err := store.NewHistoryStore(cfg.History.Dir, cfg.Server.HLS)
	if err != nil {
		logger.Warn("history unavailable, keeping it in memory", "error", err)
		if historyStore, err = store.NewHistoryStore("", ""); err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
	}
	defer historyStore.Close()

	a := &app{
		cfg:     cfg,
		logger:  logger,
		streams: service.NewStreamService(cfg.Server.RTMP, cfg.Server.HLS),
		history: service.NewHistoryService(historyStore, logger),
		engine: hls.NewEngine(
			hls.WithLogger(logger),
			hls.WithRequestRate(cfg.Playback.RequestsPerSecond, hls.DefaultRequestBurst),
		),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	switch {
	case opts.headless, !interactive && opts.watch != "":
		return a.runHeadless(ctx, opts, os.Stdout)
	case !interactive:
		key := opts.broadcast
		if key == "" {
			key = tui.DefaultStreamKey
		}
		return a.printInstructions(key, os.Stdout)
	}
	return a.runTUI(ctx, opts)
}

func (a *app) playbackOptions() []playback.Option {
	return []playback.Option{
		playback.WithLogger(a.logger),
		playback.WithRetryDelay(a.cfg.Playback.RetryDelay),
		playback.WithMaxNetworkRetries(a.cfg.Playback.MaxNetworkRetries),
		playback.WithClientConfig(a.cfg.ClientConfig()),
	}
}

func (a *app) runTUI(ctx context.Context, opts options) error {
	launcher := player.NewLauncher(a.cfg.Player.Command, a.cfg.Player.Args, a.logger)
	newSurface := func() (service.Surface, error) {
		return player.NewPipeSurface(launcher, player.WithSurfaceLogger(a.logger)), nil
	}

	viewer := service.NewViewerService(a.streams, a.history, a.engine, a.cfg.Playback.Engine,
		newSurface, a.logger, a.playbackOptions()...)
	defer viewer.Stop()

	var modelOpts []tui.ModelOption
	modelOpts = append(modelOpts, tui.WithLogger(a.logger))
	switch {
	case opts.watch != "":
		modelOpts = append(modelOpts, tui.WithWatch(opts.watch))
	case opts.broadcast != "":
		modelOpts = append(modelOpts, tui.WithBroadcast(opts.broadcast))
	}

	model := tui.NewModel(tui.Services{
		Streams:   a.streams,
		Broadcast: service.NewBroadcastService(a.streams, a.logger),
		History:   a.history,
		Viewer:    viewer,
	}, modelOpts...)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	a.logger.Info("starting TUI")

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	a.logger.Info("shutting down")
	return nil
}

// runHeadless watches a key into a discard surface and prints each status
// transition until interrupted or the duration elapses
func (a *app) runHeadless(ctx context.Context, opts options, out io.Writer) error {
	key := opts.watch
	if key == "" {
		key = tui.DefaultStreamKey
	}

	viewer := service.NewViewerService(a.streams, a.history, a.engine, a.cfg.Playback.Engine,
		func() (service.Surface, error) { return player.NewDiscardSurface(), nil },
		a.logger, a.playbackOptions()...)
	defer viewer.Stop()

	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	printer := playback.ObserverFunc(func(s playback.State) {
		line := fmt.Sprintf("%s %s %s", time.Now().Format(time.TimeOnly), s.Status, s.URL)
		if s.ErrorMessage != "" {
			line += ": " + s.ErrorMessage
		}
		fmt.Fprintln(out, line)
	})

	if _, err := viewer.Watch(key, printer); err != nil {
		return fmt.Errorf("failed to watch %s: %w", key, err)
	}

	<-ctx.Done()
	return nil
}

func (a *app) printInstructions(key string, out io.Writer) error {
	inst, err := service.NewBroadcastService(a.streams, a.logger).Instructions(key)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "OBS Studio (Settings > Stream > Service: Custom)\n")
	fmt.Fprintf(out, "  Server:     %s\n", inst.OBSServer)
	fmt.Fprintf(out, "  Stream Key: %s\n\n", inst.OBSStreamKey)
	fmt.Fprintf(out, "FFmpeg camera and microphone:\n  %s\n\n", inst.CaptureCommandLine())
	fmt.Fprintf(out, "FFmpeg test pattern:\n  %s\n\n", inst.TestCommandLine())
	fmt.Fprintf(out, "Share with viewers:\n  %s\n  %s\n", inst.ShareCommand, inst.ViewerURL)
	return nil
}

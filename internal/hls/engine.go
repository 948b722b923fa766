// Package hls is a Go adaptive-streaming client: it loads an HLS manifest,
// follows a live media playlist, fetches segments, checks their container
// framing and appends them to an attached media sink.
package hls

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mmcdole/livecast/internal/domain"
)

// Defaults for retry and pacing policy
const (
	DefaultManifestRetries   = 1
	DefaultLevelRetries      = 2
	DefaultFragRetries       = 3
	DefaultRetryDelay        = time.Second
	DefaultMaxRetryDelay     = 8 * time.Second
	DefaultRequestsPerSecond = 20
	DefaultRequestBurst      = 5

	defaultDestroyTimeout = 2 * time.Second
)

// Engine creates Clients. It implements domain.Engine.
type Engine struct {
	enabled         bool
	httpClient      *http.Client
	logger          *slog.Logger
	rps             float64
	burst           int
	manifestRetries int
	levelRetries    int
	fragRetries     int
	retryDelay      time.Duration
	maxRetryDelay   time.Duration
	destroyTimeout  time.Duration
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithEnabled toggles engine support; a disabled engine reports IsSupported false
func WithEnabled(enabled bool) EngineOption {
	return func(e *Engine) { e.enabled = enabled }
}

// WithHTTPClient sets the HTTP client used for playlists and segments
func WithHTTPClient(c *http.Client) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.httpClient = c
		}
	}
}

// WithLogger sets the engine logger
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRequestRate limits requests per client
func WithRequestRate(rps float64, burst int) EngineOption {
	return func(e *Engine) {
		if rps > 0 {
			e.rps = rps
		}
		if burst > 0 {
			e.burst = burst
		}
	}
}

// WithRetryPolicy sets retry counts for manifest, level and fragment loads,
// and the initial delay between attempts (doubled per attempt)
func WithRetryPolicy(manifest, level, frag int, delay time.Duration) EngineOption {
	return func(e *Engine) {
		e.manifestRetries = max(manifest, 0)
		e.levelRetries = max(level, 0)
		e.fragRetries = max(frag, 0)
		if delay > 0 {
			e.retryDelay = delay
			e.maxRetryDelay = max(e.maxRetryDelay, delay)
		}
	}
}

// NewEngine creates an enabled engine with default policy
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		enabled:         true,
		httpClient:      &http.Client{Timeout: 20 * time.Second},
		logger:          slog.Default(),
		rps:             DefaultRequestsPerSecond,
		burst:           DefaultRequestBurst,
		manifestRetries: DefaultManifestRetries,
		levelRetries:    DefaultLevelRetries,
		fragRetries:     DefaultFragRetries,
		retryDelay:      DefaultRetryDelay,
		maxRetryDelay:   DefaultMaxRetryDelay,
		destroyTimeout:  defaultDestroyTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsSupported reports whether the engine may be used
func (e *Engine) IsSupported() bool {
	return e.enabled
}

// NewClient creates a stream client
func (e *Engine) NewClient(cfg domain.ClientConfig) domain.StreamClient {
	return e.newClient(cfg)
}

func (e *Engine) newClient(cfg domain.ClientConfig) *Client {
	return newClient(cfg, clientDeps{
		httpClient:      e.httpClient,
		limiter:         rate.NewLimiter(rate.Limit(e.rps), e.burst),
		logger:          e.logger,
		manifestRetries: e.manifestRetries,
		levelRetries:    e.levelRetries,
		fragRetries:     e.fragRetries,
		retryDelay:      e.retryDelay,
		maxRetryDelay:   e.maxRetryDelay,
		destroyTimeout:  e.destroyTimeout,
	})
}

package hls

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mmcdole/livecast/internal/domain"
)

const eventQueueSize = 64

type clientDeps struct {
	httpClient      *http.Client
	limiter         *rate.Limiter
	logger          *slog.Logger
	manifestRetries int
	levelRetries    int
	fragRetries     int
	retryDelay      time.Duration
	maxRetryDelay   time.Duration
	destroyTimeout  time.Duration
}

// Stats describes the client's current loading state
type Stats struct {
	Level           int     // index into Levels, sorted by bandwidth
	Levels          int     // 0 for a media-only manifest
	BandwidthBps    float64 // throughput estimate
	ForwardBuffer   time.Duration
	BackBuffer      time.Duration
	SegmentsWritten int
	BytesWritten    int64
	Loading         bool
}

// Client loads one HLS stream into an attached media sink.
// It implements domain.StreamClient.
type Client struct {
	cfg  domain.ClientConfig
	deps clientDeps

	ctx    context.Context
	cancel context.CancelFunc
	events chan domain.Event

	demux *demuxer
	buf   *segmentBuffer
	abr   bandwidthEstimator

	mu          sync.Mutex
	source      string
	sink        domain.MediaSink
	handlers    map[domain.EventKind][]func(domain.Event)
	loadCancel  context.CancelFunc
	loadDone    chan struct{}
	generation  uint64 // bumped by RecoverMediaError to discard queued segments
	level       int
	levels      int
	destroyed   bool
	destroyOnce sync.Once
}

func newClient(cfg domain.ClientConfig, deps clientDeps) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:      cfg,
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan domain.Event, eventQueueSize),
		demux:    &demuxer{},
		buf:      newSegmentBuffer(cfg.BackBufferLength),
		handlers: make(map[domain.EventKind][]func(domain.Event)),
	}
	go c.dispatch()
	return c
}

// On registers a handler. Handlers run on the client's dispatcher goroutine,
// one event at a time, in emission order.
func (c *Client) On(kind domain.EventKind, handler func(domain.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[kind] = append(c.handlers[kind], handler)
}

// LoadSource sets the manifest URL. Loading begins once media is attached.
func (c *Client) LoadSource(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.source = url
	c.maybeStartLocked()
}

// AttachMedia sets the sink segments are appended to.
func (c *Client) AttachMedia(sink domain.MediaSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.sink = sink
	c.demux.attach(sink)
	c.maybeStartLocked()
}

// StartLoad resumes loading after it stopped. A no-op while a load is running.
func (c *Client) StartLoad() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.maybeStartLocked()
}

// RecoverMediaError resets the demuxer and discards fetched segments that
// have not been appended yet.
func (c *Client) RecoverMediaError() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.generation++
	c.mu.Unlock()

	c.buf.flushForward()
	c.demux.reset()
	c.deps.logger.Info("media pipeline reset")
}

// Destroy stops loading, detaches media and drops any further events.
func (c *Client) Destroy() {
	c.destroyOnce.Do(func() {
		c.mu.Lock()
		c.destroyed = true
		if c.loadCancel != nil {
			c.loadCancel()
		}
		done := c.loadDone
		c.sink = nil
		c.mu.Unlock()

		c.cancel()
		c.demux.detach()

		if done != nil {
			select {
			case <-done:
			case <-time.After(c.deps.destroyTimeout):
				c.deps.logger.Warn("hls loader did not exit before destroy timeout")
			}
		}
	})
}

// Stats returns a snapshot of loading state
func (c *Client) Stats() Stats {
	forward, back, count, bytes := c.buf.snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Level:           c.level,
		Levels:          c.levels,
		BandwidthBps:    c.abr.bitsPerSecond(),
		ForwardBuffer:   forward,
		BackBuffer:      back,
		SegmentsWritten: count,
		BytesWritten:    bytes,
		Loading:         c.loadDone != nil,
	}
}

func (c *Client) maybeStartLocked() {
	if c.source == "" || c.sink == nil || c.loadDone != nil {
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	done := make(chan struct{})
	c.loadCancel = cancel
	c.loadDone = done
	source := c.source

	go func() {
		defer close(done)
		defer cancel()
		c.run(ctx, source)

		c.mu.Lock()
		if c.loadDone == done {
			c.loadDone = nil
			c.loadCancel = nil
		}
		c.mu.Unlock()
	}()
}

func (c *Client) emit(ev domain.Event) {
	if c.ctx.Err() != nil {
		return
	}
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

func (c *Client) dispatch() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.events:
			if c.ctx.Err() != nil {
				return
			}
			c.mu.Lock()
			handlers := append([]func(domain.Event){}, c.handlers[ev.Kind]...)
			c.mu.Unlock()
			for _, h := range handlers {
				h(ev)
			}
		}
	}
}

func (c *Client) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

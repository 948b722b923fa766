package hls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmcdole/livecast/internal/domain"
)

const (
	maxPlaylistBytes = 4 << 20
	maxSegmentBytes  = 64 << 20
	workerQueueSize  = 8
)

// fetchedSegment is a downloaded segment on its way to the demuxer
type fetchedSegment struct {
	ref        segmentRef
	data       []byte
	generation uint64
}

// run is one load cycle: manifest, then the media playlist until the stream
// ends, the context is cancelled or a fatal error is emitted.
func (c *Client) run(ctx context.Context, source string) {
	g, gctx := errgroup.WithContext(ctx)

	var deliver func(context.Context, fetchedSegment) error
	if c.cfg.EnableWorker {
		queue := make(chan fetchedSegment, workerQueueSize)
		deliver = func(ctx context.Context, seg fetchedSegment) error {
			select {
			case queue <- seg:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case seg, ok := <-queue:
					if !ok {
						return nil
					}
					c.appendSegment(seg)
				}
			}
		})
		g.Go(func() error {
			defer close(queue)
			return c.load(gctx, source, deliver)
		})
	} else {
		deliver = func(_ context.Context, seg fetchedSegment) error {
			c.appendSegment(seg)
			return nil
		}
		g.Go(func() error {
			return c.load(gctx, source, deliver)
		})
	}

	err := g.Wait()
	switch {
	case err == nil:
		c.deps.logger.Info("hls loading finished", "url", source)
	case errors.Is(err, errStopLoading), errors.Is(err, context.Canceled):
		c.deps.logger.Debug("hls loading stopped", "url", source, "reason", err)
	default:
		c.deps.logger.Error("hls loader failed", "url", source, "error", err)
		c.emit(fatalEvent(domain.ErrorTypeOther, DetailInternalException))
	}
}

// load fetches the manifest and follows the media playlist
func (c *Client) load(ctx context.Context, source string, deliver func(context.Context, fetchedSegment) error) error {
	body, err := c.fetchWithRetry(ctx, source, c.deps.manifestRetries, maxPlaylistBytes, nil)
	if err != nil {
		return c.stopWith(ctx, err, domain.ErrorTypeNetwork, DetailManifestLoadError)
	}

	levels, media, err := decodeManifest(source, body)
	if err != nil {
		c.deps.logger.Warn("manifest parse failed", "url", source, "error", err)
		return c.stopWith(ctx, err, domain.ErrorTypeNetwork, DetailManifestParsingError)
	}

	// Start on the lowest level; ABR moves up once segments have been timed
	mediaURL := source
	current := 0
	if levels != nil {
		mediaURL = levels[current].uri
		media, err = c.loadLevel(ctx, mediaURL)
		if err != nil {
			return err
		}
	}
	c.setLevel(current, len(levels))

	c.deps.logger.Info("manifest parsed", "url", source, "levels", len(levels))
	c.emit(domain.Event{Kind: domain.EventManifestParsed})

	var next uint64
	first := true
	for {
		if !first && mediaSequenceReset(media, next) {
			c.deps.logger.Warn("media sequence went backwards, restarting at live edge",
				"url", mediaURL, "expected", next, "last", media.segments[len(media.segments)-1].seq)
			next = 0
			first = true
		}

		start := 0
		if first {
			start = startIndex(media, c.cfg.LowLatencyMode)
			first = false
		}

		for _, ref := range media.segments[start:] {
			if ref.seq < next {
				continue
			}
			data, err := c.loadFragment(ctx, ref)
			if err != nil {
				return err
			}
			next = ref.seq + 1

			seg := fetchedSegment{ref: ref, data: data, generation: c.currentGeneration()}
			c.buf.queued(bufferedSegment{seq: ref.seq, duration: ref.duration, size: len(data)})
			if err := deliver(ctx, seg); err != nil {
				return err
			}
		}

		if levels != nil {
			if switched := selectLevel(levelBandwidths(levels), c.abr.bitsPerSecond()); switched != current {
				c.deps.logger.Info("switching level", "from", current, "to", switched, "bandwidth", levels[switched].bandwidth)
				current = switched
				mediaURL = levels[current].uri
				c.setLevel(current, len(levels))
				c.emit(domain.Event{Kind: domain.EventLevelSwitched, Level: current})
			}
		}

		if media.closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reloadInterval(media, c.cfg.LowLatencyMode)):
		}

		media, err = c.loadLevel(ctx, mediaURL)
		if err != nil {
			return err
		}
	}
}

// mediaSequenceReset reports whether a reloaded playlist ends before the
// segment already loaded, as happens when the publisher restarts
func mediaSequenceReset(media *mediaPlaylist, next uint64) bool {
	if len(media.segments) == 0 || next == 0 {
		return false
	}
	return media.segments[len(media.segments)-1].seq+1 < next
}

// loadLevel fetches and decodes a media playlist. Failed attempts are
// reported as non-fatal until retries run out.
func (c *Client) loadLevel(ctx context.Context, mediaURL string) (*mediaPlaylist, error) {
	warn := func(error) {
		c.emit(warningEvent(domain.ErrorTypeNetwork, DetailLevelLoadError))
	}
	body, err := c.fetchWithRetry(ctx, mediaURL, c.deps.levelRetries, maxPlaylistBytes, warn)
	if err != nil {
		return nil, c.stopWith(ctx, err, domain.ErrorTypeNetwork, DetailLevelLoadError)
	}
	media, err := decodeMedia(mediaURL, body)
	if err != nil {
		c.deps.logger.Warn("level playlist parse failed", "url", mediaURL, "error", err)
		return nil, c.stopWith(ctx, err, domain.ErrorTypeNetwork, DetailLevelLoadError)
	}
	return media, nil
}

func (c *Client) loadFragment(ctx context.Context, ref segmentRef) ([]byte, error) {
	warn := func(error) {
		c.emit(warningEvent(domain.ErrorTypeNetwork, DetailFragLoadError))
	}
	started := time.Now()
	data, err := c.fetchWithRetry(ctx, ref.uri, c.deps.fragRetries, maxSegmentBytes, warn)
	if err != nil {
		return nil, c.stopWith(ctx, err, domain.ErrorTypeNetwork, DetailFragLoadError)
	}
	c.abr.sample(len(data), time.Since(started))
	return data, nil
}

// stopWith emits a fatal error unless the failure came from cancellation
func (c *Client) stopWith(ctx context.Context, err error, typ domain.ErrorType, details string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.deps.logger.Warn("fatal stream error", "details", details, "error", err)
	c.emit(fatalEvent(typ, details))
	return errStopLoading
}

// appendSegment hands a fetched segment to the demuxer
func (c *Client) appendSegment(seg fetchedSegment) {
	if seg.generation != c.currentGeneration() {
		c.buf.dropped(seg.ref.seq)
		return
	}

	ok, err := c.demux.appendSegment(seg.data)
	switch {
	case errors.Is(err, errUnknownContainer):
		c.buf.dropped(seg.ref.seq)
		c.deps.logger.Warn("segment parse failed", "seq", seg.ref.seq, "uri", seg.ref.uri)
		c.emit(fatalEvent(domain.ErrorTypeMedia, DetailFragParsingError))
	case errors.Is(err, errSinkDetached):
		c.buf.dropped(seg.ref.seq)
	case err != nil:
		c.buf.dropped(seg.ref.seq)
		c.deps.logger.Warn("segment append failed", "seq", seg.ref.seq, "error", err)
		c.emit(fatalEvent(domain.ErrorTypeMedia, DetailBufferAppendError))
	case !ok:
		c.buf.dropped(seg.ref.seq)
	default:
		c.buf.appended(seg.ref.seq)
		c.emit(domain.Event{Kind: domain.EventFragBuffered})
	}
}

func (c *Client) setLevel(current, levels int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = current
	c.levels = levels
}

// fetchWithRetry GETs url, retrying with doubling delay. warn runs after
// each failed attempt that will be retried.
func (c *Client) fetchWithRetry(ctx context.Context, url string, retries int, limit int64, warn func(error)) ([]byte, error) {
	delay := c.deps.retryDelay
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		body, err := c.fetch(ctx, url, limit)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if attempt == retries {
			break
		}

		c.deps.logger.Debug("request failed, retrying", "url", url, "attempt", attempt+1, "error", err)
		if warn != nil {
			warn(err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, c.deps.maxRetryDelay)
	}
	return nil, lastErr
}

func (c *Client) fetch(ctx context.Context, url string, limit int64) ([]byte, error) {
	if err := c.deps.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.deps.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", errBodyTooLarge, url, limit)
	}
	return body, nil
}

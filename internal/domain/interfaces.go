package domain

import (
	"context"
	"io"
)

// MediaSink receives segment bytes from an attached StreamClient.
type MediaSink interface {
	io.Writer
}

// Surface is where a stream is rendered. It is supplied by the caller and
// written to by a session, never owned by it.
type Surface interface {
	MediaSink

	// Play starts rendering. A failure here is not fatal to the session.
	Play(ctx context.Context) error

	// CanPlayType reports whether the surface understands the media type natively
	CanPlayType(mime string) bool

	// SetSource hands the stream URL directly to the surface (native playback)
	SetSource(url string) error

	// OnLoadedMetadata registers fn to run once native playback has loaded
	OnLoadedMetadata(fn func())
}

// StreamClient is an adaptive-streaming client driven by a playback session.
// Handlers registered with On are invoked one at a time, in emission order.
type StreamClient interface {
	LoadSource(url string)
	AttachMedia(sink MediaSink)
	On(kind EventKind, handler func(Event))
	StartLoad()
	RecoverMediaError()
	Destroy()
}

// Engine creates stream clients when the runtime supports them.
type Engine interface {
	IsSupported() bool
	NewClient(cfg ClientConfig) StreamClient
}

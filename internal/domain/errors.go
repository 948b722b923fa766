package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrInvalidStreamURL indicates a session was started without a stream URL
	ErrInvalidStreamURL = errors.New("stream URL is empty")

	// ErrNoSurface indicates a session was started without a playback surface
	ErrNoSurface = errors.New("playback surface is nil")

	// ErrSessionStarted indicates Start was called twice on one session
	ErrSessionStarted = errors.New("playback session already started")

	// ErrInvalidStreamKey indicates a stream key cannot be used in a URL path
	ErrInvalidStreamKey = errors.New("invalid stream key")

	// ErrPlayerNotFound indicates no external player could be launched
	ErrPlayerNotFound = errors.New("no media player found")

	// ErrSurfaceClosed indicates media was written to a closed surface
	ErrSurfaceClosed = errors.New("playback surface is closed")
)

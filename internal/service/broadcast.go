package service

import (
	"fmt"
	"log/slog"
	"strings"
)

// Instructions tells a broadcaster how to publish a stream key
type Instructions struct {
	Key string

	// OBS Studio custom service settings
	OBSServer    string
	OBSStreamKey string

	CaptureCommand []string // FFmpeg camera and microphone capture
	TestCommand    []string // FFmpeg test pattern and tone
	ShareCommand   string   // what a viewer runs
	ViewerURL      string
}

// CaptureCommandLine returns the capture command as one shell line
func (i Instructions) CaptureCommandLine() string { return shellJoin(i.CaptureCommand) }

// TestCommandLine returns the test-source command as one shell line
func (i Instructions) TestCommandLine() string { return shellJoin(i.TestCommand) }

// BroadcastService builds publishing instructions
type BroadcastService struct {
	streams *StreamService
	logger  *slog.Logger
}

// NewBroadcastService creates a broadcast service
func NewBroadcastService(streams *StreamService, logger *slog.Logger) *BroadcastService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BroadcastService{streams: streams, logger: logger}
}

// Instructions returns the OBS settings, FFmpeg commands and share link for key
func (s *BroadcastService) Instructions(key string) (Instructions, error) {
	ingest, err := s.streams.IngestURL(key)
	if err != nil {
		return Instructions{}, err
	}
	viewerURL, err := s.streams.StreamURL(key)
	if err != nil {
		return Instructions{}, err
	}

	encode := []string{
		"-c:v", "libx264", "-preset", "ultrafast", "-b:v", "1500k",
		"-c:a", "aac", "-b:a", "128k",
		"-f", "flv", ingest,
	}

	inst := Instructions{
		Key:          key,
		OBSServer:    s.streams.ServerInfo().RTMP + "/stream",
		OBSStreamKey: key,
		CaptureCommand: append([]string{
			"ffmpeg", "-f", "avfoundation", "-framerate", "30", "-i", "0:0",
		}, encode...),
		TestCommand: append([]string{
			"ffmpeg", "-re",
			"-f", "lavfi", "-i", "testsrc=size=1280x720:rate=30",
			"-f", "lavfi", "-i", "sine=frequency=1000",
		}, encode...),
		ShareCommand: "livecast --watch " + key,
		ViewerURL:    viewerURL,
	}
	s.logger.Debug("built broadcast instructions", "key", key, "ingest", ingest)
	return inst, nil
}

// shellJoin quotes arguments that a POSIX shell would split or expand
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'$`\\;&|<>*?") {
			quoted[i] = fmt.Sprintf("%q", a)
		} else {
			quoted[i] = a
		}
	}
	return strings.Join(quoted, " ")
}

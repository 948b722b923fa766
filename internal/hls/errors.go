package hls

import (
	"errors"
	"fmt"

	"github.com/mmcdole/livecast/internal/domain"
)

// Error details reported with domain.EventError
const (
	DetailManifestLoadError    = "manifestLoadError"
	DetailManifestParsingError = "manifestParsingError"
	DetailLevelLoadError       = "levelLoadError"
	DetailFragLoadError        = "fragLoadError"
	DetailFragParsingError     = "fragParsingError"
	DetailBufferAppendError    = "bufferAppendError"
	DetailInternalException    = "internalException"
)

// errStopLoading ends the current load loop after a fatal error has been emitted
var errStopLoading = errors.New("hls: loading stopped")

var (
	errUnknownContainer = errors.New("hls: unrecognized segment container")
	errSinkDetached     = errors.New("hls: no media attached")
	errBodyTooLarge     = errors.New("hls: response body too large")
)

// HTTPError is returned when a playlist or segment request gets a non-2xx response
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("hls: GET %s: status %d", e.URL, e.StatusCode)
}

func fatalEvent(typ domain.ErrorType, details string) domain.Event {
	return domain.Event{Kind: domain.EventError, Fatal: true, Type: typ, Details: details}
}

func warningEvent(typ domain.ErrorType, details string) domain.Event {
	return domain.Event{Kind: domain.EventError, Fatal: false, Type: typ, Details: details}
}

package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmcdole/livecast/internal/domain"
)

func TestReduce(t *testing.T) {
	connecting := State{URL: testURL, Status: domain.StatusConnecting}
	playing := State{URL: testURL, Status: domain.StatusPlaying}
	failed := State{URL: testURL, Status: domain.StatusError, ErrorMessage: MsgNetworkError}

	tests := []struct {
		name       string
		from       State
		event      domain.Event
		wantStatus domain.Status
		wantMsg    string
		wantEffect Effect
	}{
		{
			name:       "manifest parsed while connecting",
			from:       connecting,
			event:      domain.Event{Kind: domain.EventManifestParsed},
			wantStatus: domain.StatusPlaying,
			wantEffect: EffectPlay,
		},
		{
			name:       "manifest parsed while playing",
			from:       playing,
			event:      domain.Event{Kind: domain.EventManifestParsed},
			wantStatus: domain.StatusPlaying,
			wantEffect: EffectNone,
		},
		{
			name:       "manifest parsed while in error",
			from:       failed,
			event:      domain.Event{Kind: domain.EventManifestParsed},
			wantStatus: domain.StatusError,
			wantMsg:    MsgNetworkError,
			wantEffect: EffectNone,
		},
		{
			name:       "non-fatal error",
			from:       playing,
			event:      domain.Event{Kind: domain.EventError, Type: domain.ErrorTypeMedia},
			wantStatus: domain.StatusPlaying,
			wantEffect: EffectNone,
		},
		{
			name:       "fatal network",
			from:       connecting,
			event:      domain.Event{Kind: domain.EventError, Fatal: true, Type: domain.ErrorTypeNetwork},
			wantStatus: domain.StatusError,
			wantMsg:    MsgNetworkError,
			wantEffect: EffectScheduleRetry,
		},
		{
			name:       "fatal media",
			from:       playing,
			event:      domain.Event{Kind: domain.EventError, Fatal: true, Type: domain.ErrorTypeMedia},
			wantStatus: domain.StatusError,
			wantMsg:    MsgMediaError,
			wantEffect: EffectRecoverMedia,
		},
		{
			name:       "fatal other",
			from:       playing,
			event:      domain.Event{Kind: domain.EventError, Fatal: true, Details: "keySystemError"},
			wantStatus: domain.StatusError,
			wantMsg:    "Fatal error: keySystemError",
			wantEffect: EffectNone,
		},
		{
			name:       "fatal media replaces network message",
			from:       failed,
			event:      domain.Event{Kind: domain.EventError, Fatal: true, Type: domain.ErrorTypeMedia},
			wantStatus: domain.StatusError,
			wantMsg:    MsgMediaError,
			wantEffect: EffectRecoverMedia,
		},
		{
			name:       "level switch is informational",
			from:       playing,
			event:      domain.Event{Kind: domain.EventLevelSwitched, Level: 2},
			wantStatus: domain.StatusPlaying,
			wantEffect: EffectNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, effect := Reduce(tt.from, tt.event)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantMsg, got.ErrorMessage)
			assert.Equal(t, tt.wantEffect, effect)
			assert.Equal(t, testURL, got.URL)
		})
	}
}

func TestResume(t *testing.T) {
	got, ok := Resume(State{Status: domain.StatusError, ErrorMessage: MsgNetworkError})
	assert.True(t, ok)
	assert.Equal(t, domain.StatusConnecting, got.Status)
	assert.Empty(t, got.ErrorMessage)

	_, ok = Resume(State{Status: domain.StatusPlaying})
	assert.False(t, ok)
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/livecast/internal/domain"
	"github.com/mmcdole/livecast/internal/store"
)

func newHistory(t *testing.T) *HistoryService {
	t.Helper()
	s, err := store.NewHistoryStore("", "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewHistoryService(s, nil)
}

func TestHistoryRecordAndKeys(t *testing.T) {
	h := newHistory(t)

	require.NoError(t, h.Record(domain.RoleViewer, "test"))
	require.NoError(t, h.Record(domain.RoleBroadcaster, "test"))
	require.NoError(t, h.Record(domain.RoleViewer, "gaming"))
	assert.ErrorIs(t, h.Record(domain.RoleViewer, "no/slash"), domain.ErrInvalidStreamKey)

	keys := h.Keys(0)
	assert.ElementsMatch(t, []string{"test", "gaming"}, keys)

	viewer, err := h.Recent(domain.RoleViewer, 0)
	require.NoError(t, err)
	assert.Len(t, viewer, 2)

	broadcaster, err := h.Recent(domain.RoleBroadcaster, 0)
	require.NoError(t, err)
	require.Len(t, broadcaster, 1)
	assert.Equal(t, "test", broadcaster[0].Key)

	require.NoError(t, h.Forget(domain.RoleBroadcaster, "test"))
	broadcaster, err = h.Recent(domain.RoleBroadcaster, 0)
	require.NoError(t, err)
	assert.Empty(t, broadcaster)
}

func TestHistorySearchRanking(t *testing.T) {
	h := newHistory(t)
	for _, key := range []string{"latest-test", "gaming", "test", "testing"} {
		require.NoError(t, h.Record(domain.RoleViewer, key))
	}

	results := h.Search("test")
	require.Len(t, results, 3)
	assert.Equal(t, "test", results[0], "exact match first")
	assert.Equal(t, "testing", results[1], "prefix before contains")
	assert.Equal(t, "latest-test", results[2])

	assert.Equal(t, []string{"gaming"}, h.Search("gmng"))
	assert.Empty(t, h.Search("zzz"))
	assert.Len(t, h.Search("  "), 4)
}

func TestCalculateMatchScore(t *testing.T) {
	assert.Equal(t, 0, calculateMatchScore("test", "test"))
	assert.Equal(t, 10, calculateMatchScore("testing", "test"))
	assert.Equal(t, 50, calculateMatchScore("mytest", "test"))
	assert.Greater(t, calculateMatchScore("gaming", "gmng"), 100)
}

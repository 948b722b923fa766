package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/livecast/internal/domain"
)

func openStores(t *testing.T) map[string]*HistoryStore {
	t.Helper()
	disk, err := NewHistoryStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)
	t.Cleanup(func() { disk.Close() })

	memory, err := NewHistoryStore("", "")
	require.NoError(t, err)
	t.Cleanup(func() { memory.Close() })

	return map[string]*HistoryStore{"bolt": disk, "memory": memory}
}

func TestHistoryRecordAndRecent(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Record(domain.HistoryEntry{Key: "test", Role: domain.RoleViewer, LastUsed: base}))
			require.NoError(t, s.Record(domain.HistoryEntry{Key: "gaming", Role: domain.RoleBroadcaster, LastUsed: base.Add(time.Minute)}))
			require.NoError(t, s.Record(domain.HistoryEntry{Key: "test", Role: domain.RoleViewer, LastUsed: base.Add(2 * time.Minute)}))

			entries, err := s.Recent(0)
			require.NoError(t, err)
			require.Len(t, entries, 2)

			assert.Equal(t, "test", entries[0].Key)
			assert.Equal(t, 2, entries[0].Count)
			assert.True(t, entries[0].LastUsed.Equal(base.Add(2*time.Minute)))
			assert.Equal(t, "gaming", entries[1].Key)
			assert.Equal(t, domain.RoleBroadcaster, entries[1].Role)

			limited, err := s.Recent(1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)
		})
	}
}

func TestHistoryRolesAreSeparate(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Record(domain.HistoryEntry{Key: "test", Role: domain.RoleViewer}))
			require.NoError(t, s.Record(domain.HistoryEntry{Key: "test", Role: domain.RoleBroadcaster}))

			entries, err := s.Recent(0)
			require.NoError(t, err)
			assert.Len(t, entries, 2)

			require.NoError(t, s.Delete(domain.RoleViewer, "test"))
			require.NoError(t, s.Delete(domain.RoleViewer, "missing"))

			entries, err = s.Recent(0)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, domain.RoleBroadcaster, entries[0].Role)
		})
	}
}

func TestHistoryRejectsEmptyKey(t *testing.T) {
	s, err := NewHistoryStore("", "")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Record(domain.HistoryEntry{Role: domain.RoleViewer}), domain.ErrInvalidStreamKey)
}

func TestHistoryPersists(t *testing.T) {
	dir := t.TempDir()

	s, err := NewHistoryStore(dir, "http://localhost:8080/")
	require.NoError(t, err)
	require.NoError(t, s.Record(domain.HistoryEntry{Key: "test", Role: domain.RoleViewer}))
	require.NoError(t, s.Close())

	// Trailing slash and case do not change the server directory
	s, err = NewHistoryStore(dir, "HTTP://localhost:8080")
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Count)

	other, err := NewHistoryStore(dir, "http://other:8080")
	require.NoError(t, err)
	defer other.Close()
	entries, err = other.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/livecast/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var bucketHistory = []byte("history")

var _ domain.HistoryStore = (*HistoryStore)(nil)

// HistoryStore implements domain.HistoryStore using BoltDB.
type HistoryStore struct {
	db  *bolt.DB
	now func() time.Time

	// Memory-only mode (no persistence) keeps entries here
	mu     sync.Mutex
	memory map[string][]byte
}

// NewHistoryStore opens the history database for one streaming server.
// An empty baseDir keeps history in memory only.
func NewHistoryStore(baseDir, serverURL string) (*HistoryStore, error) {
	if baseDir == "" {
		return &HistoryStore{now: time.Now, memory: make(map[string][]byte)}, nil
	}

	dir := baseDir
	if serverURL != "" {
		dir = filepath.Join(baseDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "livecast.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHistory)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &HistoryStore{db: db, now: time.Now}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func entryKey(role domain.Role, key string) string {
	return string(role) + ":" + key
}

func (s *HistoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record bumps the use count of entry's key and role and stamps LastUsed.
// A zero LastUsed means now.
func (s *HistoryStore) Record(entry domain.HistoryEntry) error {
	if entry.Key == "" {
		return fmt.Errorf("record history: %w", domain.ErrInvalidStreamKey)
	}
	if entry.LastUsed.IsZero() {
		entry.LastUsed = s.now()
	}
	k := entryKey(entry.Role, entry.Key)

	merge := func(existing []byte) ([]byte, error) {
		next := entry
		next.Count = 1
		if existing != nil {
			var prev domain.HistoryEntry
			if err := json.Unmarshal(existing, &prev); err == nil {
				next.Count = prev.Count + 1
			}
		}
		return json.Marshal(next)
	}

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		data, err := merge(s.memory[k])
		if err != nil {
			return err
		}
		s.memory[k] = data
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		data, err := merge(b.Get([]byte(k)))
		if err != nil {
			return err
		}
		return b.Put([]byte(k), data)
	})
}

// Recent returns entries newest first. limit <= 0 returns all.
func (s *HistoryStore) Recent(limit int) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	collect := func(_, v []byte) error {
		var e domain.HistoryEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return nil // skip corrupt entries
		}
		entries = append(entries, e)
		return nil
	}

	if s.db == nil {
		s.mu.Lock()
		for k, v := range s.memory {
			collect([]byte(k), v)
		}
		s.mu.Unlock()
	} else {
		err := s.db.View(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketHistory).ForEach(collect)
		})
		if err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].LastUsed.Equal(entries[j].LastUsed) {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].LastUsed.After(entries[j].LastUsed)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Delete removes one entry. Deleting a missing entry is not an error.
func (s *HistoryStore) Delete(role domain.Role, key string) error {
	k := entryKey(role, key)
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.memory, k)
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHistory).Delete([]byte(k))
	})
}

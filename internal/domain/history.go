package domain

import "time"

// Role is what the user chose to do with a stream key
type Role string

const (
	RoleViewer      Role = "viewer"
	RoleBroadcaster Role = "broadcaster"
)

// HistoryEntry records a stream key the user has used
type HistoryEntry struct {
	Key      string    `json:"key"`
	Role     Role      `json:"role"`
	LastUsed time.Time `json:"last_used"`
	Count    int       `json:"count"`
}

// HistoryStore persists recently used stream keys.
type HistoryStore interface {
	Record(entry HistoryEntry) error
	Recent(limit int) ([]HistoryEntry, error)
	Delete(role Role, key string) error
	Close() error
}

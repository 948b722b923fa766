package service

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/livecast/internal/domain"
)

// maxHistory bounds how many entries are loaded for listing and search
const maxHistory = 200

// HistoryService tracks stream keys the user has watched or broadcast
type HistoryService struct {
	store  domain.HistoryStore
	logger *slog.Logger
}

// NewHistoryService creates a history service over store
func NewHistoryService(store domain.HistoryStore, logger *slog.Logger) *HistoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryService{store: store, logger: logger}
}

// Record notes that key was used in role
func (s *HistoryService) Record(role domain.Role, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.store.Record(domain.HistoryEntry{Key: key, Role: role}); err != nil {
		s.logger.Warn("failed to record history", "role", role, "key", key, "error", err)
		return err
	}
	return nil
}

// Recent returns entries for role, newest first. An empty role returns all.
func (s *HistoryService) Recent(role domain.Role, limit int) ([]domain.HistoryEntry, error) {
	entries, err := s.store.Recent(maxHistory)
	if err != nil {
		return nil, err
	}
	if role != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Role == role {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Keys returns distinct recent keys across roles, newest first
func (s *HistoryService) Keys(limit int) []string {
	entries, err := s.store.Recent(maxHistory)
	if err != nil {
		s.logger.Warn("failed to load history", "error", err)
		return nil
	}
	seen := make(map[string]bool, len(entries))
	var keys []string
	for _, e := range entries {
		if seen[e.Key] {
			continue
		}
		seen[e.Key] = true
		keys = append(keys, e.Key)
		if limit > 0 && len(keys) == limit {
			break
		}
	}
	return keys
}

// Search returns distinct keys matching query, best match first
func (s *HistoryService) Search(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	keys := s.Keys(0)
	if query == "" {
		return keys
	}

	recency := make(map[string]int, len(keys))
	for i, k := range keys {
		recency[k] = i
	}

	type rankedKey struct {
		key   string
		score int
	}
	var ranked []rankedKey
	for _, match := range fuzzy.RankFindFold(query, keys) {
		ranked = append(ranked, rankedKey{key: match.Target, score: calculateMatchScore(strings.ToLower(match.Target), query)})
	}

	// Sort by score (lower is better), then by recency
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score < ranked[j].score
		}
		return recency[ranked[i].key] < recency[ranked[j].key]
	})

	results := make([]string, len(ranked))
	for i, r := range ranked {
		results[i] = r.key
	}
	return results
}

// Forget removes key from role's history
func (s *HistoryService) Forget(role domain.Role, key string) error {
	return s.store.Delete(role, key)
}

// calculateMatchScore calculates a match score for ranking
// Lower score = better match
func calculateMatchScore(key, query string) int {
	// Exact match is best
	if key == query {
		return 0
	}

	// Prefix match is very good
	if strings.HasPrefix(key, query) {
		return 10
	}

	// Contains match is good
	if strings.Contains(key, query) {
		return 50
	}

	return 100 + fuzzy.LevenshteinDistance(query, key)
}

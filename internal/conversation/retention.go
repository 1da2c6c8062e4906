package conversation

import (
	"encoding/json"
	"sort"
	"time"
)

// DefaultInactivityWindow matches the 30-day eviction of stale users.
const DefaultInactivityWindow = 30 * 24 * time.Hour

// DefaultMaxSerializedSize caps the persisted document at 10 MiB.
const DefaultMaxSerializedSize = 10 * 1024 * 1024

// Sweep evicts stale users, then oldest users until the serialized document
// fits the byte budget. Returns counts for logging. Inactivity eviction runs
// first so stale entries never count against the budget.
func (s *Store) Sweep(now time.Time) (byAge, bySize int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

// sweepLocked is Sweep without locking. Caller must hold s.mu.
func (s *Store) sweepLocked(now time.Time) (byAge, bySize int) {
	window := s.opts.InactivityWindow
	if window <= 0 {
		window = DefaultInactivityWindow
	}
	budget := s.opts.MaxSerializedSize
	if budget <= 0 {
		budget = DefaultMaxSerializedSize
	}

	for id, state := range s.users {
		if now.Sub(state.lastActive) > window {
			delete(s.users, id)
			byAge++
		}
	}

	if s.serializedSizeLocked() <= budget {
		return byAge, bySize
	}

	// Oldest last_active first.
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.users[ids[i]].lastActive.Before(s.users[ids[j]].lastActive)
	})

	for _, id := range ids {
		if s.serializedSizeLocked() <= budget {
			break
		}
		delete(s.users, id)
		bySize++
	}

	return byAge, bySize
}

// serializedSizeLocked measures the persisted form of the current map.
// Caller must hold s.mu.
func (s *Store) serializedSizeLocked() int64 {
	data, err := json.MarshalIndent(s.persistedLocked(), "", "  ")
	if err != nil {
		return 0
	}
	return int64(len(data))
}

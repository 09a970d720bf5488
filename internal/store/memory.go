package store

import (
	"sync"
	"time"

	"github.com/i474232898/skywatch/internal/weather"
)

// ErrNotFound is returned when no snapshot is available for a given key.
var ErrNotFound = weather.ErrNoSnapshot

// SnapshotHistory holds a time-ordered list of weather snapshots for a key.
type SnapshotHistory struct {
	Snapshots []weather.Snapshot
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: coordinates+units key, value: history
	data map[string]*SnapshotHistory

	// retention configuration
	maxHistory int           // max number of snapshots per key
	maxAge     time.Duration // optional max age for snapshots

	now func() time.Time
}

var _ weather.Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*SnapshotHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveSnapshot appends a new snapshot for key and enforces retention.
// Snapshots are ordered by their current-conditions timestamp.
func (s *MemoryStore) SaveSnapshot(key string, snapshot weather.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &SnapshotHistory{}
		s.data[key] = history
	}

	history.Snapshots = append(history.Snapshots, snapshot)

	// Keep the slice ordered when an older reading arrives late.
	for i := len(history.Snapshots) - 1; i > 0; i-- {
		if !history.Snapshots[i].Current.Timestamp.Before(history.Snapshots[i-1].Current.Timestamp) {
			break
		}
		history.Snapshots[i], history.Snapshots[i-1] = history.Snapshots[i-1], history.Snapshots[i]
	}

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Snapshots) > s.maxHistory {
		over := len(history.Snapshots) - s.maxHistory
		history.Snapshots = history.Snapshots[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Snapshots); i++ {
			if !history.Snapshots[i].Current.Timestamp.Before(cutoff) {
				break
			}
		}
		history.Snapshots = history.Snapshots[i:]
	}

	if len(history.Snapshots) == 0 {
		delete(s.data, key)
	}
}

// GetLatest returns the most recent snapshot for key.
func (s *MemoryStore) GetLatest(key string) (weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Snapshots) == 0 {
		return weather.Snapshot{}, ErrNotFound
	}
	return history.Snapshots[len(history.Snapshots)-1], nil
}

// GetRange returns all snapshots for key between from and to (inclusive).
func (s *MemoryStore) GetRange(key string, from, to time.Time) ([]weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Snapshots) == 0 {
		return nil, ErrNotFound
	}

	var result []weather.Snapshot
	for _, snap := range history.Snapshots {
		ts := snap.Current.Timestamp
		if !ts.Before(from) && !ts.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// Prune drops snapshots older than the retention age from every key, not
// just the ones being written to, and returns how many keys were removed.
func (s *MemoryStore) Prune() int {
	if s.maxAge <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for key, history := range s.data {
		i := 0
		for ; i < len(history.Snapshots); i++ {
			if !history.Snapshots[i].Current.Timestamp.Before(cutoff) {
				break
			}
		}
		history.Snapshots = history.Snapshots[i:]
		if len(history.Snapshots) == 0 {
			delete(s.data, key)
			removed++
		}
	}
	return removed
}

// Keys lists the keys that currently hold history.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

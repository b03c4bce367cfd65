package progress

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned by Get when no record exists for a player.
var ErrNotFound = errors.New("progress: record not found")

// Store is the persistence boundary for player progress records.
type Store interface {
	// Get returns a player's record or ErrNotFound.
	Get(userID string) (*PlayerProgress, error)
	// GetOrCreate returns the record, creating defaults on first use.
	GetOrCreate(userID string) (*PlayerProgress, error)
	// Save persists the whole record in one logical update.
	Save(p *PlayerProgress) error
	// AllKnownPlayers lists every player with a record.
	AllKnownPlayers() ([]string, error)
}

// MemoryStore keeps records in memory. Used in tests and as the
// fallback when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*PlayerProgress
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*PlayerProgress)}
}

func (s *MemoryStore) Get(userID string) (*PlayerProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(record)
}

func (s *MemoryStore) GetOrCreate(userID string) (*PlayerProgress, error) {
	record, err := s.Get(userID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	fresh := NewPlayerProgress(userID)
	if err := s.Save(fresh); err != nil {
		return nil, err
	}
	return deepCopy(fresh)
}

func (s *MemoryStore) Save(p *PlayerProgress) error {
	stored, err := deepCopy(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[p.UserID] = stored
	return nil
}

func (s *MemoryStore) AllKnownPlayers() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]string, 0, len(s.records))
	for id := range s.records {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

// deepCopy isolates callers from shared map/slice state via a JSON
// round trip, the same way records travel to and from the database.
func deepCopy(p *PlayerProgress) (*PlayerProgress, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	out := &PlayerProgress{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

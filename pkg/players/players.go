package players

import (
	"errors"
	"sync"
)

// ErrNotRegistered is returned when a user has no player record.
var ErrNotRegistered = errors.New("players: not registered")

// PlayerRecord is the player sheet owned by the registration system.
// The narrative engine reads it and pushes reward deltas back through
// Update.
type PlayerRecord struct {
	UserID     string         `json:"user_id"`
	Name       string         `json:"name"`
	Attributes map[string]int `json:"attributes"`
	Currency   map[string]int `json:"currency"`
	Level      int            `json:"level"`
	Exp        int            `json:"exp"`
	ClubID     string         `json:"club_id,omitempty"`
}

// Store is the player-sheet boundary.
type Store interface {
	Get(userID string) (*PlayerRecord, error)
	Update(userID string, fields map[string]interface{}) error
}

// Club is a student club a player may belong to.
type Club struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ClubDirectory resolves club ids to clubs, used only for dialogue
// placeholder substitution.
type ClubDirectory interface {
	Get(clubID string) (*Club, error)
}

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*PlayerRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*PlayerRecord)}
}

func (s *MemoryStore) Put(record *PlayerRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.UserID] = record
}

func (s *MemoryStore) Get(userID string) (*PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[userID]
	if !ok {
		return nil, ErrNotRegistered
	}
	out := *record
	out.Attributes = copyMap(record.Attributes)
	out.Currency = copyMap(record.Currency)
	return &out, nil
}

func (s *MemoryStore) Update(userID string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[userID]
	if !ok {
		return ErrNotRegistered
	}
	for key, value := range fields {
		switch key {
		case "exp":
			record.Exp = toInt(value)
		case "level":
			record.Level = toInt(value)
		case "currency":
			if m, ok := value.(map[string]int); ok {
				record.Currency = copyMap(m)
			}
		case "attributes":
			if m, ok := value.(map[string]int); ok {
				record.Attributes = copyMap(m)
			}
		}
	}
	return nil
}

// MemoryClubDirectory is an in-memory ClubDirectory for tests and
// local runs.
type MemoryClubDirectory struct {
	mu    sync.RWMutex
	clubs map[string]*Club
}

func NewMemoryClubDirectory() *MemoryClubDirectory {
	return &MemoryClubDirectory{clubs: make(map[string]*Club)}
}

func (d *MemoryClubDirectory) Put(club *Club) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clubs[club.ID] = club
}

func (d *MemoryClubDirectory) Get(clubID string) (*Club, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	club, ok := d.clubs[clubID]
	if !ok {
		return nil, errors.New("players: club not found")
	}
	return club, nil
}

func copyMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

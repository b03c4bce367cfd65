package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"academia/pkg/surreal"
)

// SurrealStore persists one record per player in the player_progress
// table. Records travel as whole JSON documents; Save is a single
// UPSERT, so a record is never half-written.
type SurrealStore struct {
	client *surreal.Client
}

func NewSurrealStore(client *surreal.Client) *SurrealStore {
	store := &SurrealStore{client: client}
	if err := store.Init(); err != nil {
		log.Printf("[Progress] Warning: failed to initialize schema: %v", err)
	}
	return store
}

func (s *SurrealStore) Init() error {
	query := `
		DEFINE TABLE IF NOT EXISTS player_progress SCHEMALESS;
		DEFINE FIELD IF NOT EXISTS user_id ON player_progress TYPE string;
		DEFINE INDEX IF NOT EXISTS user_idx ON player_progress FIELDS user_id UNIQUE;
	`
	_, err := s.client.Query(query, map[string]interface{}{})
	return err
}

func (s *SurrealStore) Get(userID string) (*PlayerProgress, error) {
	result, err := s.client.Query(
		`SELECT * FROM type::thing("player_progress", $user_id);`,
		map[string]interface{}{"user_id": userID},
	)
	if err != nil {
		return nil, fmt.Errorf("get progress for %s: %w", userID, err)
	}

	row := surreal.FirstRow(result)
	if row == nil {
		return nil, ErrNotFound
	}
	delete(row, "id")

	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("decode progress for %s: %w", userID, err)
	}
	record := &PlayerProgress{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("decode progress for %s: %w", userID, err)
	}
	return record, nil
}

func (s *SurrealStore) GetOrCreate(userID string) (*PlayerProgress, error) {
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
	log.Printf("[Progress] Created progress record for %s", userID)
	return fresh, nil
}

func (s *SurrealStore) Save(p *PlayerProgress) error {
	// Round-trip through JSON so the record lands as a plain document
	// rather than driver-specific types.
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress for %s: %w", p.UserID, err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("encode progress for %s: %w", p.UserID, err)
	}

	_, err = s.client.Query(
		`UPSERT type::thing("player_progress", $user_id) CONTENT $data;`,
		map[string]interface{}{"user_id": p.UserID, "data": doc},
	)
	if err != nil {
		return fmt.Errorf("save progress for %s: %w", p.UserID, err)
	}
	return nil
}

func (s *SurrealStore) AllKnownPlayers() ([]string, error) {
	result, err := s.client.Query(`SELECT user_id FROM player_progress;`, map[string]interface{}{})
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	var users []string
	for _, raw := range surreal.Rows(result) {
		row, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := row["user_id"].(string); ok && id != "" {
			users = append(users, id)
		}
	}
	return users, nil
}

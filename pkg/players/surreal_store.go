package players

import (
	"encoding/json"
	"fmt"
	"log"

	"academia/pkg/surreal"
)

// SurrealStore reads player sheets from the players table and pushes
// reward deltas back as field updates.
type SurrealStore struct {
	client *surreal.Client
}

func NewSurrealStore(client *surreal.Client) *SurrealStore {
	store := &SurrealStore{client: client}
	if err := store.Init(); err != nil {
		log.Printf("[Players] Warning: failed to initialize schema: %v", err)
	}
	return store
}

func (s *SurrealStore) Init() error {
	query := `
		DEFINE TABLE IF NOT EXISTS players SCHEMALESS;
		DEFINE FIELD IF NOT EXISTS user_id ON players TYPE string;
		DEFINE INDEX IF NOT EXISTS player_idx ON players FIELDS user_id UNIQUE;
		DEFINE TABLE IF NOT EXISTS clubs SCHEMALESS;
	`
	_, err := s.client.Query(query, map[string]interface{}{})
	return err
}

func (s *SurrealStore) Get(userID string) (*PlayerRecord, error) {
	result, err := s.client.Query(
		`SELECT * FROM type::thing("players", $user_id);`,
		map[string]interface{}{"user_id": userID},
	)
	if err != nil {
		return nil, fmt.Errorf("get player %s: %w", userID, err)
	}

	row := surreal.FirstRow(result)
	if row == nil {
		return nil, ErrNotRegistered
	}
	delete(row, "id")

	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("decode player %s: %w", userID, err)
	}
	record := &PlayerRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("decode player %s: %w", userID, err)
	}
	return record, nil
}

func (s *SurrealStore) Update(userID string, fields map[string]interface{}) error {
	_, err := s.client.Query(
		`UPDATE type::thing("players", $user_id) MERGE $fields;`,
		map[string]interface{}{"user_id": userID, "fields": fields},
	)
	if err != nil {
		return fmt.Errorf("update player %s: %w", userID, err)
	}
	return nil
}

// SurrealClubDirectory resolves clubs from the clubs table.
type SurrealClubDirectory struct {
	client *surreal.Client
}

func NewSurrealClubDirectory(client *surreal.Client) *SurrealClubDirectory {
	return &SurrealClubDirectory{client: client}
}

func (d *SurrealClubDirectory) Get(clubID string) (*Club, error) {
	result, err := d.client.Query(
		`SELECT * FROM type::thing("clubs", $club_id);`,
		map[string]interface{}{"club_id": clubID},
	)
	if err != nil {
		return nil, fmt.Errorf("get club %s: %w", clubID, err)
	}

	row := surreal.FirstRow(result)
	if row == nil {
		return nil, fmt.Errorf("players: club %s not found", clubID)
	}

	club := &Club{ID: clubID}
	if name, ok := row["name"].(string); ok {
		club.Name = name
	}
	return club, nil
}

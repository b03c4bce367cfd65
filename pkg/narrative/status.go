package narrative

import (
	"fmt"

	"academia/pkg/progress"
)

// Status is the progress snapshot shown by the story-status command.
type Status struct {
	CurrentYear       int
	CurrentChapter    int
	ChapterTitle      string
	ChallengeCursor   *progress.ChallengeCursor
	CompletedChapters int
	HierarchyTier     int
	HierarchyPoints   int
	DiscoveredSecrets []string
	Relationships     map[string]progress.Relationship
	Calendar          progress.Calendar
	RecentLog         []string
}

// GetStoryStatus returns a read-only snapshot of the player's
// progress.
func (m *Manager) GetStoryStatus(userID string) (*Status, error) {
	if _, err := m.players.Get(userID); err != nil {
		return nil, err
	}
	record, err := m.progress.GetOrCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	status := &Status{
		CurrentYear:       record.CurrentYear,
		CurrentChapter:    record.CurrentChapter,
		ChallengeCursor:   record.CurrentChallengeChapter,
		CompletedChapters: len(record.CompletedChapters),
		HierarchyTier:     record.HierarchyTier,
		HierarchyPoints:   record.HierarchyPoints,
		DiscoveredSecrets: record.DiscoveredSecrets,
		Relationships:     record.Relationships,
		Calendar:          record.Calendar,
	}
	if chapter := m.graph.Chapter(record.CurrentYear, record.CurrentChapter); chapter != nil {
		status.ChapterTitle = chapter.Title
	}
	if n := len(record.ProgressLog); n > 0 {
		start := n - 5
		if start < 0 {
			start = 0
		}
		status.RecentLog = record.ProgressLog[start:]
	}
	return status, nil
}

// AdvanceBimester moves the academic calendar one step and persists
// it.
func (m *Manager) AdvanceBimester(userID string) (progress.Calendar, error) {
	if _, err := m.players.Get(userID); err != nil {
		return progress.Calendar{}, err
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	record, err := m.progress.GetOrCreate(userID)
	if err != nil {
		return progress.Calendar{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	calendar := record.AdvanceBimester()
	if calendar.Ferias {
		record.Log("Férias após o %dº bimestre do ano %d", calendar.BimestreCorrente, calendar.AnoCorrente)
	} else {
		record.Log("Início do %dº bimestre do ano %d", calendar.BimestreCorrente, calendar.AnoCorrente)
	}
	if err := m.progress.Save(record); err != nil {
		return progress.Calendar{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return calendar, nil
}

// GetOrSetRelationship reads a relationship, or applies a delta when
// one is given. An empty character name returns the whole map.
func (m *Manager) GetOrSetRelationship(userID, character string, delta *int) (map[string]progress.Relationship, error) {
	if _, err := m.players.Get(userID); err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	record, err := m.progress.GetOrCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if character == "" {
		return record.Relationships, nil
	}

	if delta != nil {
		record.AdjustAffinity(character, *delta)
		if err := m.progress.Save(record); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	rel, ok := record.Relationships[character]
	if !ok && delta == nil {
		return map[string]progress.Relationship{}, nil
	}
	return map[string]progress.Relationship{character: rel}, nil
}

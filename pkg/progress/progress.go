package progress

import (
	"fmt"
	"time"

	"academia/pkg/consequence"
	"academia/pkg/progression"
)

// Relationship tracks an NPC bond. Status is always derived from
// Affinity, never mutated on its own.
type Relationship struct {
	Affinity int                `json:"affinity"`
	Status   consequence.Status `json:"status"`
}

// Calendar paces the academic year independently of chapter progress.
type Calendar struct {
	AnoCorrente      int  `json:"ano_corrente"`
	BimestreCorrente int  `json:"bimestre_corrente"`
	Ferias           bool `json:"ferias"`
}

// ChallengeCursor points into the challenge ladder. Nil means the
// player has not started it.
type ChallengeCursor struct {
	Tier    int `json:"tier"`
	Chapter int `json:"chapter"`
}

// PowerBoost is a temporary attribute bonus with an explicit expiry.
type PowerBoost struct {
	Amount    int       `json:"amount"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PlayerProgress is the persisted per-player progress record. Created
// with defaults on first narrative interaction, mutated only through
// the narrative/event operations, never deleted.
type PlayerProgress struct {
	UserID                  string                  `json:"user_id"`
	CurrentYear             int                     `json:"current_year"`
	CurrentChapter          int                     `json:"current_chapter"`
	CurrentChallengeChapter *ChallengeCursor        `json:"current_challenge_chapter,omitempty"`
	CompletedChapters       map[string]bool         `json:"completed_chapters"`
	CompletedChallenges     map[string]bool         `json:"completed_challenge_chapters"`
	HierarchyTier           int                     `json:"hierarchy_tier"`
	HierarchyPoints         int                     `json:"hierarchy_points"`
	DiscoveredSecrets       []string                `json:"discovered_secrets"`
	SpecialItems            []consequence.Item      `json:"special_items"`
	Relationships           map[string]Relationship `json:"relationships"`
	StoryChoices            map[string]bool         `json:"story_choices"`
	ClimacticEvents         map[string]time.Time    `json:"climactic_events"`
	Calendar                Calendar                `json:"calendar"`
	ProgressLog             []string                `json:"progress_log"`
	ActiveBoost             *PowerBoost             `json:"active_boost,omitempty"`
}

// NewPlayerProgress returns the default record for a player's first
// narrative interaction.
func NewPlayerProgress(userID string) *PlayerProgress {
	return &PlayerProgress{
		UserID:              userID,
		CurrentYear:         1,
		CurrentChapter:      1,
		CompletedChapters:   make(map[string]bool),
		CompletedChallenges: make(map[string]bool),
		Relationships:       make(map[string]Relationship),
		StoryChoices:        make(map[string]bool),
		ClimacticEvents:     make(map[string]time.Time),
		Calendar:            Calendar{AnoCorrente: 1, BimestreCorrente: 1},
	}
}

// ChapterKey builds the "year-chapter" set key.
func ChapterKey(year, chapter int) string {
	return fmt.Sprintf("%d-%d", year, chapter)
}

// ChallengeChapterKey builds the "tier-chapter" set key.
func ChallengeChapterKey(tier, chapter int) string {
	return fmt.Sprintf("%d-%d", tier, chapter)
}

// ChoiceKey builds the "year-chapter-choiceText" story-choice key.
func ChoiceKey(year, chapter int, text string) string {
	return fmt.Sprintf("%d-%d-%s", year, chapter, text)
}

// MarkChoice records a story choice as made. Keys are monotonic: once
// true they never reset.
func (p *PlayerProgress) MarkChoice(year, chapter int, text string) {
	if p.StoryChoices == nil {
		p.StoryChoices = make(map[string]bool)
	}
	p.StoryChoices[ChoiceKey(year, chapter, text)] = true
}

// MarkChapterCompleted records a story chapter as finished.
func (p *PlayerProgress) MarkChapterCompleted(year, chapter int) {
	if p.CompletedChapters == nil {
		p.CompletedChapters = make(map[string]bool)
	}
	p.CompletedChapters[ChapterKey(year, chapter)] = true
}

// MarkChallengeCompleted records a challenge chapter as finished.
func (p *PlayerProgress) MarkChallengeCompleted(tier, chapter int) {
	if p.CompletedChallenges == nil {
		p.CompletedChallenges = make(map[string]bool)
	}
	p.CompletedChallenges[ChallengeChapterKey(tier, chapter)] = true
}

// RecordEventCompletion stamps a climactic event with its completion
// time, which anchors the next cooldown window.
func (p *PlayerProgress) RecordEventCompletion(name string, at time.Time) {
	if p.ClimacticEvents == nil {
		p.ClimacticEvents = make(map[string]time.Time)
	}
	p.ClimacticEvents[name] = at
}

// ChoiceMade reports whether a choice was already made.
func (p *PlayerProgress) ChoiceMade(year, chapter int, text string) bool {
	return p.StoryChoices[ChoiceKey(year, chapter, text)]
}

// AdjustAffinity applies a delta to a relationship and recomputes its
// status from the affinity thresholds.
func (p *PlayerProgress) AdjustAffinity(character string, delta int) Relationship {
	if p.Relationships == nil {
		p.Relationships = make(map[string]Relationship)
	}
	rel := p.Relationships[character]
	rel.Affinity += delta
	rel.Status = consequence.StatusFor(rel.Affinity)
	p.Relationships[character] = rel
	return rel
}

// DiscoverSecret appends a secret name if not already present and
// reports whether it was new. Entries are unique and immutable once
// added.
func (p *PlayerProgress) DiscoverSecret(name string) bool {
	for _, existing := range p.DiscoveredSecrets {
		if existing == name {
			return false
		}
	}
	p.DiscoveredSecrets = append(p.DiscoveredSecrets, name)
	return true
}

// AddHierarchyBonus raises the tier directly, capped at the maximum.
// Used by secret rewards; chapter placement overwrites the tier
// instead.
func (p *PlayerProgress) AddHierarchyBonus(bonus int) {
	p.HierarchyTier += bonus
	if p.HierarchyTier > progression.MaxHierarchyTier {
		p.HierarchyTier = progression.MaxHierarchyTier
	}
}

// AddHierarchyPoints accumulates points, converting every 10 into one
// tier, capped at the maximum. Leftover points stay in the 0-9 range.
func (p *PlayerProgress) AddHierarchyPoints(points int) {
	p.HierarchyPoints += points
	for p.HierarchyPoints >= 10 {
		p.HierarchyPoints -= 10
		if p.HierarchyTier < progression.MaxHierarchyTier {
			p.HierarchyTier++
		}
	}
}

// AddItem merges an item into the player's special items.
func (p *PlayerProgress) AddItem(item consequence.Item) {
	p.SpecialItems = consequence.MergeItem(p.SpecialItems, item)
}

// Log appends a human-readable milestone to the append-only progress
// log.
func (p *PlayerProgress) Log(format string, args ...interface{}) {
	p.ProgressLog = append(p.ProgressLog, fmt.Sprintf(format, args...))
}

// AdvanceBimester moves the academic calendar one step: each bimester
// is followed by a vacation period, and vacation after the fourth
// bimester rolls the calendar year.
func (p *PlayerProgress) AdvanceBimester() Calendar {
	if p.Calendar.AnoCorrente == 0 {
		p.Calendar = Calendar{AnoCorrente: 1, BimestreCorrente: 1}
		return p.Calendar
	}
	if p.Calendar.Ferias {
		p.Calendar.Ferias = false
		if p.Calendar.BimestreCorrente >= 4 {
			p.Calendar.BimestreCorrente = 1
			p.Calendar.AnoCorrente++
		} else {
			p.Calendar.BimestreCorrente++
		}
		return p.Calendar
	}
	p.Calendar.Ferias = true
	return p.Calendar
}

// BoostedAttributes returns the player's attributes with any unexpired
// power boost applied. The stored attributes are never mutated.
func (p *PlayerProgress) BoostedAttributes(attributes map[string]int, now time.Time) map[string]int {
	if p.ActiveBoost == nil || !now.Before(p.ActiveBoost.ExpiresAt) {
		return attributes
	}
	out := make(map[string]int, len(attributes))
	for k, v := range attributes {
		out[k] = v
	}
	out["power"] += p.ActiveBoost.Amount
	return out
}

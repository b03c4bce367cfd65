package narrative

import (
	"sync"
	"time"

	"academia/pkg/content"
)

// State is the session's position in the dialogue/choice cycle.
type State int

const (
	StateAwaitingDialogue State = iota
	StateAwaitingChoice
	StateChoiceResolved
	StateChapterComplete
)

// Session is the ephemeral per-player state machine. At most one
// exists per player; it is destroyed on chapter completion or evicted
// after sitting idle past the TTL. Nothing in here is persisted.
// mu serializes every step against the session: concurrent advances
// for the same player queue up instead of interleaving.
type Session struct {
	mu sync.Mutex

	UserID       string
	Chapter      *content.Chapter
	Year         int
	ChapterNum   int
	IsChallenge  bool
	Tier         int
	Index        int
	State        State
	ChoicePassed bool
	LastActivity time.Time
}

func (s *Session) touch(now time.Time) {
	s.LastActivity = now
}

// choiceKeyCoords returns the coordinates story choices are keyed by.
// Challenge chapters key by tier in place of year.
func (s *Session) choiceKeyCoords() (int, int) {
	if s.IsChallenge {
		return s.Tier, s.ChapterNum
	}
	return s.Year, s.ChapterNum
}

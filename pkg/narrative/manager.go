package narrative

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"academia/pkg/content"
	"academia/pkg/players"
	"academia/pkg/progress"
	"academia/pkg/progression"
)

// markChoiceBeforeCheck preserves a long-standing quirk: a choice is
// recorded as "already made" the instant it is picked, before its
// attribute check resolves. A failed check followed by picking the
// same choice again therefore replays it and bypasses the check.
const markChoiceBeforeCheck = true

// Manager owns every live narrative session and drives the
// dialogue -> choice -> consequence -> completion cycle against the
// content graph and the stores.
type Manager struct {
	graph    *content.Graph
	progress progress.Store
	players  players.Store
	clubs    players.ClubDirectory
	locks    *progress.Locker

	pacing     PacingConfig
	sessionTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	// Injectable for tests.
	sleep func(time.Duration)
	now   func() time.Time
}

func NewManager(graph *content.Graph, progressStore progress.Store, playerStore players.Store, clubs players.ClubDirectory, locks *progress.Locker, pacing PacingConfig, sessionTTL time.Duration) *Manager {
	return &Manager{
		graph:      graph,
		progress:   progressStore,
		players:    playerStore,
		clubs:      clubs,
		locks:      locks,
		pacing:     pacing,
		sessionTTL: sessionTTL,
		sessions:   make(map[string]*Session),
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

// StartEviction launches the TTL sweep that destroys abandoned
// sessions. A destroyed session leaves the progress record at its last
// fully-persisted state.
func (m *Manager) StartEviction(sweepInterval time.Duration) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			m.evictIdleSessions()
		}
	}()
}

func (m *Manager) evictIdleSessions() {
	cutoff := m.now().Add(-m.sessionTTL)

	m.mu.Lock()
	candidates := make(map[string]*Session, len(m.sessions))
	for userID, session := range m.sessions {
		candidates[userID] = session
	}
	m.mu.Unlock()

	// LastActivity is read under the session lock, never while
	// holding the manager lock.
	for userID, session := range candidates {
		session.mu.Lock()
		idle := session.LastActivity.Before(cutoff)
		session.mu.Unlock()
		if !idle {
			continue
		}

		m.mu.Lock()
		if m.sessions[userID] == session {
			delete(m.sessions, userID)
			log.Printf("[Narrative] Evicted idle session for %s (chapter %q)", userID, session.Chapter.Title)
		}
		m.mu.Unlock()
	}
}

// StartOrResumeStory opens a session at the player's current story
// chapter.
func (m *Manager) StartOrResumeStory(userID string) (*Session, error) {
	if _, err := m.players.Get(userID); err != nil {
		return nil, err
	}
	record, err := m.progress.GetOrCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	chapter := m.graph.Chapter(record.CurrentYear, record.CurrentChapter)
	if chapter == nil {
		return nil, ErrChapterNotFound
	}

	return m.createSession(&Session{
		UserID:     userID,
		Chapter:    chapter,
		Year:       record.CurrentYear,
		ChapterNum: record.CurrentChapter,
	})
}

// StartOrResumeChallenge opens a session on the challenge ladder at
// the player's strength tier.
func (m *Manager) StartOrResumeChallenge(userID string) (*Session, error) {
	player, err := m.players.Get(userID)
	if err != nil {
		return nil, err
	}
	record, err := m.progress.GetOrCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	cursor := record.CurrentChallengeChapter
	if cursor == nil {
		cursor = &progress.ChallengeCursor{
			Tier:    progression.StrengthTier(player.Attributes["power"]),
			Chapter: 1,
		}
		record.CurrentChallengeChapter = cursor
		if err := m.progress.Save(record); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	chapter := m.graph.ChallengeChapter(cursor.Tier, cursor.Chapter)
	if chapter == nil {
		return nil, ErrChapterNotFound
	}

	return m.createSession(&Session{
		UserID:      userID,
		Chapter:     chapter,
		ChapterNum:  cursor.Chapter,
		IsChallenge: true,
		Tier:        cursor.Tier,
	})
}

// createSession is the atomic insert-if-absent enforcing one session
// per player.
func (m *Manager) createSession(session *Session) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[session.UserID]; exists {
		return nil, ErrSessionActive
	}
	session.State = StateAwaitingDialogue
	session.touch(m.now())
	m.sessions[session.UserID] = session
	return session, nil
}

func (m *Manager) session(userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNoSession
	}
	return session, nil
}

// HasSession reports whether the player has a live scene to resume.
func (m *Manager) HasSession(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}

func (m *Manager) destroySession(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// AdvanceDialogue emits the next dialogue line. The call that emits
// the final line also performs the end-of-dialogue transition, so a
// chapter reaches its choices or its completion in exactly
// len(dialogues) calls.
func (m *Manager) AdvanceDialogue(userID string) (*Step, error) {
	session, err := m.session(userID)
	if err != nil {
		return nil, err
	}

	// Steps for one player are strictly sequential: a second call
	// during the pacing sleep waits here instead of interleaving.
	session.mu.Lock()
	defer session.mu.Unlock()

	switch session.State {
	case StateAwaitingChoice:
		// Re-present the pending choices.
		return &Step{State: StateAwaitingChoice, Choices: choiceViews(session.Chapter)}, nil
	case StateChapterComplete:
		return nil, ErrNoSession
	}

	step := &Step{State: StateAwaitingDialogue}
	chapter := session.Chapter

	if session.Index < len(chapter.Dialogues) {
		line, err := m.renderLine(userID, chapter.Dialogues[session.Index])
		if err != nil {
			return nil, err
		}
		m.sleep(PacingDuration(len(line.Text), m.pacing))
		step.Dialogue = line
		session.Index++
		session.touch(m.now())
	}

	if session.Index < len(chapter.Dialogues) {
		return step, nil
	}

	// End of dialogue: choices, a replay jump, or completion. Once
	// the choice phase is behind the session (resolved or replayed),
	// reaching the end again means completion.
	if len(chapter.Choices) > 0 && !session.ChoicePassed {
		record, err := m.progress.GetOrCreate(userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		keyYear, keyChapter := session.choiceKeyCoords()
		if made := replayedChoice(chapter, record, keyYear, keyChapter); made != nil {
			// Already decided on a previous run: skip presentation,
			// jump straight past the choice, no consequences
			// re-applied.
			session.Index = made.NextDialogue
			session.ChoicePassed = true
			session.touch(m.now())
			if session.Index < len(chapter.Dialogues) {
				return step, nil
			}
		} else {
			session.State = StateAwaitingChoice
			session.touch(m.now())
			step.State = StateAwaitingChoice
			step.Choices = choiceViews(chapter)
			return step, nil
		}
	}

	completion, err := m.completeChapter(session)
	if err != nil {
		return nil, err
	}
	step.State = StateChapterComplete
	step.Completion = completion
	return step, nil
}

// replayedChoice returns the first current choice whose literal text
// is already recorded as made for these coordinates, or nil.
func replayedChoice(chapter *content.Chapter, record *progress.PlayerProgress, year, chapterNum int) *content.Choice {
	for i := range chapter.Choices {
		if record.ChoiceMade(year, chapterNum, chapter.Choices[i].Text) {
			return &chapter.Choices[i]
		}
	}
	return nil
}

// ResolveChoice resolves the player's pick. The story-choice key is
// recorded before the attribute check runs (see
// markChoiceBeforeCheck); a failed check re-presents the same choices
// with no further state change.
func (m *Manager) ResolveChoice(userID string, choiceIndex int) (*Step, error) {
	session, err := m.session(userID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.State != StateAwaitingChoice {
		return nil, ErrNoSession
	}
	chapter := session.Chapter
	if choiceIndex < 0 || choiceIndex >= len(chapter.Choices) {
		return nil, fmt.Errorf("narrative: choice index %d out of range", choiceIndex)
	}
	choice := &chapter.Choices[choiceIndex]

	// The player lock is released before any chapter completion,
	// which takes it again itself.
	resolved, step, err := m.applyChoice(session, choice)
	if err != nil || !resolved {
		return step, err
	}

	session.Index = choice.NextDialogue
	session.State = StateAwaitingDialogue
	session.ChoicePassed = true
	session.touch(m.now())

	step = &Step{State: StateChoiceResolved, ChoiceTaken: choice.Text}
	if session.Index >= len(chapter.Dialogues) {
		completion, err := m.completeChapter(session)
		if err != nil {
			return nil, err
		}
		step.State = StateChapterComplete
		step.Completion = completion
	}
	return step, nil
}

// applyChoice records the choice and applies its consequences under
// the player's lock. resolved is false when a failed attribute check
// re-presents the choices.
func (m *Manager) applyChoice(session *Session, choice *content.Choice) (resolved bool, step *Step, err error) {
	userID := session.UserID
	unlock := m.locks.Lock(userID)
	defer unlock()

	record, err := m.progress.GetOrCreate(userID)
	if err != nil {
		return false, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	keyYear, keyChapter := session.choiceKeyCoords()
	if markChoiceBeforeCheck {
		record.MarkChoice(keyYear, keyChapter, choice.Text)
		if err := m.progress.Save(record); err != nil {
			return false, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	if choice.Check != nil {
		player, err := m.players.Get(userID)
		if err != nil {
			return false, nil, err
		}
		attrs := record.BoostedAttributes(player.Attributes, m.now())
		if attrs[choice.Check.Attribute] < choice.Check.Threshold {
			// A failed check is a narrative branch, not an error.
			session.touch(m.now())
			return false, &Step{
				State:       StateAwaitingChoice,
				Choices:     choiceViews(session.Chapter),
				CheckFailed: true,
			}, nil
		}
	}

	for character, delta := range choice.AffinityChanges {
		rel := record.AdjustAffinity(character, delta)
		log.Printf("[Narrative] %s: affinity %s %+d -> %d (%s)", userID, character, delta, rel.Affinity, rel.Status)
	}
	if err := m.progress.Save(record); err != nil {
		return false, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return true, nil, nil
}

// completeChapter applies completion rewards, hierarchy placement,
// secret discovery and level recomputation, persists everything, and
// advances the progress cursor. The session is destroyed on success;
// on persistence failure it stays put and nothing advances.
func (m *Manager) completeChapter(session *Session) (*Completion, error) {
	userID := session.UserID
	chapter := session.Chapter

	// A session evicted or already completed must never grant
	// rewards again.
	if current, err := m.session(userID); err != nil || current != session {
		return nil, ErrNoSession
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	player, err := m.players.Get(userID)
	if err != nil {
		return nil, err
	}
	record, err := m.progress.GetOrCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	completion := &Completion{
		ChapterTitle: chapter.Title,
		ExpGained:    chapter.CompletionExp,
		TusdGained:   chapter.CompletionTusd,
	}

	attrs := record.BoostedAttributes(player.Attributes, m.now())

	if chapter.HierarchyPlacement {
		record.HierarchyTier = progression.Place(attrs)
		completion.Placed = true
		record.Log("Colocado na hierarquia: tier %d", record.HierarchyTier)
	}

	// At most one secret discovery per completion: the first
	// newly-qualifying one in declared order.
	if secret := progression.FirstNewlyUnlocked(m.graph.Secrets(), attrs, player.ClubID, record.DiscoveredSecrets); secret != nil {
		record.DiscoverSecret(secret.Name)
		completion.ExpGained += secret.RewardExp
		completion.TusdGained += secret.RewardTusd
		if secret.HierarchyBonus > 0 {
			record.AddHierarchyBonus(secret.HierarchyBonus)
		}
		completion.Secret = secret
		completion.SecretAnnounced = chapter.SecretDiscovery
		record.Log("Segredo descoberto: %s", secret.Name)
	}

	newExp := player.Exp + completion.ExpGained
	level, crossed := progression.CrossedLevel(player.Exp, newExp)
	completion.Level = level
	completion.LeveledUp = crossed

	currency := map[string]int{}
	for k, v := range player.Currency {
		currency[k] = v
	}
	currency["tusd"] += completion.TusdGained

	if session.IsChallenge {
		record.MarkChallengeCompleted(session.Tier, session.ChapterNum)
		advanceChallengeCursor(record, chapter, session)
	} else {
		record.MarkChapterCompleted(session.Year, session.ChapterNum)
		advanceStoryCursor(record, chapter)
	}
	record.Log("Capítulo concluído: %s (+%d exp, +%d TUSD)", chapter.Title, completion.ExpGained, completion.TusdGained)
	completion.HierarchyTier = record.HierarchyTier

	if err := m.players.Update(userID, map[string]interface{}{
		"exp":      newExp,
		"level":    level,
		"currency": currency,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := m.progress.Save(record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	session.State = StateChapterComplete
	m.destroySession(userID)
	log.Printf("[Narrative] %s completed %q (+%d exp, +%d tusd, level %d)", userID, chapter.Title, completion.ExpGained, completion.TusdGained, level)
	return completion, nil
}

func advanceStoryCursor(record *progress.PlayerProgress, chapter *content.Chapter) {
	if chapter.NextYear != nil {
		record.CurrentYear = *chapter.NextYear
	}
	if chapter.NextChapter != nil {
		record.CurrentChapter = *chapter.NextChapter
		return
	}
	// No pointer: roll into a new year.
	record.CurrentYear++
	record.CurrentChapter = 1
}

func advanceChallengeCursor(record *progress.PlayerProgress, chapter *content.Chapter, session *Session) {
	cursor := record.CurrentChallengeChapter
	if cursor == nil {
		cursor = &progress.ChallengeCursor{Tier: session.Tier}
		record.CurrentChallengeChapter = cursor
	}
	if chapter.NextChapter != nil {
		cursor.Chapter = *chapter.NextChapter
		return
	}
	// End of the tier's ladder: roll into the next tier.
	cursor.Tier++
	cursor.Chapter = 1
}

// renderLine substitutes the placeholder tokens in a dialogue line.
func (m *Manager) renderLine(userID string, dialogue content.Dialogue) (*DialogueView, error) {
	text := dialogue.Text
	if strings.Contains(text, "{player_name}") || strings.Contains(text, "{club_name}") {
		player, err := m.players.Get(userID)
		if err != nil {
			return nil, err
		}
		name := player.Name
		if name == "" {
			name = "estudante"
		}
		text = strings.ReplaceAll(text, "{player_name}", name)

		if strings.Contains(text, "{club_name}") {
			clubName := "sem clube"
			if player.ClubID != "" && m.clubs != nil {
				if club, err := m.clubs.Get(player.ClubID); err == nil {
					clubName = club.Name
				}
			}
			text = strings.ReplaceAll(text, "{club_name}", clubName)
		}
	}
	return &DialogueView{Speaker: dialogue.Speaker, Text: text}, nil
}

func choiceViews(chapter *content.Chapter) []ChoiceView {
	views := make([]ChoiceView, len(chapter.Choices))
	for i, choice := range chapter.Choices {
		views[i] = ChoiceView{Index: i, Text: choice.Text}
		if choice.Check != nil {
			views[i].Check = fmt.Sprintf("%s ≥ %d", choice.Check.Attribute, choice.Check.Threshold)
		}
	}
	return views
}

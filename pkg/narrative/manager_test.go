package narrative

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"academia/pkg/content"
	"academia/pkg/players"
	"academia/pkg/progress"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storyFixture = `[
	{
		"year": 1, "chapter": 1, "title": "Chegada",
		"dialogues": [
			{"speaker": "Narrador", "text": "Bem-vindo, {player_name}."},
			{"speaker": "Narrador", "text": "O clube {club_name} te observa."},
			{"speaker": "Narrador", "text": "A aula começa."}
		],
		"completion_exp": 100, "completion_tusd": 200,
		"next_chapter": 2
	},
	{
		"year": 1, "chapter": 2, "title": "A Prova",
		"dialogues": [
			{"speaker": "Professor", "text": "Escolha."},
			{"speaker": "Professor", "text": "Muito bem."}
		],
		"choices": [
			{"text": "Resolver o enigma",
			 "attribute_check": {"attribute": "intellect", "threshold": 12},
			 "affinity_changes": {"Professor": 10},
			 "next_dialogue": 1},
			{"text": "Recuar em silêncio", "next_dialogue": 1}
		],
		"completion_exp": 100, "completion_tusd": 200,
		"next_chapter": 3
	},
	{
		"year": 1, "chapter": 3, "title": "Cerimônia",
		"dialogues": [
			{"speaker": "Diretora", "text": "Seu lugar será decidido."}
		],
		"completion_exp": 150, "completion_tusd": 150,
		"hierarchy_placement": true
	}
]`

const challengeFixture = `[
	{
		"tier": 2, "chapter": 1, "title": "Salão de Treino",
		"dialogues": [{"speaker": "Capitã", "text": "Lute."}],
		"completion_exp": 120, "completion_tusd": 80,
		"next_chapter": 2
	}
]`

const secretsFixture = `[
	{"name": "Biblioteca Proibida", "requirements": {"intellect": 12},
	 "reward_exp": 200, "reward_tusd": 100, "hierarchy_bonus": 1}
]`

type fixture struct {
	manager       *Manager
	progressStore *progress.MemoryStore
	playerStore   *players.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	graph, err := content.Load(content.Sources{
		Story:      []byte(storyFixture),
		Challenges: []byte(challengeFixture),
		Secrets:    []byte(secretsFixture),
	})
	require.NoError(t, err)

	progressStore := progress.NewMemoryStore()
	playerStore := players.NewMemoryStore()
	clubs := players.NewMemoryClubDirectory()
	clubs.Put(&players.Club{ID: "alquimia", Name: "Clube de Alquimia"})

	m := NewManager(graph, progressStore, playerStore, clubs, progress.NewLocker(), DefaultPacing, 15*time.Minute)
	m.sleep = func(time.Duration) {}

	return &fixture{manager: m, progressStore: progressStore, playerStore: playerStore}
}

func (f *fixture) seedPlayer(t *testing.T, userID string, intellect int) {
	t.Helper()
	f.playerStore.Put(&players.PlayerRecord{
		UserID:     userID,
		Name:       "Aiko",
		Attributes: map[string]int{"power": 10, "intellect": intellect, "dexterity": 10, "charisma": 10},
		Currency:   map[string]int{"tusd": 50},
		Level:      1,
		Exp:        950,
		ClubID:     "alquimia",
	})
}

func TestStartOrResumeStory_Errors(t *testing.T) {
	f := newFixture(t)

	// Not registered at all.
	_, err := f.manager.StartOrResumeStory("ghost")
	assert.ErrorIs(t, err, players.ErrNotRegistered)

	f.seedPlayer(t, "user1", 10)
	_, err = f.manager.StartOrResumeStory("user1")
	require.NoError(t, err)

	// Second session for the same player is rejected.
	_, err = f.manager.StartOrResumeStory("user1")
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestStartOrResumeStory_ChapterNotFound(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 10)

	record, err := f.progressStore.GetOrCreate("user1")
	require.NoError(t, err)
	record.CurrentYear = 7
	require.NoError(t, f.progressStore.Save(record))

	_, err = f.manager.StartOrResumeStory("user1")
	assert.ErrorIs(t, err, ErrChapterNotFound)
}

func TestAdvanceDialogue_ExactCallCount(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 10)

	_, err := f.manager.StartOrResumeStory("user1")
	require.NoError(t, err)

	// Chapter 1 has three dialogues and no choices: exactly three
	// calls reach completion.
	for i := 0; i < 2; i++ {
		step, err := f.manager.AdvanceDialogue("user1")
		require.NoError(t, err)
		assert.Equal(t, StateAwaitingDialogue, step.State)
		require.NotNil(t, step.Dialogue)
	}
	step, err := f.manager.AdvanceDialogue("user1")
	require.NoError(t, err)
	assert.Equal(t, StateChapterComplete, step.State)
	require.NotNil(t, step.Completion)

	// Session destroyed on completion.
	_, err = f.manager.AdvanceDialogue("user1")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestAdvanceDialogue_PlaceholderSubstitution(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 10)

	_, err := f.manager.StartOrResumeStory("user1")
	require.NoError(t, err)

	step, err := f.manager.AdvanceDialogue("user1")
	require.NoError(t, err)
	assert.Equal(t, "Bem-vindo, Aiko.", step.Dialogue.Text)

	step, err = f.manager.AdvanceDialogue("user1")
	require.NoError(t, err)
	assert.Equal(t, "O clube Clube de Alquimia te observa.", step.Dialogue.Text)
}

func TestCompleteChapter_RewardsAndLevelCrossing(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 10) // exp 950

	_, err := f.manager.StartOrResumeStory("user1")
	require.NoError(t, err)

	var completion *Completion
	for completion == nil {
		step, err := f.manager.AdvanceDialogue("user1")
		require.NoError(t, err)
		completion = step.Completion
	}

	assert.Equal(t, 100, completion.ExpGained)
	assert.Equal(t, 200, completion.TusdGained)
	assert.Equal(t, 2, completion.Level)
	assert.True(t, completion.LeveledUp, "950 + 100 exp crosses level 2")

	player, err := f.playerStore.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, 1050, player.Exp)
	assert.Equal(t, 2, player.Level)
	assert.Equal(t, 250, player.Currency["tusd"])

	record, err := f.progressStore.Get("user1")
	require.NoError(t, err)
	assert.True(t, record.CompletedChapters["1-1"])
	assert.Equal(t, 2, record.CurrentChapter)
}

func advanceToChoices(t *testing.T, f *fixture, userID string) *Step {
	t.Helper()
	for {
		step, err := f.manager.AdvanceDialogue(userID)
		require.NoError(t, err)
		if step.State == StateAwaitingChoice {
			return step
		}
		require.NotEqual(t, StateChapterComplete, step.State, "reached completion before choices")
	}
}

func startChapterTwo(t *testing.T, f *fixture, userID string) {
	t.Helper()
	record, err := f.progressStore.GetOrCreate(userID)
	require.NoError(t, err)
	record.CurrentYear = 1
	record.CurrentChapter = 2
	require.NoError(t, f.progressStore.Save(record))
	_, err = f.manager.StartOrResumeStory(userID)
	require.NoError(t, err)
}

func TestResolveChoice_FailedCheckRepresents(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 10) // below the threshold of 12
	startChapterTwo(t, f, "user1")

	step := advanceToChoices(t, f, "user1")
	require.Len(t, step.Choices, 2)

	result, err := f.manager.ResolveChoice("user1", 0)
	require.NoError(t, err)
	assert.True(t, result.CheckFailed)
	assert.Equal(t, StateAwaitingChoice, result.State)
	require.Len(t, result.Choices, 2, "choices re-presented")

	// The "made" flag is recorded even though the check failed, and
	// no affinity was applied.
	record, err := f.progressStore.Get("user1")
	require.NoError(t, err)
	assert.True(t, record.ChoiceMade(1, 2, "Resolver o enigma"))
	assert.Zero(t, record.Relationships["Professor"].Affinity)
}

func TestResolveChoice_RetryBypassesCheck(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 10)
	startChapterTwo(t, f, "user1")

	advanceToChoices(t, f, "user1")
	result, err := f.manager.ResolveChoice("user1", 0)
	require.NoError(t, err)
	require.True(t, result.CheckFailed)

	// The same choice text is now marked made: the next advance
	// replays it, skipping presentation and the check entirely.
	f.manager.destroySession("user1")
	_, err = f.manager.StartOrResumeStory("user1")
	require.NoError(t, err)

	sawChoices := false
	for {
		step, err := f.manager.AdvanceDialogue("user1")
		require.NoError(t, err)
		if step.State == StateAwaitingChoice {
			sawChoices = true
			break
		}
		if step.State == StateChapterComplete {
			break
		}
	}
	assert.False(t, sawChoices, "replayed choice must bypass presentation")

	// The bypass applies no consequences.
	record, err := f.progressStore.Get("user1")
	require.NoError(t, err)
	assert.Zero(t, record.Relationships["Professor"].Affinity)
}

func TestResolveChoice_SuccessAppliesAffinityOnce(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 12) // meets the threshold
	startChapterTwo(t, f, "user1")

	advanceToChoices(t, f, "user1")
	result, err := f.manager.ResolveChoice("user1", 0)
	require.NoError(t, err)
	assert.False(t, result.CheckFailed)
	assert.Equal(t, "Resolver o enigma", result.ChoiceTaken)

	record, err := f.progressStore.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, 10, record.Relationships["Professor"].Affinity)

	// Finish the chapter, then run it again: the replay never
	// re-applies the affinity delta.
	for {
		step, err := f.manager.AdvanceDialogue("user1")
		require.NoError(t, err)
		if step.State == StateChapterComplete {
			break
		}
	}

	startChapterTwo(t, f, "user1")
	for {
		step, err := f.manager.AdvanceDialogue("user1")
		require.NoError(t, err)
		require.NotEqual(t, StateAwaitingChoice, step.State)
		if step.State == StateChapterComplete {
			break
		}
	}

	record, err = f.progressStore.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, 10, record.Relationships["Professor"].Affinity, "affinity applied exactly once")
}

func TestCompleteChapter_HierarchyPlacementAndSecret(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 12)

	record, err := f.progressStore.GetOrCreate("user1")
	require.NoError(t, err)
	record.CurrentChapter = 3
	require.NoError(t, f.progressStore.Save(record))

	_, err = f.manager.StartOrResumeStory("user1")
	require.NoError(t, err)
	step, err := f.manager.AdvanceDialogue("user1")
	require.NoError(t, err)
	require.NotNil(t, step.Completion)

	// Placement: (10*2 + 12 + 10 + 10) / 5 = 10 -> tier 2, then the
	// secret's hierarchy bonus raises it to 3.
	require.NotNil(t, step.Completion.Secret)
	assert.Equal(t, "Biblioteca Proibida", step.Completion.Secret.Name)
	assert.True(t, step.Completion.Placed)
	assert.Equal(t, 3, step.Completion.HierarchyTier)
	assert.Equal(t, 150+200, step.Completion.ExpGained, "chapter exp plus secret exp")

	record, err = f.progressStore.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Biblioteca Proibida"}, record.DiscoveredSecrets)

	// A second completion of any chapter does not re-grant it.
	record.CurrentYear = 1
	record.CurrentChapter = 1
	require.NoError(t, f.progressStore.Save(record))
	_, err = f.manager.StartOrResumeStory("user1")
	require.NoError(t, err)
	for {
		step, err := f.manager.AdvanceDialogue("user1")
		require.NoError(t, err)
		if step.State == StateChapterComplete {
			require.Nil(t, step.Completion.Secret)
			break
		}
	}

	record, err = f.progressStore.Get("user1")
	require.NoError(t, err)
	assert.Len(t, record.DiscoveredSecrets, 1)
}

func TestChallengeLadder(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 10) // power 10 -> strength tier 2

	session, err := f.manager.StartOrResumeChallenge("user1")
	require.NoError(t, err)
	assert.True(t, session.IsChallenge)
	assert.Equal(t, 2, session.Tier)

	step, err := f.manager.AdvanceDialogue("user1")
	require.NoError(t, err)
	require.NotNil(t, step.Completion)

	record, err := f.progressStore.Get("user1")
	require.NoError(t, err)
	assert.True(t, record.CompletedChallenges["2-1"])
	require.NotNil(t, record.CurrentChallengeChapter)
	assert.Equal(t, 2, record.CurrentChallengeChapter.Chapter)
	// Story cursor untouched by challenge progress.
	assert.Equal(t, 1, record.CurrentChapter)
}

func TestSessionEviction(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 10)

	_, err := f.manager.StartOrResumeStory("user1")
	require.NoError(t, err)

	// Fast-forward past the TTL and sweep.
	f.manager.now = func() time.Time { return time.Now().Add(time.Hour) }
	f.manager.evictIdleSessions()

	_, err = f.manager.AdvanceDialogue("user1")
	assert.ErrorIs(t, err, ErrNoSession)

	// Progress is untouched by the eviction.
	record, err := f.progressStore.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, 1, record.CurrentChapter)
}

func TestAdvanceBimester(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 10)

	cal, err := f.manager.AdvanceBimester("user1")
	require.NoError(t, err)
	assert.True(t, cal.Ferias)

	cal, err = f.manager.AdvanceBimester("user1")
	require.NoError(t, err)
	assert.False(t, cal.Ferias)
	assert.Equal(t, 2, cal.BimestreCorrente)

	record, err := f.progressStore.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, 2, record.Calendar.BimestreCorrente)
}

func TestGetOrSetRelationship(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 10)

	delta := 25
	rels, err := f.manager.GetOrSetRelationship("user1", "Helena", &delta)
	require.NoError(t, err)
	assert.Equal(t, 25, rels["Helena"].Affinity)

	rels, err = f.manager.GetOrSetRelationship("user1", "", nil)
	require.NoError(t, err)
	assert.Len(t, rels, 1)
}

func TestGetStoryStatus(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 10)

	status, err := f.manager.GetStoryStatus("user1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.CurrentYear)
	assert.Equal(t, 1, status.CurrentChapter)
	assert.Equal(t, "Chegada", status.ChapterTitle)
}

func TestPacingDuration_Bounded(t *testing.T) {
	config := PacingConfig{CharsPerSecond: 25, MinDuration: 800 * time.Millisecond, MaxDuration: 4 * time.Second}

	assert.Equal(t, 800*time.Millisecond, PacingDuration(1, config))
	assert.Equal(t, 4*time.Second, PacingDuration(10000, config))

	mid := PacingDuration(50, config) // 2s at 25 cps
	assert.Equal(t, 2*time.Second, mid)
}

func TestAdvanceDialogue_ConcurrentCallsCompleteOnce(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 10) // exp 950

	_, err := f.manager.StartOrResumeStory("user1")
	require.NoError(t, err)

	// Two drivers hammer the same session, as when /avancar lands
	// during paced playback. Steps must serialize: the chapter
	// completes exactly once and rewards are granted exactly once.
	var completions int32
	var wg sync.WaitGroup
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				step, err := f.manager.AdvanceDialogue("user1")
				if err != nil {
					assert.ErrorIs(t, err, ErrNoSession)
					return
				}
				if step.State == StateChapterComplete {
					atomic.AddInt32(&completions, 1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&completions))

	player, err := f.playerStore.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, 1050, player.Exp, "completion exp granted exactly once")
	assert.Equal(t, 250, player.Currency["tusd"])

	record, err := f.progressStore.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, 2, record.CurrentChapter)
}

func TestHasSession_Lifecycle(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "user1", 10)

	assert.False(t, f.manager.HasSession("user1"))

	_, err := f.manager.StartOrResumeStory("user1")
	require.NoError(t, err)
	assert.True(t, f.manager.HasSession("user1"))

	for i := 0; i < 3; i++ {
		_, err = f.manager.AdvanceDialogue("user1")
		require.NoError(t, err)
	}
	assert.False(t, f.manager.HasSession("user1"), "completion destroys the session")
}

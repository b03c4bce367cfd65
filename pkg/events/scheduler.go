package events

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"academia/pkg/consequence"
	"academia/pkg/content"
	"academia/pkg/players"
	"academia/pkg/progress"
	"academia/pkg/progression"
)

var (
	// ErrNoActiveEvent means the player has no event to participate
	// in.
	ErrNoActiveEvent = errors.New("events: no active event")
	// ErrEventActive means the player already holds the one active
	// event slot.
	ErrEventActive = errors.New("events: event already active")
)

// Notifier delivers event announcements. SendDirect is tried first;
// SendToFallback is the guild-channel heuristic used when DMs are
// closed.
type Notifier interface {
	SendDirect(userID, content string) error
	SendToFallback(userID, content string) error
}

// Cooldowns are the per-frequency-class windows measured from an
// event's last completion for the player.
type Cooldowns struct {
	Yearly time.Duration
	Random time.Duration
	Rare   time.Duration
}

// Chances are the per-tick trigger probabilities. Yearly events always
// trigger once off cooldown.
type Chances struct {
	Random float64
	Rare   float64
}

var DefaultCooldowns = Cooldowns{
	Yearly: 30 * 24 * time.Hour,
	Random: 7 * 24 * time.Hour,
	Rare:   90 * 24 * time.Hour,
}

var DefaultChances = Chances{Random: 0.10, Rare: 0.02}

// Scheduler is the recurring background task that offers climactic
// events to eligible players, one active event per player at a time.
type Scheduler struct {
	graph    *content.Graph
	progress progress.Store
	players  players.Store
	locks    *progress.Locker
	notifier Notifier

	cooldowns Cooldowns
	chances   Chances

	mu     sync.Mutex
	active map[string]string // user id -> event name

	// nextCheck caches the earliest instant each player could become
	// eligible again; players still inside that window are skipped
	// without any store reads.
	nextCheck map[string]time.Time

	// Injectable for tests.
	roll func() float64
	now  func() time.Time
}

func NewScheduler(graph *content.Graph, progressStore progress.Store, playerStore players.Store, locks *progress.Locker, notifier Notifier, cooldowns Cooldowns, chances Chances) *Scheduler {
	return &Scheduler{
		graph:     graph,
		progress:  progressStore,
		players:   playerStore,
		locks:     locks,
		notifier:  notifier,
		cooldowns: cooldowns,
		chances:   chances,
		active:    make(map[string]string),
		nextCheck: make(map[string]time.Time),
		roll:      rand.Float64,
		now:       time.Now,
	}
}

// Start launches the recurring sweep, decoupled from narrative
// sessions.
func (s *Scheduler) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			s.Tick()
		}
	}()
}

// Tick evaluates the full known-player set once. Per-player failures
// are logged and the iteration continues.
func (s *Scheduler) Tick() {
	users, err := s.progress.AllKnownPlayers()
	if err != nil {
		log.Printf("[Events] Error listing players: %v", err)
		return
	}

	now := s.now()
	assigned := 0
	for _, userID := range users {
		if next, ok := s.scheduledCheck(userID); ok && now.Before(next) {
			continue
		}
		next, err := s.evaluatePlayer(userID)
		if err != nil {
			log.Printf("[Events] Error evaluating %s: %v", userID, err)
			continue
		}
		s.schedule(userID, next)
		if s.ActiveEvent(userID) != "" {
			assigned++
		}
	}
	if assigned > 0 {
		log.Printf("[Events] Tick complete: %d/%d players hold an active event", assigned, len(users))
	}
}

// evaluatePlayer offers at most one event and reports when the player
// is next worth checking. The returned instant lands in the future
// only when every event sits behind a cooldown; level gates and
// probability rolls can change or re-roll any tick.
func (s *Scheduler) evaluatePlayer(userID string) (time.Time, error) {
	now := s.now()
	if s.ActiveEvent(userID) != "" {
		return now, nil
	}

	player, err := s.players.Get(userID)
	if err != nil {
		// Progress without registration; nothing to offer.
		return now, nil
	}
	record, err := s.progress.Get(userID)
	if err != nil {
		return now, err
	}

	var earliest time.Time
	consider := func(t time.Time) {
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}

	for _, event := range s.graph.Events() {
		if player.Level < event.MinLevel {
			// Levels move outside the scheduler's view.
			consider(now)
			continue
		}
		if last, ok := record.ClimacticEvents[event.Name]; ok {
			if expiry := last.Add(s.cooldownFor(event.Frequency)); now.Before(expiry) {
				consider(expiry)
				continue
			}
		}
		if s.roll() >= s.chanceFor(event.Frequency) {
			consider(now)
			continue
		}

		// First eligible-and-triggered event wins this tick.
		if err := s.assign(userID, event.Name); err != nil {
			return now, nil
		}
		if delivered := s.deliver(userID, event); !delivered {
			// Undeliverable: roll the assignment back rather than
			// letting the event stick unseen forever.
			s.clear(userID)
			log.Printf("[Events] Rolled back %q for %s: undeliverable", event.Name, userID)
		} else {
			log.Printf("[Events] Assigned %q to %s", event.Name, userID)
		}
		return now, nil
	}

	if earliest.IsZero() {
		earliest = now
	}
	return earliest, nil
}

func (s *Scheduler) deliver(userID string, event content.Event) bool {
	message := fmt.Sprintf("✨ **%s** está acontecendo! Use /evento para participar.", event.Name)
	if err := s.notifier.SendDirect(userID, message); err == nil {
		return true
	}
	if err := s.notifier.SendToFallback(userID, fmt.Sprintf("<@%s> %s", userID, message)); err == nil {
		return true
	}
	return false
}

// ActiveEvent returns the player's active event name, or "".
func (s *Scheduler) ActiveEvent(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[userID]
}

// assign claims the player's single event slot, failing when taken.
func (s *Scheduler) assign(userID, eventName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.active[userID]; exists {
		return ErrEventActive
	}
	s.active[userID] = eventName
	return nil
}

// clear releases the player's event slot and forces a full
// re-evaluation on the next tick.
func (s *Scheduler) clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, userID)
	delete(s.nextCheck, userID)
}

func (s *Scheduler) schedule(userID string, next time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCheck[userID] = next
}

func (s *Scheduler) scheduledCheck(userID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := s.nextCheck[userID]
	return next, ok
}

func (s *Scheduler) cooldownFor(frequency content.Frequency) time.Duration {
	switch frequency {
	case content.FrequencyYearly:
		return s.cooldowns.Yearly
	case content.FrequencyRare:
		return s.cooldowns.Rare
	default:
		return s.cooldowns.Random
	}
}

func (s *Scheduler) chanceFor(frequency content.Frequency) float64 {
	switch frequency {
	case content.FrequencyYearly:
		return 1.0
	case content.FrequencyRare:
		return s.chances.Rare
	default:
		return s.chances.Random
	}
}

// Participation summarizes what an event participation granted.
type Participation struct {
	EventName       string
	ExpGained       int
	TusdGained      int
	HierarchyPoints int
	HierarchyTier   int
	Level           int
	LeveledUp       bool
	Item            *consequence.Item
	Boost           *progress.PowerBoost
}

// Participate resolves the player's active event: rewards are applied
// through the consequence engine under the player's lock, the
// completion timestamp is recorded for future cooldowns, and the
// active slot is cleared only after everything persisted.
func (s *Scheduler) Participate(userID string) (*Participation, error) {
	eventName := s.ActiveEvent(userID)
	if eventName == "" {
		return nil, ErrNoActiveEvent
	}
	event := s.graph.Event(eventName)
	if event == nil {
		s.clear(userID)
		return nil, ErrNoActiveEvent
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	player, err := s.players.Get(userID)
	if err != nil {
		return nil, err
	}
	record, err := s.progress.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	spec := consequence.Spec{
		CurrencyRewards: map[string]int{"tusd": event.RewardTusd},
	}
	if event.SpecialItem != nil {
		spec.ItemRewards = []consequence.Item{*event.SpecialItem}
	}
	state := consequence.State{
		Attributes: player.Attributes,
		Currency:   player.Currency,
		Items:      record.SpecialItems,
	}
	state = consequence.Apply(state, spec)

	participation := &Participation{
		EventName:       eventName,
		ExpGained:       event.RewardExp,
		TusdGained:      event.RewardTusd,
		HierarchyPoints: event.HierarchyPoints,
	}

	newExp := player.Exp + event.RewardExp
	level, crossed := progression.CrossedLevel(player.Exp, newExp)
	participation.Level = level
	participation.LeveledUp = crossed

	record.AddHierarchyPoints(event.HierarchyPoints)
	participation.HierarchyTier = record.HierarchyTier
	record.SpecialItems = state.Items
	if event.SpecialItem != nil {
		participation.Item = event.SpecialItem
	}
	if event.PowerBoost > 0 {
		boost := &progress.PowerBoost{
			Amount:    event.PowerBoost,
			ExpiresAt: s.now().Add(time.Duration(event.BoostHours) * time.Hour),
		}
		record.ActiveBoost = boost
		participation.Boost = boost
	}
	record.RecordEventCompletion(eventName, s.now())
	record.Log("Evento climático concluído: %s", eventName)

	if err := s.players.Update(userID, map[string]interface{}{
		"exp":      newExp,
		"level":    level,
		"currency": state.Currency,
	}); err != nil {
		return nil, err
	}
	if err := s.progress.Save(record); err != nil {
		return nil, err
	}

	s.clear(userID)
	log.Printf("[Events] %s participated in %q (+%d exp, +%d tusd)", userID, eventName, event.RewardExp, event.RewardTusd)
	return participation, nil
}

package progress

import "sync"

// Locker hands out one mutex per player so every read-modify-write of
// a player's record is serialized. A chapter completion racing an
// event participation for the same player would otherwise lose one of
// the two updates.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the player's mutex and returns the unlock function.
func (l *Locker) Lock(userID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

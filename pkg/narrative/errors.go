package narrative

import "errors"

var (
	// ErrChapterNotFound means the requested coordinates have no
	// chapter. The presentation layer surfaces this as "new chapters
	// coming soon".
	ErrChapterNotFound = errors.New("narrative: chapter not found")
	// ErrSessionActive means the player already has a running session.
	ErrSessionActive = errors.New("narrative: session already active")
	// ErrNoSession means the player has no running session.
	ErrNoSession = errors.New("narrative: no active session")
	// ErrPersistence means a store write failed; the session cursor
	// did not advance and no partial state was committed.
	ErrPersistence = errors.New("narrative: persistence failure")
)

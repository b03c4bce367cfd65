package narrative

import (
	"academia/pkg/content"
)

// DialogueView is a rendered dialogue line with placeholders
// substituted.
type DialogueView struct {
	Speaker string
	Text    string
}

// ChoiceView is a choice as presented to the player.
type ChoiceView struct {
	Index int
	Text  string
	Check string
}

// Completion summarizes everything a chapter completion granted.
type Completion struct {
	ChapterTitle    string
	ExpGained       int
	TusdGained      int
	Level           int
	LeveledUp       bool
	Placed          bool
	HierarchyTier   int
	Secret          *content.Secret
	SecretAnnounced bool
}

// Step is the outcome of one session operation. The call that emits
// the final dialogue line also carries the transition, so Dialogue
// and Choices (or Completion) can appear together.
type Step struct {
	State       State
	Dialogue    *DialogueView
	Choices     []ChoiceView
	Completion  *Completion
	ChoiceTaken string
	CheckFailed bool
}

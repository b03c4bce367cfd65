package consequence

import (
	"log"
)

// Status is the label derived from an NPC relationship's affinity score.
// It is always recomputed from affinity, never stored independently.
type Status string

const (
	StatusRomance    Status = "romance"
	StatusAmigo      Status = "amigo"
	StatusConhecido  Status = "conhecido"
	StatusNeutro     Status = "neutro"
	StatusRival      Status = "rival"
)

// StatusFor maps an affinity score to its relationship status.
func StatusFor(affinity int) Status {
	switch {
	case affinity >= 100:
		return StatusRomance
	case affinity >= 50:
		return StatusAmigo
	case affinity >= 20:
		return StatusConhecido
	case affinity < 0:
		return StatusRival
	default:
		return StatusNeutro
	}
}

// KnownAttributes are the player attributes a consequence may touch.
var KnownAttributes = map[string]bool{
	"power":     true,
	"intellect": true,
	"dexterity": true,
	"charisma":  true,
}

// Item is a granted special item. Granting an item whose ID already
// exists increments its quantity instead of inserting a duplicate.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Spec is a typed consequence payload. Every field is optional; absent
// fields apply nothing. Content files carrying these blocks are also
// schema-checked at load time, so Validate here is the second, cheap
// line of defense before mutating player state.
type Spec struct {
	StatChanges         map[string]int `json:"stat_changes,omitempty"`
	CurrencyRewards     map[string]int `json:"currency_rewards,omitempty"`
	ItemRewards         []Item         `json:"item_rewards,omitempty"`
	ReputationChange    int            `json:"reputation_change,omitempty"`
	RelationshipChanges map[string]int `json:"relationship_changes,omitempty"`
}

// State is the slice of player state a consequence can act on.
type State struct {
	Attributes    map[string]int
	Currency      map[string]int
	Reputation    int
	Items         []Item
	Relationships map[string]int // character -> affinity
}

// Validate reports whether the spec is shaped well enough to apply.
func Validate(spec Spec) bool {
	for attr := range spec.StatChanges {
		if !KnownAttributes[attr] {
			return false
		}
	}
	for currency := range spec.CurrencyRewards {
		if currency == "" {
			return false
		}
	}
	for _, item := range spec.ItemRewards {
		if item.ID == "" || item.Name == "" {
			return false
		}
	}
	for character := range spec.RelationshipChanges {
		if character == "" {
			return false
		}
	}
	return true
}

// Apply folds a consequence spec into player state and returns the new
// state. Invalid specs are discarded: the input is returned unchanged.
func Apply(state State, spec Spec) State {
	if !Validate(spec) {
		log.Printf("[Consequence] Discarding invalid spec: %+v", spec)
		return state
	}

	out := clone(state)

	for attr, delta := range spec.StatChanges {
		out.Attributes[attr] += delta
	}
	for currency, delta := range spec.CurrencyRewards {
		out.Currency[currency] += delta
	}
	for _, item := range spec.ItemRewards {
		out.Items = mergeItem(out.Items, item)
	}
	out.Reputation += spec.ReputationChange
	for character, delta := range spec.RelationshipChanges {
		out.Relationships[character] += delta
	}

	return out
}

// MergeItem adds an item to a list, incrementing quantity when the ID
// already exists. A zero quantity counts as one.
func MergeItem(items []Item, item Item) []Item {
	return mergeItem(items, item)
}

func mergeItem(items []Item, item Item) []Item {
	qty := item.Quantity
	if qty <= 0 {
		qty = 1
	}
	for i := range items {
		if items[i].ID == item.ID {
			items[i].Quantity += qty
			return items
		}
	}
	item.Quantity = qty
	return append(items, item)
}

func clone(state State) State {
	out := State{
		Attributes:    make(map[string]int, len(state.Attributes)),
		Currency:      make(map[string]int, len(state.Currency)),
		Reputation:    state.Reputation,
		Items:         make([]Item, len(state.Items)),
		Relationships: make(map[string]int, len(state.Relationships)),
	}
	for k, v := range state.Attributes {
		out.Attributes[k] = v
	}
	for k, v := range state.Currency {
		out.Currency[k] = v
	}
	copy(out.Items, state.Items)
	for k, v := range state.Relationships {
		out.Relationships[k] = v
	}
	return out
}

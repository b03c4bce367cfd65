package consequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor_Thresholds(t *testing.T) {
	assert.Equal(t, StatusRomance, StatusFor(100))
	assert.Equal(t, StatusAmigo, StatusFor(50))
	assert.Equal(t, StatusConhecido, StatusFor(20))
	assert.Equal(t, StatusRival, StatusFor(-1))
	assert.Equal(t, StatusNeutro, StatusFor(0))
	assert.Equal(t, StatusNeutro, StatusFor(19))
	assert.Equal(t, StatusConhecido, StatusFor(49))
	assert.Equal(t, StatusAmigo, StatusFor(99))
	assert.Equal(t, StatusRomance, StatusFor(250))
}

func newState() State {
	return State{
		Attributes:    map[string]int{"power": 5, "intellect": 5, "dexterity": 5, "charisma": 5},
		Currency:      map[string]int{"tusd": 100},
		Items:         nil,
		Relationships: map[string]int{"Helena": 10},
	}
}

func TestApply_AllDeltaKinds(t *testing.T) {
	spec := Spec{
		StatChanges:         map[string]int{"power": 2, "intellect": -1},
		CurrencyRewards:     map[string]int{"tusd": 50},
		ItemRewards:         []Item{{ID: "amuleto", Name: "Amuleto Antigo"}},
		ReputationChange:    3,
		RelationshipChanges: map[string]int{"Helena": 15, "Rafael": -5},
	}

	out := Apply(newState(), spec)

	assert.Equal(t, 7, out.Attributes["power"])
	assert.Equal(t, 4, out.Attributes["intellect"])
	assert.Equal(t, 150, out.Currency["tusd"])
	assert.Equal(t, 3, out.Reputation)
	assert.Equal(t, 25, out.Relationships["Helena"])
	assert.Equal(t, -5, out.Relationships["Rafael"])
	require.Len(t, out.Items, 1)
	assert.Equal(t, 1, out.Items[0].Quantity)
}

func TestApply_InvalidSpecIsNoOp(t *testing.T) {
	state := newState()

	// Unknown attribute name fails validation
	out := Apply(state, Spec{StatChanges: map[string]int{"luck": 99}})
	assert.Equal(t, state, out)

	// Item without an ID fails validation
	out = Apply(state, Spec{ItemRewards: []Item{{Name: "sem id"}}})
	assert.Equal(t, state, out)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	state := newState()
	Apply(state, Spec{CurrencyRewards: map[string]int{"tusd": 999}})
	assert.Equal(t, 100, state.Currency["tusd"])
}

func TestMergeItem_IncrementsExisting(t *testing.T) {
	items := []Item{{ID: "pocao", Name: "Poção", Quantity: 2}}

	items = MergeItem(items, Item{ID: "pocao", Name: "Poção"})
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)

	items = MergeItem(items, Item{ID: "chave", Name: "Chave", Quantity: 1})
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[1].Quantity)
}

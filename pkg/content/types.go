package content

import (
	"academia/pkg/consequence"
)

// Dialogue is one line of a chapter, spoken in order. Text may carry
// the placeholder tokens {player_name} and {club_name}.
type Dialogue struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// AttributeCheck gates a choice on a minimum attribute value.
type AttributeCheck struct {
	Attribute string `json:"attribute"`
	Threshold int    `json:"threshold"`
}

// Choice is a branching option presented at the end of a chapter's
// dialogue. NextDialogue is the index the cursor jumps to on success.
type Choice struct {
	Text            string          `json:"text"`
	Check           *AttributeCheck `json:"attribute_check,omitempty"`
	AffinityChanges map[string]int  `json:"affinity_changes,omitempty"`
	NextDialogue    int             `json:"next_dialogue"`
}

// Chapter is one story beat. Story chapters are keyed by (year,
// chapter); challenge chapters reuse the same shape keyed by
// (strength tier, chapter). Immutable after load.
type Chapter struct {
	Year               int        `json:"year,omitempty"`
	Tier               int        `json:"tier,omitempty"`
	Number             int        `json:"chapter"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Dialogues          []Dialogue `json:"dialogues"`
	Choices            []Choice   `json:"choices,omitempty"`
	CompletionExp      int        `json:"completion_exp"`
	CompletionTusd     int        `json:"completion_tusd"`
	NextChapter        *int       `json:"next_chapter,omitempty"`
	NextYear           *int       `json:"next_year,omitempty"`
	HierarchyPlacement bool       `json:"hierarchy_placement,omitempty"`
	SecretDiscovery    bool       `json:"hidden_secret_discovery,omitempty"`
}

// Key addresses a story chapter.
type Key struct {
	Year    int
	Chapter int
}

// ChallengeKey addresses a challenge chapter.
type ChallengeKey struct {
	Tier    int
	Chapter int
}

// Secret is hidden content unlocked when every requirement holds.
// Declared order matters: at most one secret is discovered per chapter
// completion, the first qualifying one.
type Secret struct {
	Name           string         `json:"name"`
	Requirements   map[string]int `json:"requirements,omitempty"`
	RequiredClub   string         `json:"required_club,omitempty"`
	RewardExp      int            `json:"reward_exp,omitempty"`
	RewardTusd     int            `json:"reward_tusd,omitempty"`
	HierarchyBonus int            `json:"hierarchy_bonus,omitempty"`
}

// Frequency classifies how often a climactic event may recur for a
// player, and with what trigger probability.
type Frequency string

const (
	FrequencyYearly Frequency = "yearly"
	FrequencyRandom Frequency = "random"
	FrequencyRare   Frequency = "rare"
)

// Event is a climactic event definition. Declared order is the order
// the scheduler evaluates them in.
type Event struct {
	Name            string            `json:"name"`
	MinLevel        int               `json:"min_level"`
	Frequency       Frequency         `json:"frequency"`
	RewardExp       int               `json:"reward_exp,omitempty"`
	RewardTusd      int               `json:"reward_tusd,omitempty"`
	HierarchyPoints int               `json:"hierarchy_points,omitempty"`
	SpecialItem     *consequence.Item `json:"special_item,omitempty"`
	PowerBoost      int               `json:"power_boost,omitempty"`
	BoostHours      int               `json:"boost_hours,omitempty"`
}

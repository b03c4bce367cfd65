package progression

// MaxHierarchyTier caps the 0-5 social rank.
const MaxHierarchyTier = 5

// Place derives a hierarchy tier from a weighted attribute score:
// (power*2 + intellect + dexterity + charisma) / 5. Pure, no side
// effects.
func Place(attributes map[string]int) int {
	score := (attributes["power"]*2 +
		attributes["intellect"] +
		attributes["dexterity"] +
		attributes["charisma"]) / 5

	switch {
	case score >= 18:
		return 5
	case score >= 15:
		return 4
	case score >= 12:
		return 3
	case score >= 9:
		return 2
	case score >= 6:
		return 1
	default:
		return 0
	}
}

// StrengthTier buckets raw power into the 1-5 challenge ladder.
func StrengthTier(power int) int {
	tier := power / 5
	if tier < 1 {
		return 1
	}
	if tier > 5 {
		return 5
	}
	return tier
}

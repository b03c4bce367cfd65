package progression

// ExpPerLevel is the flat experience cost of each level.
const ExpPerLevel = 1000

// LevelForExp maps accumulated experience to a level, starting at 1.
func LevelForExp(exp int) int {
	if exp < 0 {
		return 1
	}
	return exp/ExpPerLevel + 1
}

// CrossedLevel reports the level reached after gaining experience and
// whether a level boundary was crossed.
func CrossedLevel(oldExp, newExp int) (level int, crossed bool) {
	level = LevelForExp(newExp)
	return level, level > LevelForExp(oldExp)
}

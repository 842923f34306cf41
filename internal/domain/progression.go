package domain

import "math"

// xpPerLevelUnit is the divisor in the level curve L = floor(sqrt(T/50)) + 1.
const xpPerLevelUnit = 50

// LevelForXP returns the level reached with total XP. Negative input is treated as zero.
func LevelForXP(totalXP int64) int {
	if totalXP <= 0 {
		return 1
	}
	l := int(math.Floor(math.Sqrt(float64(totalXP)/xpPerLevelUnit))) + 1
	// guard float rounding at exact squares
	for int64(l)*int64(l)*xpPerLevelUnit <= totalXP {
		l++
	}
	for l > 1 && int64(l-1)*int64(l-1)*xpPerLevelUnit > totalXP {
		l--
	}
	return l
}

// LevelName is the tier label shown next to a level.
func LevelName(level int) string {
	switch {
	case level <= 5:
		return "Newcomer"
	case level <= 10:
		return "Networker"
	case level <= 20:
		return "Connector"
	case level <= 35:
		return "Influencer"
	case level <= 50:
		return "Ambassador"
	default:
		return "Legend"
	}
}

// NextLevelXP is the progress-bar target shown to clients: floor(100 * L^1.5 * 1.2).
// It is an approximation and not the inverse of LevelForXP; see ExactXPForLevel.
func NextLevelXP(level int) int64 {
	return int64(math.Floor(100 * math.Pow(float64(level), 1.5) * 1.2))
}

// ExactXPForLevel is the smallest total XP at which LevelForXP returns level.
func ExactXPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level - 1)
	return n * n * xpPerLevelUnit
}

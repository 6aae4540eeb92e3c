package scoring

import "math"

// WeightedTotal returns the weighted category sum on the 0-100 scale.
// Weights are assumed normalized (summing to 100).
func WeightedTotal(categories map[CategoryKey]CategoryScore) float64 {
	total := 0
	for _, c := range categories {
		total += c.Score * c.Weight
	}
	return float64(total) / 100.0
}

// DeriveLevel maps normalized category scores to the 0-10 level.
func DeriveLevel(categories map[CategoryKey]CategoryScore) int {
	lvl := int(math.Round(WeightedTotal(categories) / 10.0))
	if lvl < 0 {
		lvl = 0
	}
	if lvl > 10 {
		lvl = 10
	}
	return lvl
}

// DeriveLevelName maps a level to its tier label. Total over [0,10]:
// >=9 Cooking, >=7 Toasted, >=5 Cooked, >=3 Well-Done, else Burnt.
func DeriveLevelName(level int) LevelName {
	switch {
	case level >= 9:
		return LevelCooking
	case level >= 7:
		return LevelToasted
	case level >= 5:
		return LevelCooked
	case level >= 3:
		return LevelWellDone
	default:
		return LevelBurnt
	}
}

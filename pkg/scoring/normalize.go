package scoring

import (
	"math"
	"strings"
)

// RawSubMetric is a sub-metric as the model emitted it, before validation.
type RawSubMetric struct {
	Name   string
	Score  *float64
	Weight *float64
}

// RawCategory is a category as the model emitted it. Nil score means the
// model omitted it or sent something non-numeric.
type RawCategory struct {
	Score      *float64
	Notes      string
	SubMetrics []RawSubMetric
}

// RawCategoryMap holds whatever usable category data survived ingestion.
type RawCategoryMap map[CategoryKey]RawCategory

// Normalized is the deterministic fragment of an assessment: complete
// category scores plus the level derived from them.
type Normalized struct {
	Categories map[CategoryKey]CategoryScore
	Level      int
	LevelName  LevelName
}

// Engine turns raw, possibly incomplete category data into a complete,
// clamped, weighted result. It is deterministic and idempotent: normalizing
// its own output reproduces the same level.
type Engine struct {
	defaults Weights
}

func NewEngine() *Engine {
	return &Engine{defaults: DefaultWeights()}
}

// Normalize fills gaps, clamps, resolves weights and derives the level.
//
// Missing or invalid scores are filled with the mean of the present valid
// scores (50 when nothing is present). A weight override is honored only when
// all four weights are present and each lies in [15,45]; the largest weight
// absorbs any difference so the set sums to exactly 100, and if that
// adjustment leaves the range the whole override is discarded. A category
// with two or more named sub-metrics gets its score recomputed from them,
// with sub-metric weights renormalized to sum to 100.
func (e *Engine) Normalize(raw RawCategoryMap, override Weights) Normalized {
	weights := e.resolveWeights(override)

	categories := make(map[CategoryKey]CategoryScore, 4)
	present := make([]int, 0, 4)
	var missing []CategoryKey

	for _, key := range CategoryKeys() {
		rc := raw[key]
		subs := normalizeSubMetrics(rc.SubMetrics)

		cs := CategoryScore{
			Key:        key,
			Weight:     weights[key],
			Notes:      rc.Notes,
			SubMetrics: subs,
		}
		switch {
		case len(subs) >= 2:
			cs.Score = scoreFromSubMetrics(subs)
		case validScore(rc.Score):
			cs.Score = clampScore(*rc.Score)
		default:
			missing = append(missing, key)
			categories[key] = cs
			continue
		}
		present = append(present, cs.Score)
		categories[key] = cs
	}

	fill := 50
	if len(present) > 0 {
		sum := 0
		for _, s := range present {
			sum += s
		}
		fill = int(math.Round(float64(sum) / float64(len(present))))
	}
	for _, key := range missing {
		cs := categories[key]
		cs.Score = fill
		categories[key] = cs
	}

	level := DeriveLevel(categories)
	return Normalized{
		Categories: categories,
		Level:      level,
		LevelName:  DeriveLevelName(level),
	}
}

// resolveWeights validates an override all-or-nothing. Any missing or
// out-of-range weight rejects the entire set in favor of the defaults.
func (e *Engine) resolveWeights(override Weights) Weights {
	if override == nil {
		return copyWeights(e.defaults)
	}
	w := make(Weights, 4)
	sum := 0
	for _, key := range CategoryKeys() {
		v, ok := override[key]
		if !ok || v < 15 || v > 45 {
			return copyWeights(e.defaults)
		}
		w[key] = v
		sum += v
	}
	if sum != 100 {
		largest := CategoryKeys()[0]
		for _, key := range CategoryKeys() {
			if w[key] > w[largest] {
				largest = key
			}
		}
		adjusted := w[largest] + (100 - sum)
		if adjusted < 15 || adjusted > 45 {
			return copyWeights(e.defaults)
		}
		w[largest] = adjusted
	}
	return w
}

func copyWeights(w Weights) Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// normalizeSubMetrics keeps named sub-metrics with valid scores, clamps them
// and renormalizes their weights to integers summing to exactly 100 (largest
// remainder, input order breaking ties). Already-normalized input passes
// through unchanged.
func normalizeSubMetrics(raw []RawSubMetric) []SubMetric {
	kept := make([]RawSubMetric, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s.Name) == "" || !validScore(s.Score) {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		return nil
	}

	weights := make([]float64, len(kept))
	total := 0.0
	for i, s := range kept {
		if s.Weight != nil && validScore(s.Weight) && *s.Weight > 0 {
			weights[i] = *s.Weight
		}
		total += weights[i]
	}
	if total == 0 {
		for i := range weights {
			weights[i] = 1
		}
		total = float64(len(weights))
	}

	type share struct {
		idx  int
		frac float64
	}
	ints := make([]int, len(kept))
	shares := make([]share, len(kept))
	assigned := 0
	for i := range kept {
		exact := weights[i] * 100 / total
		ints[i] = int(math.Floor(exact))
		shares[i] = share{idx: i, frac: exact - math.Floor(exact)}
		assigned += ints[i]
	}
	for rem := 100 - assigned; rem > 0; rem-- {
		best := 0
		for i := 1; i < len(shares); i++ {
			if shares[i].frac > shares[best].frac {
				best = i
			}
		}
		ints[shares[best].idx]++
		shares[best].frac = -1
	}

	out := make([]SubMetric, len(kept))
	for i, s := range kept {
		out[i] = SubMetric{
			Name:   strings.TrimSpace(s.Name),
			Score:  clampScore(*s.Score),
			Weight: ints[i],
		}
	}
	return out
}

// scoreFromSubMetrics recomputes a category score from normalized
// sub-metrics. Sub weights already sum to 100.
func scoreFromSubMetrics(subs []SubMetric) int {
	sum := 0
	for _, s := range subs {
		sum += s.Score * s.Weight
	}
	return int(math.Round(float64(sum) / 100.0))
}

func validScore(s *float64) bool {
	return s != nil && !math.IsNaN(*s) && !math.IsInf(*s, 0)
}

func clampScore(f float64) int {
	s := int(math.Round(f))
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// RawFromCategories converts normalized categories back into raw form so a
// result can be re-normalized (the round trip yields the same level).
func RawFromCategories(categories map[CategoryKey]CategoryScore) RawCategoryMap {
	raw := make(RawCategoryMap, len(categories))
	for key, c := range categories {
		score := float64(c.Score)
		rc := RawCategory{Score: &score, Notes: c.Notes}
		for _, s := range c.SubMetrics {
			sc, w := float64(s.Score), float64(s.Weight)
			rc.SubMetrics = append(rc.SubMetrics, RawSubMetric{Name: s.Name, Score: &sc, Weight: &w})
		}
		raw[key] = rc
	}
	return raw
}

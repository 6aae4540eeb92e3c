package scoring

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/Champion2005/amicooked/pkg/jsonutil"
)

// Model output never gets trusted structurally: every shape is re-read
// through coercion here before the engine sees it.

var keyAliases = map[string]CategoryKey{
	"activity":       CategoryActivity,
	"activityscore":  CategoryActivity,
	"skillsignals":   CategorySkillSignals,
	"skillsignal":    CategorySkillSignals,
	"skills":         CategorySkillSignals,
	"skill":          CategorySkillSignals,
	"signals":        CategorySkillSignals,
	"growth":         CategoryGrowth,
	"growthscore":    CategoryGrowth,
	"improvement":    CategoryGrowth,
	"collaboration":  CategoryCollaboration,
	"collab":         CategoryCollaboration,
	"teamwork":       CategoryCollaboration,
	"collaborations": CategoryCollaboration,
}

// canonicalKey resolves a raw key case- and punctuation-insensitively.
// Unknown keys report false and are dropped by callers.
func canonicalKey(raw string) (CategoryKey, bool) {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	key, ok := keyAliases[b.String()]
	return key, ok
}

type categoryJSON struct {
	Score      any             `json:"score"`
	Value      any             `json:"value"`
	Notes      string          `json:"notes"`
	SubMetrics []subMetricJSON `json:"subMetrics"`
}

type subMetricJSON struct {
	Name   string `json:"name"`
	Score  any    `json:"score"`
	Weight any    `json:"weight"`
}

// ParseCategoryJSON recovers whatever category data the model's text holds.
// Accepts a flat {"activity": 80, ...} object, per-category objects with
// score/notes/subMetrics, and an optional categoryScores/categories wrapper.
// Returns false only when no JSON object is recoverable at all.
func ParseCategoryJSON(text string) (RawCategoryMap, bool) {
	raw, ok := jsonutil.Extract(text)
	if !ok {
		return nil, false
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, false
	}
	for _, wrapper := range []string{"categoryScores", "categories", "scores"} {
		if inner, ok := top[wrapper]; ok {
			var unwrapped map[string]json.RawMessage
			if err := json.Unmarshal(inner, &unwrapped); err == nil {
				top = unwrapped
			}
			break
		}
	}

	out := make(RawCategoryMap)
	for k, v := range top {
		key, ok := canonicalKey(k)
		if !ok {
			continue
		}
		rc := parseCategoryValue(v)
		// First usable form wins; a later alias never overwrites real data.
		if existing, dup := out[key]; dup && existing.Score != nil {
			continue
		}
		out[key] = rc
	}
	return out, true
}

func parseCategoryValue(v json.RawMessage) RawCategory {
	var num float64
	if err := json.Unmarshal(v, &num); err == nil {
		return RawCategory{Score: coerceNumber(num)}
	}
	var str string
	if err := json.Unmarshal(v, &str); err == nil {
		return RawCategory{Score: coerceNumber(str)}
	}
	var obj categoryJSON
	if err := json.Unmarshal(v, &obj); err != nil {
		return RawCategory{}
	}
	score := coerceNumber(obj.Score)
	if score == nil {
		score = coerceNumber(obj.Value)
	}
	rc := RawCategory{Score: score, Notes: strings.TrimSpace(obj.Notes)}
	for _, s := range obj.SubMetrics {
		rc.SubMetrics = append(rc.SubMetrics, RawSubMetric{
			Name:   s.Name,
			Score:  coerceNumber(s.Score),
			Weight: coerceNumber(s.Weight),
		})
	}
	return rc
}

// ParseWeightOverride coerces a loosely-typed weight map (config, stored user
// preferences) into Weights. Values it cannot read are left out, which makes
// the engine reject the override as a whole.
func ParseWeightOverride(m map[string]any) Weights {
	if len(m) == 0 {
		return nil
	}
	w := make(Weights)
	for k, v := range m {
		key, ok := canonicalKey(k)
		if !ok {
			continue
		}
		if n := coerceNumber(v); n != nil {
			w[key] = int(math.Round(*n))
		}
	}
	if len(w) == 0 {
		return nil
	}
	return w
}

// coerceNumber reads a number out of the loose types JSON decoding and config
// maps produce. Percent-suffixed strings like "85%" count.
func coerceNumber(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(n), "%"))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

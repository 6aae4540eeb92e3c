package scoring

import (
	"testing"
)

func fp(v float64) *float64 { return &v }

func TestNormalizeCompleteAndBounded(t *testing.T) {
	tests := []struct {
		name string
		raw  RawCategoryMap
	}{
		{name: "empty input"},
		{
			name: "out of range scores",
			raw: RawCategoryMap{
				CategoryActivity:      {Score: fp(-5)},
				CategorySkillSignals:  {Score: fp(130)},
				CategoryGrowth:        {Score: fp(55.6)},
				CategoryCollaboration: {Score: fp(0)},
			},
		},
		{
			name: "partial input",
			raw: RawCategoryMap{
				CategoryGrowth: {Score: fp(72)},
			},
		},
	}

	engine := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Normalize(tt.raw, nil)
			if len(got.Categories) != 4 {
				t.Fatalf("categories = %d, want 4", len(got.Categories))
			}
			weightSum := 0
			for key, c := range got.Categories {
				if c.Score < 0 || c.Score > 100 {
					t.Errorf("%s score %d out of [0,100]", key, c.Score)
				}
				weightSum += c.Weight
			}
			if weightSum != 100 {
				t.Errorf("weights sum to %d, want 100", weightSum)
			}
			if got.Level < 0 || got.Level > 10 {
				t.Errorf("level %d out of [0,10]", got.Level)
			}
		})
	}
}

func TestNormalizeMeanFill(t *testing.T) {
	engine := NewEngine()

	got := engine.Normalize(RawCategoryMap{
		CategoryActivity:     {Score: fp(80)},
		CategorySkillSignals: {Score: fp(80)},
		CategoryGrowth:       {Score: fp(80)},
	}, nil)
	if s := got.Categories[CategoryCollaboration].Score; s != 80 {
		t.Errorf("missing category filled with %d, want mean 80", s)
	}

	got = engine.Normalize(RawCategoryMap{
		CategoryActivity: {Score: fp(90)},
		CategoryGrowth:   {Score: fp(60)},
	}, nil)
	if s := got.Categories[CategorySkillSignals].Score; s != 75 {
		t.Errorf("missing category filled with %d, want mean 75", s)
	}

	got = engine.Normalize(RawCategoryMap{}, nil)
	for key, c := range got.Categories {
		if c.Score != 50 {
			t.Errorf("%s filled with %d, want 50 when nothing is present", key, c.Score)
		}
	}
}

func TestDeriveLevelNameTotalAndMonotonic(t *testing.T) {
	want := map[int]LevelName{
		0: LevelBurnt, 1: LevelBurnt, 2: LevelBurnt,
		3: LevelWellDone, 4: LevelWellDone,
		5: LevelCooked, 6: LevelCooked,
		7: LevelToasted, 8: LevelToasted,
		9: LevelCooking, 10: LevelCooking,
	}
	for level := 0; level <= 10; level++ {
		if got := DeriveLevelName(level); got != want[level] {
			t.Errorf("DeriveLevelName(%d) = %s, want %s", level, got, want[level])
		}
	}
}

func TestWeightOverride(t *testing.T) {
	base := RawCategoryMap{
		CategoryActivity:      {Score: fp(100)},
		CategorySkillSignals:  {Score: fp(0)},
		CategoryGrowth:        {Score: fp(0)},
		CategoryCollaboration: {Score: fp(0)},
	}
	defaults := DefaultWeights()

	tests := []struct {
		name     string
		override Weights
		want     Weights
	}{
		{
			name: "valid override honored",
			override: Weights{
				CategoryActivity: 45, CategorySkillSignals: 25,
				CategoryGrowth: 15, CategoryCollaboration: 15,
			},
			want: Weights{
				CategoryActivity: 45, CategorySkillSignals: 25,
				CategoryGrowth: 15, CategoryCollaboration: 15,
			},
		},
		{
			name: "out of range rejects whole override",
			override: Weights{
				CategoryActivity: 50, CategorySkillSignals: 30,
				CategoryGrowth: 10, CategoryCollaboration: 10,
			},
			want: defaults,
		},
		{
			name: "missing key rejects whole override",
			override: Weights{
				CategoryActivity: 40, CategorySkillSignals: 30, CategoryGrowth: 30,
			},
			want: defaults,
		},
		{
			name: "largest weight absorbs the off-by-one",
			override: Weights{
				CategoryActivity: 40, CategorySkillSignals: 30,
				CategoryGrowth: 15, CategoryCollaboration: 14,
			},
			want: Weights{
				CategoryActivity: 41, CategorySkillSignals: 30,
				CategoryGrowth: 15, CategoryCollaboration: 14,
			},
		},
		{
			name: "adjustment out of range rejects whole override",
			override: Weights{
				CategoryActivity: 16, CategorySkillSignals: 15,
				CategoryGrowth: 15, CategoryCollaboration: 15,
			},
			want: defaults,
		},
	}

	engine := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Normalize(base, tt.override)
			for _, key := range CategoryKeys() {
				if w := got.Categories[key].Weight; w != tt.want[key] {
					t.Errorf("%s weight = %d, want %d", key, w, tt.want[key])
				}
			}
		})
	}
}

func TestSubMetricsRecomputeCategoryScore(t *testing.T) {
	engine := NewEngine()

	raw := RawCategoryMap{
		CategoryActivity: {
			Score: fp(10), // overridden by sub-metrics
			SubMetrics: []RawSubMetric{
				{Name: "commit cadence", Score: fp(100), Weight: fp(60)},
				{Name: "issue activity", Score: fp(50), Weight: fp(40)},
			},
		},
		CategorySkillSignals:  {Score: fp(50)},
		CategoryGrowth:        {Score: fp(50)},
		CategoryCollaboration: {Score: fp(50)},
	}
	got := engine.Normalize(raw, nil)
	if s := got.Categories[CategoryActivity].Score; s != 80 {
		t.Errorf("recomputed score = %d, want 80", s)
	}
	subWeightSum := 0
	for _, s := range got.Categories[CategoryActivity].SubMetrics {
		subWeightSum += s.Weight
	}
	if subWeightSum != 100 {
		t.Errorf("sub-metric weights sum to %d, want 100", subWeightSum)
	}

	// A single sub-metric never overrides the top-level score.
	raw[CategoryActivity] = RawCategory{
		Score:      fp(10),
		SubMetrics: []RawSubMetric{{Name: "commits", Score: fp(100), Weight: fp(100)}},
	}
	got = engine.Normalize(raw, nil)
	if s := got.Categories[CategoryActivity].Score; s != 10 {
		t.Errorf("single sub-metric changed score to %d, want 10", s)
	}

	// Missing sub weights split evenly.
	raw[CategoryActivity] = RawCategory{
		SubMetrics: []RawSubMetric{
			{Name: "a", Score: fp(100)},
			{Name: "b", Score: fp(50)},
		},
	}
	got = engine.Normalize(raw, nil)
	if s := got.Categories[CategoryActivity].Score; s != 75 {
		t.Errorf("equal-weight recompute = %d, want 75", s)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	engine := NewEngine()
	first := engine.Normalize(RawCategoryMap{
		CategoryActivity: {
			SubMetrics: []RawSubMetric{
				{Name: "pushes", Score: fp(83), Weight: fp(3)},
				{Name: "streak", Score: fp(61), Weight: fp(2)},
				{Name: "repos touched", Score: fp(44), Weight: fp(2)},
			},
		},
		CategorySkillSignals:  {Score: fp(67.4)},
		CategoryCollaboration: {Score: fp(12)},
	}, nil)

	second := engine.Normalize(RawFromCategories(first.Categories), nil)
	if second.Level != first.Level || second.LevelName != first.LevelName {
		t.Errorf("re-normalize changed level: %d (%s) -> %d (%s)",
			first.Level, first.LevelName, second.Level, second.LevelName)
	}
	for _, key := range CategoryKeys() {
		if second.Categories[key].Score != first.Categories[key].Score {
			t.Errorf("%s score drifted %d -> %d", key,
				first.Categories[key].Score, second.Categories[key].Score)
		}
	}
}

func TestLevelScenario(t *testing.T) {
	engine := NewEngine()
	got := engine.Normalize(RawCategoryMap{
		CategoryActivity:      {Score: fp(80)},
		CategorySkillSignals:  {Score: fp(70)},
		CategoryGrowth:        {Score: fp(60)},
		CategoryCollaboration: {Score: fp(50)},
	}, nil)
	if got.Level != 7 {
		t.Errorf("level = %d, want 7", got.Level)
	}
	if got.LevelName != LevelToasted {
		t.Errorf("levelName = %s, want Toasted", got.LevelName)
	}
}

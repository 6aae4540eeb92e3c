package scoring

import (
	"github.com/Champion2005/amicooked/pkg/plans"
)

// CategoryKey names one of the four assessment axes.
type CategoryKey string

const (
	CategoryActivity      CategoryKey = "activity"
	CategorySkillSignals  CategoryKey = "skillSignals"
	CategoryGrowth        CategoryKey = "growth"
	CategoryCollaboration CategoryKey = "collaboration"
)

// CategoryKeys returns the four canonical keys in their fixed render order.
func CategoryKeys() []CategoryKey {
	return []CategoryKey{CategoryActivity, CategorySkillSignals, CategoryGrowth, CategoryCollaboration}
}

// SubMetric is a named slice of a category. Weights within a category sum to 100.
type SubMetric struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Weight int    `json:"weight"`
}

// CategoryScore is one normalized assessment axis. Score is an integer in
// [0,100]; weights across the four categories sum to exactly 100.
type CategoryScore struct {
	Key        CategoryKey `json:"key"`
	Score      int         `json:"score"`
	Weight     int         `json:"weight"`
	Notes      string      `json:"notes,omitempty"`
	SubMetrics []SubMetric `json:"subMetrics,omitempty"`
}

// LevelName is the five-tier label derived from the numeric level.
type LevelName string

const (
	LevelBurnt    LevelName = "Burnt"
	LevelWellDone LevelName = "Well-Done"
	LevelCooked   LevelName = "Cooked"
	LevelToasted  LevelName = "Toasted"
	LevelCooking  LevelName = "Cooking"
)

// Insights carries the per-axis narrative produced in the synthesis phase.
type Insights struct {
	Projects string `json:"projects"`
	Language string `json:"language"`
	Activity string `json:"activity"`
}

// AnalysisResult is the complete assessment. Level and LevelName are derived
// from CategoryScores by the normalization engine, never taken from the model.
type AnalysisResult struct {
	CategoryScores  map[CategoryKey]CategoryScore `json:"categoryScores"`
	Level           int                           `json:"level"`
	LevelName       LevelName                     `json:"levelName"`
	Summary         string                        `json:"summary"`
	Recommendations []string                      `json:"recommendations"`
	Insights        Insights                      `json:"insights"`
}

// Weights maps each category to its share of the final level. Valid weight
// sets cover all four categories and sum to exactly 100.
type Weights map[CategoryKey]int

// DefaultWeights returns a fresh copy of the default weight set. Callers may
// mutate the returned map freely.
func DefaultWeights() Weights {
	return Weights{
		CategoryActivity:      40,
		CategorySkillSignals:  30,
		CategoryGrowth:        15,
		CategoryCollaboration: 15,
	}
}

// Profile identifies the account under assessment.
type Profile struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

// AnalysisInput bundles everything one assessment run needs.
type AnalysisInput struct {
	Metrics        map[string]any
	Profile        Profile
	Plan           plans.ID
	WeightOverride Weights
	Model          string // explicit model override; empty selects by plan tier
}

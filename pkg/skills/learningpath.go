package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/Champion2005/amicooked/pkg/jsonutil"
	"github.com/Champion2005/amicooked/pkg/plans"
	"github.com/Champion2005/amicooked/pkg/providers"
	"github.com/Champion2005/amicooked/pkg/scoring"
)

const (
	minMilestoneWeeks = 1
	maxMilestoneWeeks = 12
	maxMilestones     = 6
)

// Milestone is one stage of a learning roadmap.
type Milestone struct {
	Title   string   `json:"title"`
	Focus   string   `json:"focus"`
	Weeks   int      `json:"weeks"`
	Actions []string `json:"actions"`
}

// LearningPath is an ordered roadmap from the developer's weakest area
// toward stretch goals.
type LearningPath struct {
	Milestones []Milestone `json:"milestones"`
}

// TotalWeeks sums the milestone durations.
func (p *LearningPath) TotalWeeks() int {
	total := 0
	for _, m := range p.Milestones {
		total += m.Weeks
	}
	return total
}

const learningPathSystemPrompt = `You are the study planner of amicooked, a developer skill assessment service. You build an ordered learning roadmap for a developer.

RULES:
- 3 to 6 milestones, ordered from the developer's weakest area toward stretch goals
- weeks is the whole number of weeks the milestone takes, between 1 and 12
- focus names the single skill area the milestone targets
- actions lists 2 to 5 concrete tasks

RESPOND WITH ONLY A JSON OBJECT:
{"milestones": [{"title": "...", "focus": "...", "weeks": 2, "actions": ["..."]}]}`

func (r *Registry) generateLearningPath(ctx context.Context, in Input) (*Output, error) {
	detail := plans.Lookup(in.Plan).MetricsDetail
	pc := scoring.NewPromptContext().
		Add("Profile", scoring.FormatProfile(in.Profile)).
		Add("Metrics", scoring.FormatMetrics(in.Metrics, detail))
	if in.Prior != nil {
		pc.Add("Current standing", fmt.Sprintf("Level %d of 10, %s.\n%s",
			in.Prior.Level, in.Prior.LevelName, scoring.FormatCategoryScores(in.Prior.CategoryScores)))
	}
	pc.Add("Task", "Plan a learning roadmap for this developer.")

	model := r.resolver.Resolve(in.Model, in.Plan)
	text, err := r.client.Chat(ctx, model, learningPathSystemPrompt, pc.Render(), providers.ChatOptions{
		MaxTokens: 1536,
	})
	if err != nil {
		return nil, fmt.Errorf("generateLearningPath: %w", err)
	}

	path := parseLearningPath(text)
	if path == nil || len(path.Milestones) == 0 {
		return nil, fmt.Errorf("generateLearningPath: no usable milestones in response")
	}
	return &Output{Skill: SkillGenerateLearningPath, Path: path}, nil
}

// parseLearningPath recovers and bounds-checks the roadmap.
func parseLearningPath(text string) *LearningPath {
	var path LearningPath
	if !jsonutil.ExtractInto(text, &path) {
		return nil
	}
	out := make([]Milestone, 0, len(path.Milestones))
	for _, m := range path.Milestones {
		m.Title = strings.TrimSpace(m.Title)
		if m.Title == "" {
			continue
		}
		m.Focus = strings.TrimSpace(m.Focus)
		m.Weeks = clampWeeks(m.Weeks)
		m.Actions = cleanStrings(m.Actions)
		out = append(out, m)
		if len(out) == maxMilestones {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return &LearningPath{Milestones: out}
}

func clampWeeks(w int) int {
	if w < minMilestoneWeeks {
		return minMilestoneWeeks
	}
	if w > maxMilestoneWeeks {
		return maxMilestoneWeeks
	}
	return w
}

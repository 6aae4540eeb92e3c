package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/Champion2005/amicooked/pkg/jsonutil"
	"github.com/Champion2005/amicooked/pkg/logger"
	"github.com/Champion2005/amicooked/pkg/plans"
	"github.com/Champion2005/amicooked/pkg/providers"
	"github.com/Champion2005/amicooked/pkg/scoring"
)

// Project difficulty tiers.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

const (
	minProjects = 3
	maxProjects = 5
)

// Project is one practice project suggestion.
type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Difficulty  string   `json:"difficulty"`
	Skills      []string `json:"skills"`
	Reason      string   `json:"reason"`
}

const projectsSystemPrompt = `You are the project picker of amicooked, a developer skill assessment service. You suggest practice projects matched to a developer's current standing.

RULES:
- Suggest 3 to 5 projects, most useful first
- difficulty is one of: beginner, intermediate, advanced
- skills lists 2 to 4 technologies the project exercises
- reason says why this project fits this developer's metrics, in one sentence

RESPOND WITH ONLY A JSON OBJECT:
{"projects": [{"name": "...", "description": "...", "difficulty": "intermediate", "skills": ["..."], "reason": "..."}]}`

func (r *Registry) recommendProjects(ctx context.Context, in Input) (*Output, error) {
	detail := plans.Lookup(in.Plan).MetricsDetail
	pc := scoring.NewPromptContext().
		Add("Profile", scoring.FormatProfile(in.Profile)).
		Add("Metrics", scoring.FormatMetrics(in.Metrics, detail))
	if in.Prior != nil {
		pc.Add("Current standing", fmt.Sprintf("Level %d of 10, %s.\n%s",
			in.Prior.Level, in.Prior.LevelName, scoring.FormatCategoryScores(in.Prior.CategoryScores)))
	}
	pc.Add("Task", "Suggest practice projects for this developer.")

	model := r.resolver.Resolve(in.Model, in.Plan)
	text, err := r.client.Chat(ctx, model, projectsSystemPrompt, pc.Render(), providers.ChatOptions{
		MaxTokens: 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("recommendProjects: %w", err)
	}

	projects := parseProjects(text)
	if len(projects) == 0 {
		return nil, fmt.Errorf("recommendProjects: no usable projects in response")
	}
	if len(projects) < minProjects {
		logger.WarnC("skills", fmt.Sprintf("Model returned %d projects, wanted at least %d", len(projects), minProjects))
	}
	return &Output{Skill: SkillRecommendProjects, Projects: projects}, nil
}

// parseProjects recovers and sanitizes the suggestion list. It accepts
// both the wrapped object shape and a bare array.
func parseProjects(text string) []Project {
	var wrapped struct {
		Projects []Project `json:"projects"`
	}
	var raw []Project
	if jsonutil.ExtractInto(text, &wrapped) && len(wrapped.Projects) > 0 {
		raw = wrapped.Projects
	} else {
		var bare []Project
		if jsonutil.ExtractInto(text, &bare) {
			raw = bare
		}
	}

	out := make([]Project, 0, len(raw))
	for _, p := range raw {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			continue
		}
		p.Description = strings.TrimSpace(p.Description)
		p.Reason = strings.TrimSpace(p.Reason)
		p.Difficulty = coerceDifficulty(p.Difficulty)
		p.Skills = cleanStrings(p.Skills)
		out = append(out, p)
		if len(out) == maxProjects {
			break
		}
	}
	return out
}

func coerceDifficulty(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case DifficultyBeginner, "easy":
		return DifficultyBeginner
	case DifficultyAdvanced, "hard", "expert":
		return DifficultyAdvanced
	default:
		return DifficultyIntermediate
	}
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/Champion2005/amicooked/pkg/logger"
	"github.com/Champion2005/amicooked/pkg/providers"
	"github.com/Champion2005/amicooked/pkg/scoring"
)

// CategoryDelta is one category's movement between two assessments.
type CategoryDelta struct {
	Key    scoring.CategoryKey `json:"key"`
	Before int                 `json:"before"`
	After  int                 `json:"after"`
	Delta  int                 `json:"delta"`
}

// ProgressReport compares a prior assessment to a fresh one. Every number
// in it is computed locally; the model only supplies the verdict prose.
type ProgressReport struct {
	Improved    []CategoryDelta `json:"improved"`
	Declined    []CategoryDelta `json:"declined"`
	Unchanged   []CategoryDelta `json:"unchanged"`
	LevelBefore int             `json:"levelBefore"`
	LevelAfter  int             `json:"levelAfter"`
	Verdict     string          `json:"verdict"`
}

const progressSystemPrompt = `You are the narrative voice of amicooked, a developer skill assessment service. Kitchen metaphors are the house style.

You are given a finished progress comparison. Summarize it in 2 or 3 sentences. The numbers are final; never invent or correct them. Respond with plain text, no JSON.`

func (r *Registry) compareProgress(ctx context.Context, in Input) (*Output, error) {
	if in.Prior == nil {
		return nil, fmt.Errorf("compareProgress: no prior assessment to compare against")
	}

	fresh, err := r.orch.Score(ctx, in.analysisInput())
	if err != nil {
		return nil, err
	}

	report := BuildProgressReport(in.Prior, fresh)
	report.Verdict = r.narrateProgress(ctx, in, report)
	return &Output{Skill: SkillCompareProgress, Progress: report}, nil
}

// BuildProgressReport computes the per-category deltas between two
// assessments in the fixed category order.
func BuildProgressReport(prior *scoring.AnalysisResult, fresh scoring.Normalized) *ProgressReport {
	report := &ProgressReport{
		LevelBefore: prior.Level,
		LevelAfter:  fresh.Level,
	}
	for _, key := range scoring.CategoryKeys() {
		d := CategoryDelta{
			Key:    key,
			Before: prior.CategoryScores[key].Score,
			After:  fresh.Categories[key].Score,
		}
		d.Delta = d.After - d.Before
		switch {
		case d.Delta > 0:
			report.Improved = append(report.Improved, d)
		case d.Delta < 0:
			report.Declined = append(report.Declined, d)
		default:
			report.Unchanged = append(report.Unchanged, d)
		}
	}
	return report
}

// narrateProgress asks the model to phrase the verdict. Narration is
// decoration: on any failure the deterministic summary stands in.
func (r *Registry) narrateProgress(ctx context.Context, in Input, report *ProgressReport) string {
	model := r.resolver.Resolve(in.Model, in.Plan)
	text, err := r.client.Chat(ctx, model, progressSystemPrompt, formatProgress(report), providers.ChatOptions{
		MaxTokens: 512,
	})
	if err != nil {
		logger.WarnC("skills", fmt.Sprintf("Progress narration failed, using plain verdict: %v", err))
		return plainVerdict(report)
	}
	if text = strings.TrimSpace(text); text == "" {
		return plainVerdict(report)
	}
	return text
}

func formatProgress(report *ProgressReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Level moved from %d to %d.\n", report.LevelBefore, report.LevelAfter)
	writeDeltas(&b, "Improved", report.Improved)
	writeDeltas(&b, "Declined", report.Declined)
	writeDeltas(&b, "Unchanged", report.Unchanged)
	return b.String()
}

func writeDeltas(b *strings.Builder, label string, deltas []CategoryDelta) {
	if len(deltas) == 0 {
		return
	}
	b.WriteString(label)
	b.WriteString(":\n")
	for _, d := range deltas {
		fmt.Fprintf(b, "- %s: %d to %d (%+d)\n", d.Key, d.Before, d.After, d.Delta)
	}
}

func plainVerdict(report *ProgressReport) string {
	return fmt.Sprintf("Level %d to %d: %d categories up, %d down, %d unchanged.",
		report.LevelBefore, report.LevelAfter,
		len(report.Improved), len(report.Declined), len(report.Unchanged))
}

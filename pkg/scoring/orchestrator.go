// amicooked - developer skill assessment with a coaching agent
// License: MIT
//
// Copyright (c) 2026 amicooked contributors

package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/Champion2005/amicooked/pkg/jsonutil"
	"github.com/Champion2005/amicooked/pkg/logger"
	"github.com/Champion2005/amicooked/pkg/providers"
)

// Orchestrator runs the two-phase assessment protocol: a scoring call that
// must yield numbers, then a synthesis call that narrates them. The level is
// locked after phase 1; the narrative never gets to change it.
type Orchestrator struct {
	client   providers.Client
	engine   *Engine
	resolver *ModelResolver
}

func NewOrchestrator(client providers.Client, engine *Engine, resolver *ModelResolver) *Orchestrator {
	return &Orchestrator{client: client, engine: engine, resolver: resolver}
}

// Run executes both phases and returns the combined result. When sink is
// non-nil the synthesis narrative streams through it as it arrives.
func (o *Orchestrator) Run(ctx context.Context, in AnalysisInput, sink providers.StreamSink) (*AnalysisResult, error) {
	norm, err := o.Score(ctx, in)
	if err != nil {
		return nil, err
	}
	return o.Synthesize(ctx, in, norm, sink)
}

// Score runs phase 1. Categories the first reply misses get exactly one
// targeted retry; whatever is still missing afterwards is filled by the
// normalization engine's mean rule. Zero usable categories after the retry
// is a PipelineError.
func (o *Orchestrator) Score(ctx context.Context, in AnalysisInput) (Normalized, error) {
	model := o.resolver.Resolve(in.Model, in.Plan)
	opts := providers.ChatOptions{MaxTokens: 1024, Temperature: providers.Temperature(0)}

	text, err := o.client.Chat(ctx, model, scoringSystemPrompt, buildScoringUserPrompt(in), opts)
	if err != nil {
		return Normalized{}, fmt.Errorf("scoring call: %w", err)
	}

	raw, _ := ParseCategoryJSON(text)
	if raw == nil {
		raw = make(RawCategoryMap)
	}

	if missing := missingCategories(raw); len(missing) > 0 {
		logger.InfoC("scoring", fmt.Sprintf("Retrying once for missing categories: %v", missing))
		retryText, retryErr := o.client.Chat(ctx, model, scoringSystemPrompt, buildScoringRetryPrompt(missing), opts)
		switch {
		case retryErr != nil && usableCount(raw) == 0:
			return Normalized{}, fmt.Errorf("scoring retry call: %w", retryErr)
		case retryErr != nil:
			logger.WarnC("scoring", fmt.Sprintf("Retry call failed, continuing with partial scores: %v", retryErr))
		default:
			if retryRaw, ok := ParseCategoryJSON(retryText); ok {
				for _, key := range missing {
					if rc, ok := retryRaw[key]; ok && usableCategory(rc) {
						raw[key] = rc
					}
				}
			}
		}
	}

	if usableCount(raw) == 0 {
		return Normalized{}, &PipelineError{Phase: PhaseScoring, Raw: truncateText(text, 200)}
	}

	norm := o.engine.Normalize(raw, in.WeightOverride)
	logger.InfoC("scoring", fmt.Sprintf("Locked level %d (%s) from %d scored categories", norm.Level, norm.LevelName, usableCount(raw)))
	return norm, nil
}

type insightsJSON struct {
	Projects string `json:"projects"`
	Language string `json:"language"`
	Activity string `json:"activity"`
}

type narrativeJSON struct {
	Summary         string       `json:"summary"`
	Recommendations []any        `json:"recommendations"`
	Insights        insightsJSON `json:"insights"`
}

// Synthesize runs phase 2 against already-locked scores. The result is
// recombined through the engine, which reproduces the same level.
func (o *Orchestrator) Synthesize(ctx context.Context, in AnalysisInput, norm Normalized, sink providers.StreamSink) (*AnalysisResult, error) {
	model := o.resolver.Resolve(in.Model, in.Plan)
	opts := providers.ChatOptions{MaxTokens: 2048}
	user := buildSynthesisUserPrompt(in, norm)

	var text string
	var err error
	if sink != nil {
		text, err = o.client.ChatStream(ctx, model, synthesisSystemPrompt, user, opts, sink)
	} else {
		text, err = o.client.Chat(ctx, model, synthesisSystemPrompt, user, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("synthesis call: %w", err)
	}

	var narrative narrativeJSON
	if !jsonutil.ExtractInto(text, &narrative) {
		return nil, &PipelineError{Phase: PhaseSynthesis, Raw: truncateText(text, 200), Scores: &norm}
	}

	summary := strings.TrimSpace(narrative.Summary)
	recommendations := coerceStrings(narrative.Recommendations)
	insights := Insights{
		Projects: strings.TrimSpace(narrative.Insights.Projects),
		Language: strings.TrimSpace(narrative.Insights.Language),
		Activity: strings.TrimSpace(narrative.Insights.Activity),
	}
	if summary == "" && len(recommendations) == 0 && insights == (Insights{}) {
		return nil, &PipelineError{Phase: PhaseSynthesis, Raw: truncateText(text, 200), Scores: &norm}
	}

	final := o.engine.Normalize(RawFromCategories(norm.Categories), in.WeightOverride)
	return &AnalysisResult{
		CategoryScores:  final.Categories,
		Level:           final.Level,
		LevelName:       final.LevelName,
		Summary:         summary,
		Recommendations: recommendations,
		Insights:        insights,
	}, nil
}

// usableCategory reports whether a raw category carries enough data to score:
// a valid top-level number, or two named sub-metrics to recompute from.
func usableCategory(rc RawCategory) bool {
	if validScore(rc.Score) {
		return true
	}
	named := 0
	for _, s := range rc.SubMetrics {
		if strings.TrimSpace(s.Name) != "" && validScore(s.Score) {
			named++
		}
	}
	return named >= 2
}

func usableCount(raw RawCategoryMap) int {
	n := 0
	for _, key := range CategoryKeys() {
		if rc, ok := raw[key]; ok && usableCategory(rc) {
			n++
		}
	}
	return n
}

func missingCategories(raw RawCategoryMap) []CategoryKey {
	var missing []CategoryKey
	for _, key := range CategoryKeys() {
		rc, ok := raw[key]
		if !ok || !usableCategory(rc) {
			missing = append(missing, key)
		}
	}
	return missing
}

func coerceStrings(items []any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

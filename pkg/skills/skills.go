// amicooked - developer skill assessment with a coaching agent
// License: MIT
// Copyright (c) 2026 amicooked contributors

// Package skills is the fixed registry of agent capabilities. Every skill
// is a function of the user's metrics and profile; the registry never
// grows at runtime, so an unknown name is a caller error, not a crash.
package skills

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Champion2005/amicooked/pkg/plans"
	"github.com/Champion2005/amicooked/pkg/providers"
	"github.com/Champion2005/amicooked/pkg/scoring"
)

// ErrUnknownSkill marks a request for a skill the registry does not carry.
// Callers check it with errors.Is and degrade gracefully.
var ErrUnknownSkill = errors.New("unknown skill")

// Registered skill names.
const (
	SkillAnalyzeProfile       = "analyzeProfile"
	SkillRecommendProjects    = "recommendProjects"
	SkillCompareProgress      = "compareProgress"
	SkillGenerateLearningPath = "generateLearningPath"
)

// Input bundles everything a skill run may need. Skills ignore fields they
// have no use for.
type Input struct {
	UID            string
	Plan           plans.ID
	Profile        scoring.Profile
	Metrics        map[string]any
	Prior          *scoring.AnalysisResult
	WeightOverride scoring.Weights
	Model          string
	Sink           providers.StreamSink
}

func (in Input) analysisInput() scoring.AnalysisInput {
	return scoring.AnalysisInput{
		Metrics:        in.Metrics,
		Profile:        in.Profile,
		Plan:           in.Plan,
		WeightOverride: in.WeightOverride,
		Model:          in.Model,
	}
}

// Output carries the result of one skill run; exactly one payload field is
// set, matching the skill that ran.
type Output struct {
	Skill    string                  `json:"skill"`
	Analysis *scoring.AnalysisResult `json:"analysis,omitempty"`
	Projects []Project               `json:"projects,omitempty"`
	Progress *ProgressReport         `json:"progress,omitempty"`
	Path     *LearningPath           `json:"path,omitempty"`
}

type skillFunc func(ctx context.Context, in Input) (*Output, error)

// Registry dispatches skill runs. The set of skills is fixed at
// construction.
type Registry struct {
	client   providers.Client
	orch     *scoring.Orchestrator
	resolver *scoring.ModelResolver
	skills   map[string]skillFunc
}

func NewRegistry(client providers.Client, orch *scoring.Orchestrator, resolver *scoring.ModelResolver) *Registry {
	r := &Registry{client: client, orch: orch, resolver: resolver}
	r.skills = map[string]skillFunc{
		SkillAnalyzeProfile:       r.analyzeProfile,
		SkillRecommendProjects:    r.recommendProjects,
		SkillCompareProgress:      r.compareProgress,
		SkillGenerateLearningPath: r.generateLearningPath,
	}
	return r
}

// Names lists the registered skills, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.skills))
	for name := range r.skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs one skill by name. An unknown name returns ErrUnknownSkill
// and a nil output.
func (r *Registry) Execute(ctx context.Context, name string, in Input) (*Output, error) {
	fn, ok := r.skills[name]
	if !ok {
		return nil, fmt.Errorf("skill %q: %w", name, ErrUnknownSkill)
	}
	return fn(ctx, in)
}

// analyzeProfile delegates to the two-phase scoring pipeline.
func (r *Registry) analyzeProfile(ctx context.Context, in Input) (*Output, error) {
	result, err := r.orch.Run(ctx, in.analysisInput(), in.Sink)
	if err != nil {
		return nil, err
	}
	return &Output{Skill: SkillAnalyzeProfile, Analysis: result}, nil
}

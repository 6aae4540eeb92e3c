// amicooked - developer skill assessment with a coaching agent
// License: MIT
//
// Copyright (c) 2026 amicooked contributors

// Package agent is the per-user conversational façade: it owns the
// short-term window, the loaded agent state, and the prompt assembly,
// and delegates scoring and skills to their pipelines.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Champion2005/amicooked/pkg/docstore"
	"github.com/Champion2005/amicooked/pkg/logger"
	"github.com/Champion2005/amicooked/pkg/memory"
	"github.com/Champion2005/amicooked/pkg/plans"
	"github.com/Champion2005/amicooked/pkg/providers"
	"github.com/Champion2005/amicooked/pkg/scoring"
	"github.com/Champion2005/amicooked/pkg/skills"
)

// Mode selects the agent's voice for a turn.
type Mode string

const (
	ModeCoach Mode = "coach"
	ModeRoast Mode = "roast"
)

// ParseMode maps arbitrary input onto a known mode, defaulting to coach.
func ParseMode(s string) Mode {
	if Mode(s) == ModeRoast {
		return ModeRoast
	}
	return ModeCoach
}

// Deps are the shared services an agent runs on.
type Deps struct {
	Client    providers.Client
	Orch      *scoring.Orchestrator
	Resolver  *scoring.ModelResolver
	Skills    *skills.Registry
	Memory    *memory.Store
	Extractor *memory.Extractor
	Docs      docstore.Store
}

// Config is the per-user session setup. MaxTokens and Temperature apply
// to conversational turns only; zero values fall back to built-in
// defaults.
type Config struct {
	UID             string
	Plan            plans.ID
	Profile         scoring.Profile
	Metrics         map[string]any
	WeightOverride  scoring.Weights
	Prior           *scoring.AnalysisResult
	ConversationRef string
	ToneDirective   string
	DisplayName     string
	MaxTokens       int
	Temperature     float64
}

// MemoryStatus reports the user's memory standing after an operation.
type MemoryStatus struct {
	Enabled  bool `json:"enabled"`
	Eligible bool `json:"eligible"`
	Items    int  `json:"items"`
	Cap      int  `json:"cap"`
}

// TurnResult is one completed conversational turn.
type TurnResult struct {
	Response     string
	MemoryStatus MemoryStatus
}

// resultDoc is the persisted shape of one finished analysis.
type resultDoc struct {
	ID        string                  `json:"id"`
	Result    *scoring.AnalysisResult `json:"result"`
	CreatedAt time.Time               `json:"createdAt"`
}

// chatDoc is the persisted shape of a conversation tail.
type chatDoc struct {
	Messages  []memory.ConversationMessage `json:"messages"`
	UpdatedAt time.Time                    `json:"updatedAt"`
}

// Agent is one user's session. Safe for concurrent turns, though turns
// serialize on the state mutex only for state reads and swaps.
type Agent struct {
	deps   Deps
	cfg    Config
	window *memory.Window

	mu      sync.Mutex
	state   *memory.AgentState
	prior   *scoring.AnalysisResult
	metrics map[string]any
	chatID  string
}

func New(deps Deps, cfg Config) *Agent {
	return &Agent{
		deps:    deps,
		cfg:     cfg,
		window:  memory.NewWindow(),
		prior:   cfg.Prior,
		metrics: cfg.Metrics,
	}
}

// Initialize loads persisted agent state, the latest analysis, and (when a
// conversation ref is set) the conversation tail. Missing or unreadable
// documents degrade to empty state; only store connectivity is fatal.
func (a *Agent) Initialize(ctx context.Context) error {
	state, err := a.deps.Memory.Load(ctx, a.cfg.UID)
	if err != nil {
		return fmt.Errorf("initialize agent: %w", err)
	}

	a.mu.Lock()
	a.state = state
	a.chatID = a.cfg.ConversationRef
	if a.chatID == "" {
		a.chatID = uuid.New().String()
	}
	a.mu.Unlock()

	if a.prior == nil {
		if doc := a.loadResult(ctx, "latest"); doc != nil {
			a.mu.Lock()
			a.prior = doc.Result
			a.mu.Unlock()
		}
	}

	a.mu.Lock()
	noMetrics := a.metrics == nil
	a.mu.Unlock()
	if noMetrics {
		if m := a.loadMetrics(ctx); m != nil {
			a.mu.Lock()
			a.metrics = m
			a.mu.Unlock()
		}
	}

	if a.cfg.ConversationRef != "" {
		a.restoreConversation(ctx, a.cfg.ConversationRef)
	}
	return nil
}

// SetMetrics replaces the session's metrics snapshot, e.g. after a fresh
// ingest lands. The caller persists the document; this updates what the
// next analysis sees.
func (a *Agent) SetMetrics(m map[string]any) {
	a.mu.Lock()
	a.metrics = m
	a.mu.Unlock()
}

func (a *Agent) loadResult(ctx context.Context, id string) *resultDoc {
	raw, err := a.deps.Docs.Get(ctx, docstore.ResultPath(a.cfg.UID, id))
	if err != nil || raw == nil {
		return nil
	}
	var doc resultDoc
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Result == nil {
		return nil
	}
	return &doc
}

func (a *Agent) loadMetrics(ctx context.Context) map[string]any {
	raw, err := a.deps.Docs.Get(ctx, docstore.MetricsPath(a.cfg.UID))
	if err != nil || raw == nil {
		return nil
	}
	var metrics map[string]any
	if err := json.Unmarshal(raw, &metrics); err != nil {
		logger.WarnC("agent", fmt.Sprintf("Unreadable metrics doc for %s: %v", a.cfg.UID, err))
		return nil
	}
	return metrics
}

func (a *Agent) restoreConversation(ctx context.Context, ref string) {
	raw, err := a.deps.Docs.Get(ctx, docstore.ChatPath(a.cfg.UID, ref))
	if err != nil || raw == nil {
		return
	}
	var doc chatDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		logger.WarnC("agent", fmt.Sprintf("Unreadable conversation %s for %s: %v", ref, a.cfg.UID, err))
		return
	}
	// The window enforces its own cap, so replaying everything keeps
	// exactly the most recent turns.
	for _, m := range doc.Messages {
		a.window.AppendMessage(m)
	}
}

// analysisInput snapshots the session into a scoring input.
func (a *Agent) analysisInput(model string) scoring.AnalysisInput {
	a.mu.Lock()
	metrics := a.metrics
	a.mu.Unlock()
	return scoring.AnalysisInput{
		Metrics:        metrics,
		Profile:        a.cfg.Profile,
		Plan:           a.cfg.Plan,
		WeightOverride: a.cfg.WeightOverride,
		Model:          model,
	}
}

func (a *Agent) skillInput(model string, sink providers.StreamSink) skills.Input {
	a.mu.Lock()
	prior := a.prior
	metrics := a.metrics
	a.mu.Unlock()
	return skills.Input{
		UID:            a.cfg.UID,
		Plan:           a.cfg.Plan,
		Profile:        a.cfg.Profile,
		Metrics:        metrics,
		Prior:          prior,
		WeightOverride: a.cfg.WeightOverride,
		Model:          model,
		Sink:           sink,
	}
}

// AnalyzeProfile runs the full two-phase assessment and persists the
// result. Persistence failures never fail the analysis.
func (a *Agent) AnalyzeProfile(ctx context.Context, sink providers.StreamSink, model string) (*scoring.AnalysisResult, error) {
	return a.AnalyzeProfileWith(ctx, sink, model, nil)
}

// AnalyzeProfileWith is AnalyzeProfile with a one-off weight override; nil
// keeps the session's configured weights.
func (a *Agent) AnalyzeProfileWith(ctx context.Context, sink providers.StreamSink, model string, override scoring.Weights) (*scoring.AnalysisResult, error) {
	in := a.analysisInput(model)
	if override != nil {
		in.WeightOverride = override
	}
	result, err := a.deps.Orch.Run(ctx, in, sink)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.prior = result
	a.mu.Unlock()

	doc := resultDoc{ID: uuid.New().String(), Result: result, CreatedAt: time.Now().UTC()}
	for _, id := range []string{doc.ID, "latest"} {
		if err := a.deps.Docs.Set(ctx, docstore.ResultPath(a.cfg.UID, id), doc); err != nil {
			logger.WarnC("agent", fmt.Sprintf("Result persist failed for %s: %v", a.cfg.UID, err))
			break
		}
	}
	return result, nil
}

// RecommendProjects suggests practice projects for the session's profile.
func (a *Agent) RecommendProjects(ctx context.Context, model string) ([]skills.Project, error) {
	out, err := a.deps.Skills.Execute(ctx, skills.SkillRecommendProjects, a.skillInput(model, nil))
	if err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// RunSkill executes any registered skill with the session's context.
// Unknown names surface skills.ErrUnknownSkill for the caller to handle.
func (a *Agent) RunSkill(ctx context.Context, name string, sink providers.StreamSink, model string) (*skills.Output, error) {
	out, err := a.deps.Skills.Execute(ctx, name, a.skillInput(model, sink))
	if err != nil {
		return nil, err
	}
	if out.Analysis != nil {
		a.mu.Lock()
		a.prior = out.Analysis
		a.mu.Unlock()
	}
	return out, nil
}

// AddMemory appends one item to long-term memory. Plan gating happens in
// the store; persistence failures are logged and the session continues.
func (a *Agent) AddMemory(ctx context.Context, itemType, content string) (MemoryStatus, error) {
	item := memory.NewItem(memory.ItemType(itemType), content)
	items, err := a.deps.Memory.AddItem(ctx, a.cfg.UID, a.cfg.Plan, item)
	if err != nil {
		logger.WarnC("agent", fmt.Sprintf("Memory write failed for %s: %v", a.cfg.UID, err))
		return a.MemoryStatus(), nil
	}
	a.mu.Lock()
	if a.state != nil {
		a.state.Memory = items
	}
	a.mu.Unlock()
	return a.MemoryStatus(), nil
}

// SetMemoryEnabled flips the extraction toggle.
func (a *Agent) SetMemoryEnabled(ctx context.Context, enabled bool) (MemoryStatus, error) {
	if err := a.deps.Memory.SetEnabled(ctx, a.cfg.UID, a.cfg.Plan, enabled); err != nil {
		logger.WarnC("agent", fmt.Sprintf("Memory toggle failed for %s: %v", a.cfg.UID, err))
		return a.MemoryStatus(), nil
	}
	a.mu.Lock()
	if a.state != nil {
		a.state.MemoryEnabled = enabled
	}
	a.mu.Unlock()
	return a.MemoryStatus(), nil
}

// SetIdentity stores a custom persona; the store enforces the plan gate.
func (a *Agent) SetIdentity(ctx context.Context, identity *memory.Identity) error {
	if err := a.deps.Memory.SetIdentity(ctx, a.cfg.UID, a.cfg.Plan, identity); err != nil {
		return err
	}
	a.mu.Lock()
	if a.state != nil && plans.Lookup(a.cfg.Plan).CustomIdentity {
		a.state.Identity = identity
	}
	a.mu.Unlock()
	return nil
}

// MemoryStatus reports the current memory standing.
func (a *Agent) MemoryStatus() MemoryStatus {
	caps := plans.Lookup(a.cfg.Plan)
	a.mu.Lock()
	defer a.mu.Unlock()
	status := MemoryStatus{
		Eligible: caps.MemoryPersistence,
		Cap:      caps.MemoryCap,
	}
	if a.state != nil {
		status.Enabled = a.state.MemoryEnabled
		status.Items = len(a.state.Memory)
	}
	return status
}

// Prior returns the most recent analysis this session has seen.
func (a *Agent) Prior() *scoring.AnalysisResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prior
}

// EndSession closes the conversation: the window is handed to the memory
// extractor (detached, never blocking) and the buffer resets. A fresh chat
// id starts the next conversation unless the session is pinned to a ref.
func (a *Agent) EndSession(ctx context.Context) {
	msgs := a.window.Messages()
	if len(msgs) > 0 {
		a.persistConversation(ctx)
		a.deps.Extractor.ProcessConversation(a.cfg.UID, a.cfg.Plan, msgs)
	}
	a.window.Reset()

	a.mu.Lock()
	if a.cfg.ConversationRef == "" {
		a.chatID = uuid.New().String()
	}
	a.mu.Unlock()
	logger.InfoC("agent", fmt.Sprintf("Session ended for %s (%d turns handed to extraction)", a.cfg.UID, len(msgs)))
}

// Wipe removes all persisted state for the user and resets the session.
func (a *Agent) Wipe(ctx context.Context) error {
	if err := a.deps.Memory.Wipe(ctx, a.cfg.UID); err != nil {
		return err
	}
	a.window.Reset()
	a.mu.Lock()
	a.state = &memory.AgentState{OwnerID: a.cfg.UID, MemoryEnabled: true}
	a.prior = nil
	a.mu.Unlock()
	return nil
}

func (a *Agent) persistConversation(ctx context.Context) {
	a.mu.Lock()
	chatID := a.chatID
	a.mu.Unlock()
	doc := chatDoc{Messages: a.window.Messages(), UpdatedAt: time.Now().UTC()}
	if err := a.deps.Docs.Set(ctx, docstore.ChatPath(a.cfg.UID, chatID), doc); err != nil {
		logger.WarnC("agent", fmt.Sprintf("Conversation persist failed for %s: %v", a.cfg.UID, err))
	}
}

// amicooked - developer skill assessment with a coaching agent
// License: MIT
// Copyright (c) 2026 amicooked contributors

// Package gateway hosts the per-user agent sessions and exposes them over
// the message bus, a REST API, and a websocket chat endpoint.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Champion2005/amicooked/pkg/agent"
	"github.com/Champion2005/amicooked/pkg/bus"
	"github.com/Champion2005/amicooked/pkg/docstore"
	"github.com/Champion2005/amicooked/pkg/logger"
	"github.com/Champion2005/amicooked/pkg/plans"
	"github.com/Champion2005/amicooked/pkg/scoring"
)

const commandTimeout = 10 * time.Minute

// userDoc is the persisted user profile consulted when a session spins up.
type userDoc struct {
	Plan        string `json:"plan"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Tone        string `json:"tone"`
}

type session struct {
	agent    *agent.Agent
	plan     plans.ID
	lastSeen time.Time
}

// Options tune session lifecycle and turn generation; zero values pick
// sane defaults.
type Options struct {
	DefaultPlan plans.ID
	IdleTimeout time.Duration
	MaxTokens   int
	Temperature float64
}

// Gateway owns the live sessions and routes bus traffic to them. One
// goroutine per inbound message; sessions serialize internally.
type Gateway struct {
	deps agent.Deps
	bus  *bus.MessageBus
	opts Options

	mu       sync.Mutex
	sessions map[string]*session
}

func New(deps agent.Deps, b *bus.MessageBus, opts Options) *Gateway {
	if opts.DefaultPlan == "" {
		opts.DefaultPlan = plans.Free
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	return &Gateway{
		deps:     deps,
		bus:      b,
		opts:     opts,
		sessions: make(map[string]*session),
	}
}

// Run consumes inbound bus messages until ctx ends.
func (g *Gateway) Run(ctx context.Context) {
	logger.InfoC("gateway", "Message loop started")
	for {
		msg, ok := g.bus.ConsumeInbound(ctx)
		if !ok {
			logger.InfoC("gateway", "Message loop stopped")
			return
		}
		go g.dispatch(ctx, msg)
	}
}

func (g *Gateway) dispatch(ctx context.Context, msg bus.InboundMessage) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	reply := g.handle(ctx, msg)
	if reply == "" {
		return
	}
	g.bus.PublishOutbound(bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: reply,
	})
}

// sessionUID derives the storage identity for a channel sender. Channel
// senders arrive as "id|username"; only the stable id part participates.
func sessionUID(msg bus.InboundMessage) string {
	id := msg.SenderID
	if idx := strings.Index(id, "|"); idx >= 0 {
		id = id[:idx]
	}
	return msg.Channel + ":" + id
}

func (g *Gateway) handle(ctx context.Context, msg bus.InboundMessage) string {
	uid := msg.SessionKey
	if uid == "" {
		uid = sessionUID(msg)
	}

	a, err := g.Session(ctx, uid, displayNameFrom(msg))
	if err != nil {
		logger.WarnC("gateway", fmt.Sprintf("Session %s: %v", uid, err))
		return "Something went wrong starting your session. Try again in a moment."
	}

	switch msg.Command {
	case "analyze":
		res, err := a.AnalyzeProfile(ctx, nil, "")
		if err != nil {
			return agent.FormatUserError(err)
		}
		return FormatResult(res)

	case "level":
		if prior := a.Prior(); prior != nil {
			return FormatResult(prior)
		}
		return "No assessment on file yet. Run /analyze first."

	case "memory":
		return g.handleMemory(ctx, a, msg.Content)

	case "reset":
		a.EndSession(ctx)
		return "Conversation cleared. Anything worth keeping is being filed away."

	case "":
		res, err := a.ProcessMessage(ctx, msg.Content, agent.ParseMode(msg.Mode), nil, "")
		if err != nil {
			logger.WarnC("gateway", fmt.Sprintf("Turn for %s: %v", uid, err))
			return agent.FormatUserError(err)
		}
		return res.Response

	default:
		return fmt.Sprintf("Unknown command %q.", msg.Command)
	}
}

func (g *Gateway) handleMemory(ctx context.Context, a *agent.Agent, arg string) string {
	switch strings.TrimSpace(arg) {
	case "", "status":
		return formatMemoryStatus(a.MemoryStatus())
	case "on":
		st, err := a.SetMemoryEnabled(ctx, true)
		if err != nil {
			return agent.FormatUserError(err)
		}
		return "Memory on.\n" + formatMemoryStatus(st)
	case "off":
		st, err := a.SetMemoryEnabled(ctx, false)
		if err != nil {
			return agent.FormatUserError(err)
		}
		return "Memory off.\n" + formatMemoryStatus(st)
	case "wipe":
		if err := a.Wipe(ctx); err != nil {
			return agent.FormatUserError(err)
		}
		return "Memory wiped."
	default:
		st, _ := a.AddMemory(ctx, "context", arg)
		if !st.Eligible {
			return "Your plan does not persist memory, so that note will not stick."
		}
		return fmt.Sprintf("Noted. %d of %d memories used.", st.Items, st.Cap)
	}
}

// Session returns the live agent for uid, building one from the stored
// user profile on first touch.
func (g *Gateway) Session(ctx context.Context, uid, displayName string) (*agent.Agent, error) {
	g.mu.Lock()
	if s, ok := g.sessions[uid]; ok {
		s.lastSeen = time.Now()
		g.mu.Unlock()
		return s.agent, nil
	}
	g.mu.Unlock()

	a, plan, err := g.buildSession(ctx, uid, displayName)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	// Another dispatch may have won the build race; keep the first.
	if s, ok := g.sessions[uid]; ok {
		s.lastSeen = time.Now()
		return s.agent, nil
	}
	g.sessions[uid] = &session{agent: a, plan: plan, lastSeen: time.Now()}
	logger.InfoC("gateway", fmt.Sprintf("Session started for %s (plan %s)", uid, plan))
	return a, nil
}

func (g *Gateway) buildSession(ctx context.Context, uid, displayName string) (*agent.Agent, plans.ID, error) {
	var profile userDoc
	raw, err := g.deps.Docs.Get(ctx, docstore.UserPath(uid))
	if err != nil {
		return nil, "", fmt.Errorf("load user %s: %w", uid, err)
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &profile); err != nil {
			logger.WarnC("gateway", fmt.Sprintf("User doc for %s unreadable, using defaults: %v", uid, err))
		}
	}

	plan := g.opts.DefaultPlan
	if profile.Plan != "" {
		plan = plans.ID(profile.Plan)
	}
	if displayName == "" {
		displayName = profile.DisplayName
	}

	a := agent.New(g.deps, agent.Config{
		UID:           uid,
		Plan:          plan,
		Profile:       scoring.Profile{Username: profile.Username, DisplayName: profile.DisplayName},
		ToneDirective: profile.Tone,
		DisplayName:   displayName,
		MaxTokens:     g.opts.MaxTokens,
		Temperature:   g.opts.Temperature,
	})
	if err := a.Initialize(ctx); err != nil {
		return nil, "", err
	}
	return a, plan, nil
}

// SessionCount reports live sessions.
func (g *Gateway) SessionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// CloseIdle ends and drops sessions idle past the configured timeout,
// returning how many were closed. Ending a session flushes its
// conversation into long-term memory.
func (g *Gateway) CloseIdle(ctx context.Context) int {
	cutoff := time.Now().Add(-g.opts.IdleTimeout)

	g.mu.Lock()
	var idle []*session
	for uid, s := range g.sessions {
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, s)
			delete(g.sessions, uid)
		}
	}
	g.mu.Unlock()

	for _, s := range idle {
		s.agent.EndSession(ctx)
	}
	return len(idle)
}

// TrimMemoryCaps re-applies plan memory caps across live sessions and
// returns the total number of evicted items. Caps shrink when a plan is
// downgraded between sessions, so stored state can exceed them.
func (g *Gateway) TrimMemoryCaps(ctx context.Context) int {
	g.mu.Lock()
	targets := make(map[string]plans.ID, len(g.sessions))
	for uid, s := range g.sessions {
		targets[uid] = s.plan
	}
	g.mu.Unlock()

	total := 0
	for uid, plan := range targets {
		dropped, err := g.deps.Memory.TrimToCap(ctx, uid, plan)
		if err != nil {
			logger.WarnC("gateway", fmt.Sprintf("Cap sweep for %s: %v", uid, err))
			continue
		}
		total += dropped
	}
	return total
}

// Shutdown ends every live session so pending conversations reach the
// extractor before the process exits.
func (g *Gateway) Shutdown(ctx context.Context) {
	g.mu.Lock()
	live := make([]*session, 0, len(g.sessions))
	for uid, s := range g.sessions {
		live = append(live, s)
		delete(g.sessions, uid)
	}
	g.mu.Unlock()

	for _, s := range live {
		s.agent.EndSession(ctx)
	}
	if len(live) > 0 {
		logger.InfoC("gateway", fmt.Sprintf("Closed %d sessions on shutdown", len(live)))
	}
}

func displayNameFrom(msg bus.InboundMessage) string {
	if name := msg.Metadata["first_name"]; name != "" {
		return name
	}
	return msg.Metadata["username"]
}

// FormatResult renders an assessment for chat surfaces.
func FormatResult(res *scoring.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Level %d of 10 - %s\n\n", res.Level, res.LevelName)
	b.WriteString(scoring.FormatCategoryScores(res.CategoryScores))
	if res.Summary != "" {
		b.WriteString("\n\n")
		b.WriteString(res.Summary)
	}
	if len(res.Recommendations) > 0 {
		b.WriteString("\n\nNext moves:")
		for _, rec := range res.Recommendations {
			b.WriteString("\n- ")
			b.WriteString(rec)
		}
	}
	return b.String()
}

func formatMemoryStatus(st agent.MemoryStatus) string {
	if !st.Eligible {
		return "Memory persistence needs the pro plan or above."
	}
	state := "on"
	if !st.Enabled {
		state = "off"
	}
	return fmt.Sprintf("Memory is %s. %d of %d memories used.", state, st.Items, st.Cap)
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Champion2005/amicooked/pkg/logger"
	"github.com/Champion2005/amicooked/pkg/memory"
	"github.com/Champion2005/amicooked/pkg/plans"
	"github.com/Champion2005/amicooked/pkg/providers"
	"github.com/Champion2005/amicooked/pkg/scoring"
	"github.com/Champion2005/amicooked/pkg/skills"
)

// turnTimeout bounds one conversational turn end to end.
const turnTimeout = 5 * time.Minute

// turnMaxTokens caps reply length when the session config leaves it unset.
const turnMaxTokens = 2048

const coachSystemPrompt = `You are the coaching voice of amicooked, a developer skill assessment service. You help a developer get less cooked: direct, specific, encouraging. Kitchen metaphors are the house style. Keep replies short enough to read comfortably in a chat client.`

const roastSystemPrompt = `You are the roast voice of amicooked, a developer skill assessment service. Roast the developer's habits with wit, never cruelty. Kitchen metaphors are the house style. Always land one actionable tip at the end.`

var stockPersonas = map[Mode]string{
	ModeCoach: coachSystemPrompt,
	ModeRoast: roastSystemPrompt,
}

// ProcessMessage runs one conversational turn. When sink is non-nil the
// reply streams through it; the returned response is the full text either
// way. Failed turns leave the window untouched.
func (a *Agent) ProcessMessage(ctx context.Context, text string, mode Mode, sink providers.StreamSink, model string) (*TurnResult, error) {
	return a.processTurn(ctx, text, mode, nil, sink, model)
}

// ProcessProjectMessage runs a turn scoped to one suggested project, so
// the user can dig into a recommendation.
func (a *Agent) ProcessProjectMessage(ctx context.Context, text string, project skills.Project, sink providers.StreamSink, model string) (*TurnResult, error) {
	return a.processTurn(ctx, text, ModeCoach, &project, sink, model)
}

func (a *Agent) processTurn(ctx context.Context, text string, mode Mode, project *skills.Project, sink providers.StreamSink, model string) (*TurnResult, error) {
	ctx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	system := a.systemPrompt(mode)
	user := a.userPrompt(text, project)
	resolved := a.deps.Resolver.Resolve(model, a.cfg.Plan)
	opts := a.turnOptions()

	start := time.Now()
	var reply string
	var err error
	if sink != nil {
		reply, err = a.deps.Client.ChatStream(ctx, resolved, system, user, opts, sink)
	} else {
		reply, err = a.deps.Client.Chat(ctx, resolved, system, user, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("turn failed: %w", err)
	}
	logger.DebugC("agent", fmt.Sprintf("Turn for %s completed in %s (%d chars)", a.cfg.UID, time.Since(start), len(reply)))

	a.window.Append(memory.RoleUser, text)
	a.window.Append(memory.RoleAssistant, reply)
	a.persistConversation(ctx)

	return &TurnResult{Response: reply, MemoryStatus: a.MemoryStatus()}, nil
}

func (a *Agent) turnOptions() providers.ChatOptions {
	opts := providers.ChatOptions{MaxTokens: turnMaxTokens}
	if a.cfg.MaxTokens > 0 {
		opts.MaxTokens = a.cfg.MaxTokens
	}
	if a.cfg.Temperature > 0 {
		opts.Temperature = providers.Temperature(a.cfg.Temperature)
	}
	return opts
}

// systemPrompt picks the voice: custom persona text wins outright, a stored
// stock persona overrides the per-turn mode, then name and tone attach.
func (a *Agent) systemPrompt(mode Mode) string {
	a.mu.Lock()
	var identity *memory.Identity
	if a.state != nil {
		identity = a.state.Identity
	}
	a.mu.Unlock()

	base := stockPersonas[ParseMode(string(mode))]
	if identity != nil {
		if identity.CustomPersonality != "" {
			base = identity.CustomPersonality
		} else if identity.Personality != "" {
			base = stockPersonas[ParseMode(identity.Personality)]
		}
		if identity.Name != "" {
			base += "\nYour name is " + identity.Name + "."
		}
	}
	if a.cfg.ToneDirective != "" {
		base += "\n" + a.cfg.ToneDirective
	}
	return base
}

// userPrompt assembles the turn context in a fixed section order so the
// same session state always produces the same prompt.
func (a *Agent) userPrompt(text string, project *skills.Project) string {
	a.mu.Lock()
	state := a.state
	prior := a.prior
	a.mu.Unlock()

	pc := scoring.NewPromptContext()
	if name := a.displayName(); name != "" {
		pc.Add("User", name)
	}
	if state != nil && state.MemoryEnabled && plans.Lookup(a.cfg.Plan).MemoryPersistence {
		pc.Add("What you remember about this user", memory.RenderItems(state.Memory))
	}
	if prior != nil {
		pc.Add("Latest assessment", fmt.Sprintf("Level %d of 10, %s.\n%s",
			prior.Level, prior.LevelName, scoring.FormatCategoryScores(prior.CategoryScores)))
	}
	if project != nil {
		pc.Add("Project under discussion", formatProject(*project))
	}
	pc.Add("Conversation so far", a.window.FormattedHistory())
	pc.Add("Message", text)
	return pc.Render()
}

func (a *Agent) displayName() string {
	if a.cfg.DisplayName != "" {
		return a.cfg.DisplayName
	}
	if a.cfg.Profile.DisplayName != "" {
		return a.cfg.Profile.DisplayName
	}
	return a.cfg.Profile.Username
}

func formatProject(p skills.Project) string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Difficulty != "" {
		fmt.Fprintf(&b, " (%s)", p.Difficulty)
	}
	if p.Description != "" {
		b.WriteString("\n")
		b.WriteString(p.Description)
	}
	if len(p.Skills) > 0 {
		b.WriteString("\nSkills: ")
		b.WriteString(strings.Join(p.Skills, ", "))
	}
	if p.Reason != "" {
		b.WriteString("\nWhy: ")
		b.WriteString(p.Reason)
	}
	return b.String()
}

// FormatUserError turns pipeline errors into something a chat user can
// act on. Typed checks first, then the usual transport suspects.
func FormatUserError(err error) string {
	switch {
	case providers.IsRateLimitError(err):
		return "The model is rate limited right now. Give it a minute and try again."
	case scoring.IsScoringFailed(err):
		return "The scorer did not produce usable numbers for your profile. Try the analysis again."
	case scoring.IsSynthesisFailed(err):
		return "Your scores are locked in, but the write-up failed. Run the analysis again to retry the narrative."
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "timeout"):
		return "That took too long and timed out. Try again, or ask something smaller."
	}
	msg := err.Error()
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return "Something went wrong: " + msg
}

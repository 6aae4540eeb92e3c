// amicooked - developer skill assessment with a coaching agent
// License: MIT
// Copyright (c) 2026 amicooked contributors

package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Champion2005/amicooked/pkg/jsonutil"
	"github.com/Champion2005/amicooked/pkg/logger"
	"github.com/Champion2005/amicooked/pkg/plans"
	"github.com/Champion2005/amicooked/pkg/providers"
)

const extractTimeout = 2 * time.Minute

const extractPrompt = `You distill a coaching conversation into durable notes about the user.

RULES:
- goals: concrete goals the user stated ("wants to learn Rust"), not guesses
- insights: observations about how the user works or what they struggle with
- summary: one or two sentences covering what this session was about
- Omit pleasantries and anything you are not confident about
- Empty arrays and an empty summary are fine if nothing qualifies

RESPOND WITH ONLY A JSON OBJECT:
{"goals": ["..."], "insights": ["..."], "summary": "..."}`

type extractionJSON struct {
	Goals    []string `json:"goals"`
	Insights []string `json:"insights"`
	Summary  string   `json:"summary"`
}

// Extractor distills finished conversations into long-term memory. It is
// fire-and-forget: launches never block a caller and every failure inside
// is logged and swallowed.
type Extractor struct {
	client   providers.Client
	store    *Store
	model    string
	inflight sync.Map
}

func NewExtractor(client providers.Client, store *Store, model string) *Extractor {
	return &Extractor{client: client, store: store, model: model}
}

// ProcessConversation launches extraction for a finished conversation and
// returns immediately. It is a no-op when the plan lacks persistence, the
// conversation is empty, or an extraction for this user is already running.
func (e *Extractor) ProcessConversation(uid string, plan plans.ID, msgs []ConversationMessage) {
	if !plans.Lookup(plan).MemoryPersistence || len(msgs) == 0 {
		return
	}
	if _, loaded := e.inflight.LoadOrStore(uid, struct{}{}); loaded {
		logger.DebugC("memory", fmt.Sprintf("Extraction already running for %s, skipping", uid))
		return
	}
	go func() {
		defer e.inflight.Delete(uid)
		ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
		defer cancel()
		if err := e.extract(ctx, uid, plan, msgs); err != nil {
			logger.WarnC("memory", fmt.Sprintf("Extraction failed for %s: %v", uid, err))
		}
	}()
}

// extract is the synchronous body of an extraction run.
func (e *Extractor) extract(ctx context.Context, uid string, plan plans.ID, msgs []ConversationMessage) error {
	state, err := e.store.Load(ctx, uid)
	if err != nil {
		return err
	}
	if !state.MemoryEnabled {
		logger.DebugC("memory", fmt.Sprintf("Memory disabled for %s, skipping extraction", uid))
		return nil
	}

	text, err := e.client.Chat(ctx, e.model, extractPrompt, formatConversation(msgs), providers.ChatOptions{
		MaxTokens:   1024,
		Temperature: providers.Temperature(0),
	})
	if err != nil {
		return fmt.Errorf("extraction chat: %w", err)
	}

	var out extractionJSON
	if !jsonutil.ExtractInto(text, &out) {
		return fmt.Errorf("no JSON in extraction response")
	}

	items := make([]Item, 0, len(out.Goals)+len(out.Insights)+1)
	for _, g := range out.Goals {
		if g = strings.TrimSpace(g); g != "" {
			items = append(items, NewItem(TypeGoal, g))
		}
	}
	for _, in := range out.Insights {
		if in = strings.TrimSpace(in); in != "" {
			items = append(items, NewItem(TypeInsight, in))
		}
	}
	if s := strings.TrimSpace(out.Summary); s != "" {
		items = append(items, NewItem(TypeSummary, s))
	}
	if len(items) == 0 {
		logger.DebugC("memory", fmt.Sprintf("Nothing worth keeping for %s", uid))
		return nil
	}

	if _, err := e.store.AddItems(ctx, uid, plan, items...); err != nil {
		return err
	}
	logger.InfoC("memory", fmt.Sprintf("Extracted %d memory items for %s", len(items), uid))
	return nil
}

func formatConversation(msgs []ConversationMessage) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		label := "User"
		if m.Role == RoleAssistant {
			label = "Assistant"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

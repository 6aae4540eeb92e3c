package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Champion2005/amicooked/pkg/docstore"
	"github.com/Champion2005/amicooked/pkg/memory"
	"github.com/Champion2005/amicooked/pkg/plans"
	"github.com/Champion2005/amicooked/pkg/providers"
	"github.com/Champion2005/amicooked/pkg/scoring"
	"github.com/Champion2005/amicooked/pkg/skills"
)

type fakeCall struct {
	system  string
	user    string
	streamy bool
}

type fakeClient struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   []fakeCall
}

func (f *fakeClient) next(system, user string, streamy bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, fakeCall{system: system, user: user, streamy: streamy})
	var reply string
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return reply, err
}

func (f *fakeClient) Chat(ctx context.Context, model, system, user string, opts providers.ChatOptions) (string, error) {
	return f.next(system, user, false)
}

func (f *fakeClient) ChatStream(ctx context.Context, model, system, user string, opts providers.ChatOptions, sink providers.StreamSink) (string, error) {
	text, err := f.next(system, user, true)
	if err == nil && sink != nil {
		half := len(text) / 2
		sink(text[:half])
		sink(text[half:])
	}
	return text, err
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) call(i int) fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

const scoresReply = `{"activity": 80, "skillSignals": 70, "growth": 60, "collaboration": 50}`
const narrativeReply = `{"summary": "warming up", "recommendations": ["write tests"], "insights": {"projects": "p", "language": "l", "activity": "a"}}`

func newTestAgent(t *testing.T, plan plans.ID, client *fakeClient) (*Agent, docstore.Store) {
	t.Helper()
	docs, err := docstore.Open(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { docs.Close() })

	resolver := scoring.NewModelResolver("basic-model", "standard-model", "premium-model")
	orch := scoring.NewOrchestrator(client, scoring.NewEngine(), resolver)
	memStore := memory.NewStore(docs)
	deps := Deps{
		Client:    client,
		Orch:      orch,
		Resolver:  resolver,
		Skills:    skills.NewRegistry(client, orch, resolver),
		Memory:    memStore,
		Extractor: memory.NewExtractor(client, memStore, "extract-model"),
		Docs:      docs,
	}
	a := New(deps, Config{
		UID:     "user-1",
		Plan:    plan,
		Profile: scoring.Profile{Username: "octocat"},
		Metrics: map[string]any{"commits_last_year": 847.0},
	})
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return a, docs
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"coach", ModeCoach},
		{"roast", ModeRoast},
		{"", ModeCoach},
		{"chef", ModeCoach},
	}
	for _, tt := range tests {
		if got := ParseMode(tt.in); got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProcessMessageAppendsAndPersists(t *testing.T) {
	client := &fakeClient{replies: []string{"you are mildly cooked"}}
	a, docs := newTestAgent(t, plans.Pro, client)

	res, err := a.ProcessMessage(context.Background(), "am i cooked?", ModeCoach, nil, "")
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if res.Response != "you are mildly cooked" {
		t.Errorf("response = %q", res.Response)
	}
	msgs := a.window.Messages()
	if len(msgs) != 2 {
		t.Fatalf("window has %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != memory.RoleUser || msgs[1].Role != memory.RoleAssistant {
		t.Errorf("window order = %q then %q", msgs[0].Role, msgs[1].Role)
	}

	a.mu.Lock()
	chatID := a.chatID
	a.mu.Unlock()
	raw, err := docs.Get(context.Background(), docstore.ChatPath("user-1", chatID))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if raw == nil {
		t.Fatal("conversation not persisted")
	}
	if !strings.Contains(string(raw), "am i cooked?") {
		t.Errorf("persisted conversation missing the turn: %s", raw)
	}
}

func TestProcessMessageFailureLeavesWindowUntouched(t *testing.T) {
	client := &fakeClient{errs: []error{fmt.Errorf("network down")}}
	a, _ := newTestAgent(t, plans.Pro, client)

	if _, err := a.ProcessMessage(context.Background(), "hello", ModeCoach, nil, ""); err == nil {
		t.Fatal("ProcessMessage() should propagate transport errors")
	}
	if a.window.Len() != 0 {
		t.Errorf("failed turn recorded %d messages", a.window.Len())
	}
}

func TestProcessMessageStreams(t *testing.T) {
	client := &fakeClient{replies: []string{"streamed verdict"}}
	a, _ := newTestAgent(t, plans.Pro, client)

	var got []string
	res, err := a.ProcessMessage(context.Background(), "hi", ModeCoach, func(delta string) {
		got = append(got, delta)
	}, "")
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if !client.call(0).streamy {
		t.Error("sink present but non-streaming call made")
	}
	if strings.Join(got, "") != res.Response {
		t.Errorf("streamed %q, response %q", strings.Join(got, ""), res.Response)
	}
}

func TestSystemPromptVoices(t *testing.T) {
	client := &fakeClient{replies: []string{"r1", "r2", "r3"}}
	a, _ := newTestAgent(t, plans.Max, client)

	if _, err := a.ProcessMessage(context.Background(), "hi", ModeRoast, nil, ""); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if !strings.Contains(client.call(0).system, "roast voice") {
		t.Errorf("roast mode got system prompt %q", client.call(0).system)
	}

	if err := a.SetIdentity(context.Background(), &memory.Identity{Name: "Chef", CustomPersonality: "You are Chef, a grumpy kitchen mentor."}); err != nil {
		t.Fatalf("SetIdentity() error = %v", err)
	}
	if _, err := a.ProcessMessage(context.Background(), "hi again", ModeCoach, nil, ""); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	sys := client.call(1).system
	if !strings.HasPrefix(sys, "You are Chef, a grumpy kitchen mentor.") {
		t.Errorf("custom persona not used: %q", sys)
	}
	if !strings.Contains(sys, "Your name is Chef.") {
		t.Errorf("identity name missing: %q", sys)
	}
}

func TestUserPromptMemoryGating(t *testing.T) {
	client := &fakeClient{replies: []string{"r1", "r2"}}
	a, _ := newTestAgent(t, plans.Pro, client)

	if _, err := a.AddMemory(context.Background(), "goal", "learn Rust"); err != nil {
		t.Fatalf("AddMemory() error = %v", err)
	}
	if _, err := a.ProcessMessage(context.Background(), "hi", ModeCoach, nil, ""); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if !strings.Contains(client.call(0).user, "learn Rust") {
		t.Errorf("memory block missing from prompt:\n%s", client.call(0).user)
	}

	free, _ := newTestAgent(t, plans.Free, &fakeClient{replies: []string{"r"}})
	freeClient := free.deps.Client.(*fakeClient)
	if _, err := free.ProcessMessage(context.Background(), "hi", ModeCoach, nil, ""); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if strings.Contains(freeClient.call(0).user, "What you remember") {
		t.Error("memory block rendered for an ineligible plan")
	}
}

func TestAnalyzeProfilePersistsAndSetsPrior(t *testing.T) {
	client := &fakeClient{replies: []string{scoresReply, narrativeReply}}
	a, docs := newTestAgent(t, plans.Pro, client)

	result, err := a.AnalyzeProfile(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("AnalyzeProfile() error = %v", err)
	}
	if result.Level != 7 || result.LevelName != scoring.LevelToasted {
		t.Errorf("level = %d %q, want 7 Toasted", result.Level, result.LevelName)
	}
	if a.Prior() == nil {
		t.Error("prior not cached")
	}
	raw, err := docs.Get(context.Background(), docstore.ResultPath("user-1", "latest"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if raw == nil {
		t.Fatal("latest result not persisted")
	}
	if !strings.Contains(string(raw), "Toasted") {
		t.Errorf("persisted result missing verdict: %s", raw)
	}
}

func TestInitializeRestoresConversationTail(t *testing.T) {
	client := &fakeClient{}
	docs, err := docstore.Open(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer docs.Close()

	var msgs []memory.ConversationMessage
	for i := 0; i < memory.WindowCap+4; i++ {
		msgs = append(msgs, memory.ConversationMessage{
			Role: memory.RoleUser, Content: fmt.Sprintf("old-%d", i), Timestamp: time.Now().UTC(),
		})
	}
	if err := docs.Set(context.Background(), docstore.ChatPath("user-1", "chat-7"), chatDoc{Messages: msgs, UpdatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	resolver := scoring.NewModelResolver("basic-model", "", "")
	orch := scoring.NewOrchestrator(client, scoring.NewEngine(), resolver)
	memStore := memory.NewStore(docs)
	a := New(Deps{
		Client: client, Orch: orch, Resolver: resolver,
		Skills: skills.NewRegistry(client, orch, resolver),
		Memory: memStore, Extractor: memory.NewExtractor(client, memStore, "m"),
		Docs: docs,
	}, Config{UID: "user-1", Plan: plans.Pro, ConversationRef: "chat-7"})
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if got := a.window.Len(); got != memory.WindowCap {
		t.Fatalf("restored %d messages, want %d", got, memory.WindowCap)
	}
	if a.window.Messages()[0].Content != "old-4" {
		t.Errorf("oldest restored = %q, want old-4", a.window.Messages()[0].Content)
	}
}

func TestAddMemoryStatusByPlan(t *testing.T) {
	a, _ := newTestAgent(t, plans.Free, &fakeClient{})
	status, err := a.AddMemory(context.Background(), "goal", "学 Go")
	if err != nil {
		t.Fatalf("AddMemory() error = %v", err)
	}
	if status.Eligible {
		t.Error("free plan reported eligible")
	}
	if status.Items != 0 {
		t.Errorf("free plan stored %d items", status.Items)
	}

	b, _ := newTestAgent(t, plans.Pro, &fakeClient{})
	status, err = b.AddMemory(context.Background(), "goal", "learn Go")
	if err != nil {
		t.Fatalf("AddMemory() error = %v", err)
	}
	if !status.Eligible || !status.Enabled {
		t.Errorf("pro status = %+v, want eligible and enabled", status)
	}
	if status.Items != 1 || status.Cap != plans.Lookup(plans.Pro).MemoryCap {
		t.Errorf("status = %+v", status)
	}
}

func TestEndSessionExtractsAndResets(t *testing.T) {
	client := &fakeClient{replies: []string{
		"nice chat",
		`{"goals": ["learn Rust"], "insights": [], "summary": "intro chat"}`,
	}}
	a, _ := newTestAgent(t, plans.Pro, client)

	if _, err := a.ProcessMessage(context.Background(), "I want to learn Rust", ModeCoach, nil, ""); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	a.EndSession(context.Background())
	if a.window.Len() != 0 {
		t.Errorf("window not reset, has %d messages", a.window.Len())
	}

	// Extraction is detached; poll until the items land.
	deadline := time.Now().Add(5 * time.Second)
	for {
		state, err := a.deps.Memory.Load(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(state.Memory) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("extraction never landed, memory has %d items", len(state.Memory))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunSkillUnknownName(t *testing.T) {
	a, _ := newTestAgent(t, plans.Pro, &fakeClient{})
	_, err := a.RunSkill(context.Background(), "makeCoffee", nil, "")
	if !errors.Is(err, skills.ErrUnknownSkill) {
		t.Fatalf("err = %v, want ErrUnknownSkill", err)
	}
}

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limit", &providers.RateLimitError{StatusCode: 429, Body: "slow down"}, "rate limited"},
		{"scoring", &scoring.PipelineError{Phase: scoring.PhaseScoring}, "usable numbers"},
		{"synthesis", &scoring.PipelineError{Phase: scoring.PhaseSynthesis}, "scores are locked in"},
		{"timeout", context.DeadlineExceeded, "timed out"},
		{"other", fmt.Errorf("weird failure"), "weird failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatUserError(tt.err)
			if !strings.Contains(got, tt.want) {
				t.Errorf("FormatUserError(%v) = %q, want substring %q", tt.err, got, tt.want)
			}
		})
	}
}

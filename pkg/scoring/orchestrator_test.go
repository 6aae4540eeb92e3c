package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Champion2005/amicooked/pkg/providers"
)

const fullScoresJSON = `{"categoryScores":{
	"activity":{"score":80,"notes":"daily pushes"},
	"skillSignals":{"score":70},
	"growth":{"score":60},
	"collaboration":{"score":50}}}`

const narrativeReply = `{"summary":"Toasted, not burnt.","recommendations":["Ship a service","Review more PRs"],"insights":{"projects":"solid","language":"Go heavy","activity":"steady"}}`

// fakeClient scripts one reply per call and records every request.
type fakeClient struct {
	replies []string
	errs    []error
	calls   []fakeCall
}

type fakeCall struct {
	system  string
	user    string
	streamy bool
}

func (f *fakeClient) next(system, user string, streamy bool) (string, error) {
	i := len(f.calls)
	f.calls = append(f.calls, fakeCall{system: system, user: user, streamy: streamy})
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i >= len(f.replies) {
		return "", errors.New("fakeClient: no scripted reply")
	}
	return f.replies[i], nil
}

func (f *fakeClient) Chat(_ context.Context, _, system, user string, _ providers.ChatOptions) (string, error) {
	return f.next(system, user, false)
}

func (f *fakeClient) ChatStream(_ context.Context, _, system, user string, _ providers.ChatOptions, sink providers.StreamSink) (string, error) {
	text, err := f.next(system, user, true)
	if err != nil {
		return "", err
	}
	// Deliver in two fragments to exercise arrival-order concatenation.
	half := len(text) / 2
	if sink != nil {
		if half > 0 {
			sink(text[:half])
		}
		sink(text[half:])
	}
	return text, nil
}

func newTestOrchestrator(f *fakeClient) *Orchestrator {
	return NewOrchestrator(f, NewEngine(), NewModelResolver("basic-model", "standard-model", "premium-model"))
}

func testInput() AnalysisInput {
	return AnalysisInput{
		Metrics: map[string]any{"commits": 412},
		Profile: Profile{Username: "gopher"},
		Plan:    "pro",
	}
}

func TestRunHappyPath(t *testing.T) {
	fake := &fakeClient{replies: []string{fullScoresJSON, narrativeReply}}
	o := newTestOrchestrator(fake)

	got, err := o.Run(context.Background(), testInput(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got.Level != 7 || got.LevelName != LevelToasted {
		t.Errorf("level = %d (%s), want 7 (Toasted)", got.Level, got.LevelName)
	}
	if got.Summary != "Toasted, not burnt." {
		t.Errorf("summary = %q", got.Summary)
	}
	if len(got.Recommendations) != 2 {
		t.Errorf("recommendations = %v", got.Recommendations)
	}
	if got.Insights.Language != "Go heavy" {
		t.Errorf("insights = %+v", got.Insights)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(fake.calls))
	}
	// Phase 2 sees the locked verdict, not a request to derive one.
	if !strings.Contains(fake.calls[1].user, "Level 7 of 10, Toasted") {
		t.Errorf("synthesis prompt missing locked verdict:\n%s", fake.calls[1].user)
	}
}

func TestScoreRetriesMissingCategoriesOnce(t *testing.T) {
	threeOfFour := `{"categoryScores":{"activity":{"score":80},"skillSignals":{"score":80},"growth":{"score":80}}}`
	fake := &fakeClient{replies: []string{threeOfFour, `{"collaboration": 40}`}}
	o := newTestOrchestrator(fake)

	norm, err := o.Score(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("calls = %d, want 2 (one retry)", len(fake.calls))
	}
	retryPrompt := fake.calls[1].user
	if !strings.Contains(retryPrompt, "collaboration") {
		t.Errorf("retry prompt does not name the missing category:\n%s", retryPrompt)
	}
	if strings.Contains(retryPrompt, "activity,") {
		t.Errorf("retry prompt asks for categories that were present:\n%s", retryPrompt)
	}
	if s := norm.Categories[CategoryCollaboration].Score; s != 40 {
		t.Errorf("retried category score = %d, want 40", s)
	}
}

func TestScoreRetryFailureMeanFills(t *testing.T) {
	threeOfFour := `{"activity": 80, "skillSignals": 80, "growth": 80}`
	fake := &fakeClient{replies: []string{threeOfFour, "still not json"}}
	o := newTestOrchestrator(fake)

	norm, err := o.Score(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("calls = %d, want exactly 2 (never more than one retry)", len(fake.calls))
	}
	if s := norm.Categories[CategoryCollaboration].Score; s != 80 {
		t.Errorf("mean fill = %d, want 80", s)
	}
}

func TestScoreFailsTypedAfterRetry(t *testing.T) {
	fake := &fakeClient{replies: []string{"no json here", "none here either"}}
	o := newTestOrchestrator(fake)

	_, err := o.Score(context.Background(), testInput())
	if err == nil {
		t.Fatal("want error when nothing is scoreable")
	}
	if !IsScoringFailed(err) {
		t.Errorf("error %v is not typed as scoring failure", err)
	}
	if IsSynthesisFailed(err) {
		t.Error("scoring failure must not read as synthesis failure")
	}
	if len(fake.calls) != 2 {
		t.Errorf("calls = %d, want 2", len(fake.calls))
	}
}

func TestSynthesisFailureKeepsScores(t *testing.T) {
	fake := &fakeClient{replies: []string{fullScoresJSON, "narrative exploded", narrativeReply}}
	o := newTestOrchestrator(fake)

	_, err := o.Run(context.Background(), testInput(), nil)
	if !IsSynthesisFailed(err) {
		t.Fatalf("err = %v, want synthesis failure", err)
	}

	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Scores == nil {
		t.Fatal("synthesis failure must carry the locked scores")
	}

	// Caller retries phase 2 alone with the carried scores; no re-scoring call.
	got, err := o.Synthesize(context.Background(), testInput(), *pe.Scores, nil)
	if err != nil {
		t.Fatalf("Synthesize retry failed: %v", err)
	}
	if got.Level != 7 {
		t.Errorf("level = %d, want 7 from carried scores", got.Level)
	}
	if len(fake.calls) != 3 {
		t.Errorf("calls = %d, want 3 (no extra scoring call)", len(fake.calls))
	}
}

func TestRunStreamsSynthesis(t *testing.T) {
	fake := &fakeClient{replies: []string{fullScoresJSON, narrativeReply}}
	o := newTestOrchestrator(fake)

	var streamed strings.Builder
	got, err := o.Run(context.Background(), testInput(), func(d string) {
		streamed.WriteString(d)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if streamed.String() != narrativeReply {
		t.Errorf("streamed = %q, want the full narrative text", streamed.String())
	}
	if !fake.calls[1].streamy {
		t.Error("synthesis should use the streaming path when a sink is given")
	}
	if fake.calls[0].streamy {
		t.Error("scoring must not stream")
	}
	if got.Summary != "Toasted, not burnt." {
		t.Errorf("summary = %q", got.Summary)
	}
}

func TestTransportErrorsPropagateUntyped(t *testing.T) {
	boom := errors.New("connection refused")
	fake := &fakeClient{errs: []error{boom}}
	o := newTestOrchestrator(fake)

	_, err := o.Run(context.Background(), testInput(), nil)
	if err == nil {
		t.Fatal("want transport error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("transport cause lost: %v", err)
	}
	if IsScoringFailed(err) || IsSynthesisFailed(err) {
		t.Error("transport errors must not be typed as extraction failures")
	}
	if len(fake.calls) != 1 {
		t.Errorf("calls = %d, want 1 (no retry on transport failure)", len(fake.calls))
	}
}

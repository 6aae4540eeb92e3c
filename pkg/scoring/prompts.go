package scoring

import (
	"fmt"
	"strings"

	"github.com/Champion2005/amicooked/pkg/plans"
)

// PromptSection is one titled block of a rendered prompt.
type PromptSection struct {
	Title string
	Body  string
}

// PromptContext assembles a prompt from ordered sections, so callers share
// one presentation and tests can assert on structure instead of exact text.
type PromptContext struct {
	sections []PromptSection
}

func NewPromptContext() *PromptContext {
	return &PromptContext{}
}

// Add appends a section. Sections with an empty body are skipped.
func (p *PromptContext) Add(title, body string) *PromptContext {
	body = strings.TrimRight(body, "\n")
	if body == "" {
		return p
	}
	p.sections = append(p.sections, PromptSection{Title: title, Body: body})
	return p
}

func (p *PromptContext) Sections() []PromptSection {
	out := make([]PromptSection, len(p.sections))
	copy(out, p.sections)
	return out
}

func (p *PromptContext) Render() string {
	var b strings.Builder
	for i, s := range p.sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## ")
		b.WriteString(s.Title)
		b.WriteString("\n")
		b.WriteString(s.Body)
	}
	return b.String()
}

const scoringSystemPrompt = `You are the scoring backend of amicooked, a developer skill assessment service. You rate a developer's profile from activity metrics.

RULES:
- Score exactly four categories: activity, skillSignals, growth, collaboration. Each score is an integer 0-100.
- Judge only from the data provided. Do not invent metrics.
- Add a short "notes" string per category naming the decisive signals.
- When a category has clearly separable signals you may add 2-4 subMetrics, each {"name","score","weight"}.
- Do NOT compute an overall level. That is derived elsewhere.

RESPOND WITH ONLY A JSON OBJECT. No explanation, no markdown, no code blocks.

Example output:
{"categoryScores":{"activity":{"score":72,"notes":"steady commit cadence"},"skillSignals":{"score":64,"notes":"two substantial Go services"},"growth":{"score":58,"notes":"new stack adopted this year"},"collaboration":{"score":41,"notes":"few reviews outside own repos"}}}`

const scoringRetryPromptFmt = `Your previous reply was missing usable scores for: %s.

RESPOND WITH ONLY A JSON OBJECT containing exactly those categories, in the same shape as before:
{"categoryScores":{"%s":{"score":55,"notes":"..."}}}`

const synthesisSystemPrompt = `You are the narrative voice of amicooked, a developer skill assessment service. Kitchen metaphors are the house style; the verdict scale runs Burnt, Well-Done, Cooked, Toasted, Cooking.

RULES:
- The scores and the verdict you receive are final. Never re-derive, dispute or restate different numbers.
- Write a "summary" of 2-4 sentences, 3-5 concrete "recommendations", and one insight each for projects, language and activity.
- Be direct and a little playful. No hedging filler.

RESPOND WITH ONLY A JSON OBJECT. No explanation, no markdown, no code blocks.

Example output:
{"summary":"...","recommendations":["...","..."],"insights":{"projects":"...","language":"...","activity":"..."}}`

// FormatProfile renders the assessed profile as prompt lines.
func FormatProfile(p Profile) string {
	var b strings.Builder
	if p.Username != "" {
		fmt.Fprintf(&b, "username: %s\n", p.Username)
	}
	if p.DisplayName != "" {
		fmt.Fprintf(&b, "name: %s\n", p.DisplayName)
	}
	if p.Bio != "" {
		fmt.Fprintf(&b, "bio: %s\n", p.Bio)
	}
	return b.String()
}

// FormatCategoryScores renders normalized categories for prompt inclusion,
// in the fixed category order, sub-metrics indented beneath their category.
func FormatCategoryScores(categories map[CategoryKey]CategoryScore) string {
	var b strings.Builder
	for _, key := range CategoryKeys() {
		c, ok := categories[key]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %d/100 (weight %d)", key, c.Score, c.Weight)
		if c.Notes != "" {
			fmt.Fprintf(&b, ": %s", c.Notes)
		}
		b.WriteString("\n")
		for _, s := range c.SubMetrics {
			fmt.Fprintf(&b, "  - %s: %d/100 (weight %d)\n", s.Name, s.Score, s.Weight)
		}
	}
	return b.String()
}

func buildScoringUserPrompt(in AnalysisInput) string {
	detail := plans.Lookup(in.Plan).MetricsDetail
	return NewPromptContext().
		Add("Profile", FormatProfile(in.Profile)).
		Add("Metrics", FormatMetrics(in.Metrics, detail)).
		Add("Task", "Score this developer across the four categories.").
		Render()
}

func buildScoringRetryPrompt(missing []CategoryKey) string {
	names := make([]string, len(missing))
	for i, k := range missing {
		names[i] = string(k)
	}
	return fmt.Sprintf(scoringRetryPromptFmt, strings.Join(names, ", "), names[0])
}

func buildSynthesisUserPrompt(in AnalysisInput, norm Normalized) string {
	return NewPromptContext().
		Add("Profile", FormatProfile(in.Profile)).
		Add("Scores", FormatCategoryScores(norm.Categories)).
		Add("Verdict", fmt.Sprintf("Level %d of 10, %s. This verdict is authoritative; repeat it as given and do not re-derive it.", norm.Level, norm.LevelName)).
		Add("Task", "Write the narrative for this assessment.").
		Render()
}

package memory

import "strings"

// bucketOrder fixes the section order when memory is rendered into a
// prompt, so identical memory always produces identical text.
var bucketOrder = []ItemType{
	TypeGoal,
	TypeInsight,
	TypeAction,
	TypeSummary,
	TypePreference,
	TypeSkill,
	TypeFeedback,
	TypeMilestone,
	TypeContext,
}

var bucketLabels = map[ItemType]string{
	TypeGoal:       "Goals",
	TypeInsight:    "Insights",
	TypeAction:     "Action items",
	TypeSummary:    "Session summaries",
	TypePreference: "Preferences",
	TypeSkill:      "Skills",
	TypeFeedback:   "Feedback",
	TypeMilestone:  "Milestones",
	TypeContext:    "Context",
}

// RenderItems renders long-term memory as labelled bullet lists, one
// section per type, skipping empty sections. Items keep insertion order
// within their section.
func RenderItems(items []Item) string {
	if len(items) == 0 {
		return ""
	}
	buckets := make(map[ItemType][]Item)
	for _, it := range items {
		t := CoerceType(string(it.Type))
		buckets[t] = append(buckets[t], it)
	}
	var b strings.Builder
	for _, t := range bucketOrder {
		group := buckets[t]
		if len(group) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(bucketLabels[t])
		b.WriteByte(':')
		for _, it := range group {
			b.WriteString("\n- ")
			b.WriteString(it.Content)
		}
	}
	return b.String()
}

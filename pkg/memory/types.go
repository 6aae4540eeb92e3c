// amicooked - developer skill assessment with a coaching agent
// License: MIT
// Copyright (c) 2026 amicooked contributors

package memory

import (
	"time"

	"github.com/google/uuid"
)

// ItemType classifies a long-term memory item.
type ItemType string

const (
	TypeInsight    ItemType = "insight"
	TypeSummary    ItemType = "summary"
	TypeGoal       ItemType = "goal"
	TypeAction     ItemType = "action"
	TypePreference ItemType = "preference"
	TypeSkill      ItemType = "skill"
	TypeFeedback   ItemType = "feedback"
	TypeMilestone  ItemType = "milestone"
	TypeContext    ItemType = "context"
)

// MaxItemContentLen caps the stored length of a single memory item.
const MaxItemContentLen = 500

var validTypes = map[ItemType]bool{
	TypeInsight:    true,
	TypeSummary:    true,
	TypeGoal:       true,
	TypeAction:     true,
	TypePreference: true,
	TypeSkill:      true,
	TypeFeedback:   true,
	TypeMilestone:  true,
	TypeContext:    true,
}

// CoerceType maps an arbitrary label onto a known ItemType, falling back
// to TypeContext so nothing an upstream model invents can widen the set.
func CoerceType(s string) ItemType {
	t := ItemType(s)
	if validTypes[t] {
		return t
	}
	return TypeContext
}

// Item is one durable fact remembered about a user.
type Item struct {
	ID        string         `json:"id"`
	Type      ItemType       `json:"type"`
	Content   string         `json:"content"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NewItem builds a capped item. Unknown types coerce to context and
// content is truncated to MaxItemContentLen.
func NewItem(t ItemType, content string) Item {
	return Item{
		ID:        uuid.New().String(),
		Type:      CoerceType(string(t)),
		Content:   truncate(content, MaxItemContentLen),
		CreatedAt: time.Now().UTC(),
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// Identity is the agent persona. Name and icon are cosmetic; personality
// selects a stock voice and customPersonality overrides it verbatim.
type Identity struct {
	Name              string `json:"name,omitempty"`
	Personality       string `json:"personality,omitempty"`
	CustomPersonality string `json:"customPersonality,omitempty"`
	Icon              string `json:"icon,omitempty"`
}

// AgentState is the persisted per-user record: long-term memory, the
// memory toggle, and the optional custom identity.
type AgentState struct {
	OwnerID       string    `json:"ownerId"`
	Memory        []Item    `json:"memory"`
	MemoryEnabled bool      `json:"memoryEnabled"`
	Identity      *Identity `json:"identity,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Conversation roles for short-term history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationMessage is one turn of short-term history.
type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

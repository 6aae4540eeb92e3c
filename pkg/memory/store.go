// amicooked - developer skill assessment with a coaching agent
// License: MIT
// Copyright (c) 2026 amicooked contributors

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Champion2005/amicooked/pkg/docstore"
	"github.com/Champion2005/amicooked/pkg/logger"
	"github.com/Champion2005/amicooked/pkg/plans"
)

// Store persists per-user agent state as documents and enforces the plan
// gates on every write. All writes are merge-writes: fields a caller does
// not touch survive unchanged.
type Store struct {
	docs docstore.Store
}

func NewStore(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

// Load reads the caller's agent state. A missing document and a document
// owned by someone else both read as a fresh empty state, so existence
// never leaks across accounts. Memory starts enabled for new users.
func (s *Store) Load(ctx context.Context, uid string) (*AgentState, error) {
	state, owned, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !owned {
		return freshState(uid), nil
	}
	return state, nil
}

func (s *Store) load(ctx context.Context, uid string) (*AgentState, bool, error) {
	raw, err := s.docs.Get(ctx, docstore.AgentStatePath(uid))
	if err != nil {
		return nil, false, fmt.Errorf("load agent state: %w", err)
	}
	if raw == nil {
		return freshState(uid), true, nil
	}
	var state AgentState
	if err := json.Unmarshal(raw, &state); err != nil {
		logger.WarnC("memory", fmt.Sprintf("Unreadable agent state for %s, starting fresh: %v", uid, err))
		return freshState(uid), true, nil
	}
	if state.OwnerID != "" && state.OwnerID != uid {
		return nil, false, nil
	}
	state.OwnerID = uid
	return &state, true, nil
}

func freshState(uid string) *AgentState {
	return &AgentState{OwnerID: uid, MemoryEnabled: true}
}

// AddItems appends items to long-term memory, evicting the oldest past
// the plan's cap, and returns the resulting list. On free plans and on
// owner mismatch it is a silent no-op that returns the unmodified list.
func (s *Store) AddItems(ctx context.Context, uid string, plan plans.ID, items ...Item) ([]Item, error) {
	state, owned, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	caps := plans.Lookup(plan)
	if !owned || !caps.MemoryPersistence || len(items) == 0 {
		if state == nil {
			return nil, nil
		}
		return state.Memory, nil
	}
	merged := append(append([]Item{}, state.Memory...), items...)
	merged = capItems(merged, caps.MemoryCap)
	patch := s.patch(uid, plan, state)
	patch["memory"] = merged
	if err := s.docs.Merge(ctx, docstore.AgentStatePath(uid), patch); err != nil {
		return nil, fmt.Errorf("save memory: %w", err)
	}
	return merged, nil
}

// AddItem is AddItems for a single item.
func (s *Store) AddItem(ctx context.Context, uid string, plan plans.ID, item Item) ([]Item, error) {
	return s.AddItems(ctx, uid, plan, item)
}

// SetEnabled flips the memory toggle. The toggle persists on every plan;
// it gates extraction, not the record itself.
func (s *Store) SetEnabled(ctx context.Context, uid string, plan plans.ID, enabled bool) error {
	state, owned, err := s.load(ctx, uid)
	if err != nil {
		return err
	}
	if !owned {
		return nil
	}
	patch := s.patch(uid, plan, state)
	patch["memoryEnabled"] = enabled
	if err := s.docs.Merge(ctx, docstore.AgentStatePath(uid), patch); err != nil {
		return fmt.Errorf("set memory toggle: %w", err)
	}
	return nil
}

// SetIdentity stores a custom persona. Plans without custom identity and
// owner mismatches are silent no-ops. A nil identity clears the persona.
func (s *Store) SetIdentity(ctx context.Context, uid string, plan plans.ID, identity *Identity) error {
	state, owned, err := s.load(ctx, uid)
	if err != nil {
		return err
	}
	if !owned || !plans.Lookup(plan).CustomIdentity {
		return nil
	}
	patch := s.patch(uid, plan, state)
	if identity == nil {
		patch["identity"] = nil
	} else {
		patch["identity"] = identity
	}
	if err := s.docs.Merge(ctx, docstore.AgentStatePath(uid), patch); err != nil {
		return fmt.Errorf("set identity: %w", err)
	}
	return nil
}

// TrimToCap re-applies the plan's memory cap, evicting oldest items. It
// returns how many items were dropped; owner mismatches trim nothing.
func (s *Store) TrimToCap(ctx context.Context, uid string, plan plans.ID) (int, error) {
	state, owned, err := s.load(ctx, uid)
	if err != nil {
		return 0, err
	}
	max := plans.Lookup(plan).MemoryCap
	if !owned || state == nil || len(state.Memory) <= max {
		return 0, nil
	}
	trimmed := capItems(state.Memory, max)
	patch := s.patch(uid, plan, state)
	patch["memory"] = trimmed
	if err := s.docs.Merge(ctx, docstore.AgentStatePath(uid), patch); err != nil {
		return 0, fmt.Errorf("trim memory: %w", err)
	}
	return len(state.Memory) - len(trimmed), nil
}

// Wipe deletes the user's agent state entirely. Owner mismatches delete
// nothing.
func (s *Store) Wipe(ctx context.Context, uid string) error {
	_, owned, err := s.load(ctx, uid)
	if err != nil {
		return err
	}
	if !owned {
		return nil
	}
	if err := s.docs.Delete(ctx, docstore.AgentStatePath(uid)); err != nil {
		return fmt.Errorf("wipe agent state: %w", err)
	}
	return nil
}

// patch is the base merge payload every write carries. When the plan no
// longer grants custom identity but one is stored, the identity is
// stripped as part of the same write.
func (s *Store) patch(uid string, plan plans.ID, state *AgentState) map[string]any {
	p := map[string]any{
		"ownerId":   uid,
		"updatedAt": time.Now().UTC(),
	}
	if state != nil && state.Identity != nil && !plans.Lookup(plan).CustomIdentity {
		p["identity"] = nil
	}
	return p
}

// capItems keeps the newest max items, dropping from the front.
func capItems(items []Item, max int) []Item {
	if max <= 0 || len(items) <= max {
		return items
	}
	return items[len(items)-max:]
}

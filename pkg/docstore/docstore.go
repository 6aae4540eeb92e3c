// Package docstore is the per-user document tree: JSON documents addressed by
// logical paths like users/{uid}/agent-state. Semantics are get/set/merge/
// delete with per-document atomicity; there are no cross-document transactions.
package docstore

import (
	"context"
	"encoding/json"
)

// Store reads and writes JSON documents by path. Get on a missing document
// returns (nil, nil): absence is data, not an error.
type Store interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Set(ctx context.Context, path string, doc any) error
	// Merge overlays the partial document's top-level fields onto the stored
	// document, creating it when absent. Fields the partial omits survive.
	Merge(ctx context.Context, path string, partial any) error
	Delete(ctx context.Context, path string) error
	Close() error
}

func UserPath(uid string) string {
	return "users/" + uid
}

func AgentStatePath(uid string) string {
	return UserPath(uid) + "/agent-state"
}

func MetricsPath(uid string) string {
	return UserPath(uid) + "/metrics"
}

func ChatPath(uid, chatID string) string {
	return UserPath(uid) + "/chats/" + chatID
}

func ResultPath(uid, resultID string) string {
	return UserPath(uid) + "/results/" + resultID
}

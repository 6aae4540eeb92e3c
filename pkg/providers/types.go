package providers

import (
	"context"
	"errors"
	"fmt"
)

// RateLimitError represents a 429 rate limit error from the API.
type RateLimitError struct {
	StatusCode int
	Body       string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("API rate limit %d: %s", e.StatusCode, e.Body)
}

// IsRateLimitError checks if an error is a rate limit error.
func IsRateLimitError(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// Message is one chat turn on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatOptions tunes a single completion call. Zero values mean "provider
// default"; use Temperature(v) to request an explicit temperature, including 0.
type ChatOptions struct {
	MaxTokens   int
	Temperature *float64
}

// Temperature returns a pointer for ChatOptions.Temperature.
func Temperature(v float64) *float64 {
	return &v
}

// StreamSink receives content fragments in arrival order during a streaming
// call. The concatenation of all fragments equals the returned full text.
type StreamSink func(delta string)

// Client sends a system/user prompt pair to the chat completion endpoint.
type Client interface {
	Chat(ctx context.Context, model, system, user string, opts ChatOptions) (string, error)
	ChatStream(ctx context.Context, model, system, user string, opts ChatOptions, sink StreamSink) (string, error)
}

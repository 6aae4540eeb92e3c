package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChatNonStreaming(t *testing.T) {
	var gotBody chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth header = %q", auth)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("request body does not parse: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"you are cooked"}}]}`)
	}))
	defer server.Close()

	client := NewHTTPClient("test-key", server.URL)
	got, err := client.Chat(context.Background(), "test-model", "be strict", "score me", ChatOptions{MaxTokens: 256, Temperature: Temperature(0)})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if got != "you are cooked" {
		t.Errorf("content = %q, want %q", got, "you are cooked")
	}

	if gotBody.Model != "test-model" || gotBody.Stream {
		t.Errorf("request model/stream = %q/%v, want test-model/false", gotBody.Model, gotBody.Stream)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != RoleSystem || gotBody.Messages[1].Role != RoleUser {
		t.Errorf("messages = %+v, want system then user", gotBody.Messages)
	}
	if gotBody.MaxTokens != 256 {
		t.Errorf("max_tokens = %d, want 256", gotBody.MaxTokens)
	}
	if gotBody.Temperature == nil || *gotBody.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", gotBody.Temperature)
	}
}

func TestChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"You are \"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive comment, skipped\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"absolutely \"}}]}\n\n")
		fmt.Fprint(w, "data: not-json, skipped\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"cooked.\"},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"never seen\"}}]}\n\n")
	}))
	defer server.Close()

	client := NewHTTPClient("", server.URL)
	var deltas []string
	got, err := client.ChatStream(context.Background(), "m", "", "hi", ChatOptions{}, func(d string) {
		deltas = append(deltas, d)
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	want := "You are absolutely cooked."
	if got != want {
		t.Errorf("full text = %q, want %q", got, want)
	}
	if joined := strings.Join(deltas, ""); joined != want {
		t.Errorf("sink fragments joined = %q, want %q", joined, want)
	}
	if len(deltas) != 3 {
		t.Errorf("sink called %d times, want 3", len(deltas))
	}
}

func TestChatStreamNonStreamFallback(t *testing.T) {
	// A gateway that ignores stream=true and answers with plain JSON.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"whole thing"}}]}`)
	}))
	defer server.Close()

	client := NewHTTPClient("", server.URL)
	var deltas []string
	got, err := client.ChatStream(context.Background(), "m", "s", "u", ChatOptions{}, func(d string) {
		deltas = append(deltas, d)
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if got != "whole thing" {
		t.Errorf("full text = %q", got)
	}
	if len(deltas) != 1 || deltas[0] != "whole thing" {
		t.Errorf("sink got %v, want one full fragment", deltas)
	}
}

func TestRateLimitTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
		fmt.Fprint(w, "slow down")
	}))
	defer server.Close()

	client := NewHTTPClient("", server.URL)
	_, err := client.Chat(context.Background(), "m", "s", "u", ChatOptions{})
	if err == nil {
		t.Fatal("want error on 429")
	}
	if !IsRateLimitError(err) {
		t.Errorf("IsRateLimitError(%v) = false, want true", err)
	}
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		fmt.Fprint(w, "boom")
	}))
	defer server.Close()

	client := NewHTTPClient("", server.URL)
	_, err := client.Chat(context.Background(), "m", "s", "u", ChatOptions{})
	if err == nil {
		t.Fatal("want error on 500")
	}
	if IsRateLimitError(err) {
		t.Error("500 must not be typed as rate limit")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error %q should carry the status code", err)
	}
}

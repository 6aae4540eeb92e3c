// amicooked - developer skill assessment with a coaching agent
// License: MIT
//
// Copyright (c) 2026 amicooked contributors

package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Champion2005/amicooked/pkg/logger"
)

// HTTPClient talks to an OpenAI-compatible chat completion endpoint.
type HTTPClient struct {
	apiKey     string
	apiBase    string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the given endpoint. The HTTP timeout is
// deliberately long; callers bound individual calls with context deadlines.
func NewHTTPClient(apiKey, apiBase string) *HTTPClient {
	return &HTTPClient{
		apiKey:  apiKey,
		apiBase: strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{
			Timeout: 600 * time.Second,
		},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Stream      bool      `json:"stream"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Chat sends a system/user pair and returns the full completion text.
func (c *HTTPClient) Chat(ctx context.Context, model, system, user string, opts ChatOptions) (string, error) {
	resp, err := c.post(ctx, model, system, user, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	logger.InfoC("llm", fmt.Sprintf("Non-streamed response (%d bytes)", len(body)))
	return parseResponse(body)
}

// ChatStream sends a system/user pair with stream enabled, feeding content
// fragments to sink in arrival order. The returned text is the concatenation
// of exactly the fragments the sink saw.
func (c *HTTPClient) ChatStream(ctx context.Context, model, system, user string, opts ChatOptions, sink StreamSink) (string, error) {
	resp, err := c.post(ctx, model, system, user, opts, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Some gateways ignore stream=true and answer with a plain JSON body.
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/event-stream") && !strings.Contains(contentType, "text/plain") {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read response: %w", err)
		}
		content, err := parseResponse(body)
		if err != nil {
			return "", err
		}
		if sink != nil && content != "" {
			sink(content)
		}
		return content, nil
	}

	return parseStream(resp.Body, sink)
}

func (c *HTTPClient) post(ctx context.Context, model, system, user string, opts ChatOptions, stream bool) (*http.Response, error) {
	if c.apiBase == "" {
		return nil, fmt.Errorf("API base not configured")
	}

	messages := make([]Message, 0, 2)
	if system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	messages = append(messages, Message{Role: RoleUser, Content: user})

	payload := chatRequest{
		Model:       model,
		Stream:      stream,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	logger.InfoC("llm", fmt.Sprintf("POST %s/chat/completions (model=%s, messages=%d, stream=%v)", c.apiBase, model, len(messages), stream))

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiBase+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode == 429 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &RateLimitError{StatusCode: 429, Body: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
	return resp, nil
}

// parseStream reads newline-delimited "data: <json>" events until [DONE],
// concatenating choices[0].delta.content fragments.
func parseStream(body io.Reader, sink StreamSink) (string, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var contentBuilder strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				FinishReason *string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			contentBuilder.WriteString(delta)
			if sink != nil {
				sink(delta)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("stream reading error: %w", err)
	}

	content := contentBuilder.String()
	logger.InfoC("llm", fmt.Sprintf("Stream complete: content=%d chars", len(content)))
	return content, nil
}

func parseResponse(body []byte) (string, error) {
	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(apiResponse.Choices) == 0 {
		return "", nil
	}
	return apiResponse.Choices[0].Message.Content, nil
}

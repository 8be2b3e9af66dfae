// Package llm is a minimal client for OpenAI-compatible chat completion APIs.
//
// Usage:
//
//	client := llm.New()
//	out, err := client.Complete(ctx, "You are a classifier.", "track my order")
//
// Calls are retried once after a fixed short delay; the chat flow treats any
// remaining failure as a soft signal and falls back to heuristics.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charvilabs/charvi/config"
	"github.com/charvilabs/charvi/pkg/http"
)

// ErrEmptyCompletion is returned when the API answers with no choices.
var ErrEmptyCompletion = errors.New("llm: empty completion")

const retryDelay = 400 * time.Millisecond

// Client talks to a chat-completions endpoint.
type Client struct {
	APIKey  string
	BaseURL string
	Model   string
}

// New builds a client from the app configuration.
func New() *Client {
	return &Client{
		APIKey:  config.LLMAPIKey(),
		BaseURL: strings.TrimRight(config.LLMBaseURL(), "/"),
		Model:   config.LLMModel(),
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.APIKey != "" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a system+user prompt pair and returns the assistant text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.Configured() {
		return "", errors.New("llm: API key not configured")
	}

	body := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0,
	}

	resp, err := http.Post(c.BaseURL+"/chat/completions").
		Bearer(c.APIKey).
		Body(body).
		Timeout(20 * time.Second).
		Retry(2, retryDelay).
		WithContext(ctx).
		Send()
	if err != nil {
		return "", fmt.Errorf("llm: request: %w", err)
	}

	var out chatResponse
	if err := resp.JSON(&out); err != nil {
		return "", err
	}
	if out.Error != nil {
		return "", fmt.Errorf("llm: API error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// ExtractJSON pulls the first JSON object out of a completion, tolerating
// markdown code fences and surrounding prose.
func ExtractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// Package llm abstracts the external completion providers used by the lookup
// pipeline and the assistant. Providers return free-form text; all parsing
// and validation is the caller's responsibility.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client defines the completion operations used by the pipeline.
type Client interface {
	// Complete sends a single-prompt request and returns the response text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Chat sends a multi-message conversation and returns the response text.
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// CompletionRequest is a single-prompt completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Message is a single conversational message.
type Message struct {
	Role    string // "user", "assistant" or "system"
	Content string
}

// ChatRequest is a multi-message completion request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// APIError is a non-2xx response from a provider. The pipeline inspects
// StatusCode and Message to decide whether a failure is retryable.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// ErrEmptyResponse is returned when a provider replies 200 with no usable
// content. Treated as a retryable failure by the pipeline.
var ErrEmptyResponse = errors.New("llm: empty response")

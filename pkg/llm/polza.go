package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	polzaDefaultBaseURL = "https://api.polza.ai/v1"
	polzaDefaultModel   = "gpt-4o"
)

// PolzaOption configures the Polza client.
type PolzaOption func(*polzaClient)

// WithPolzaBaseURL overrides the default API base URL.
func WithPolzaBaseURL(url string) PolzaOption {
	return func(c *polzaClient) {
		c.baseURL = url
	}
}

// WithPolzaModel overrides the default model.
func WithPolzaModel(model string) PolzaOption {
	return func(c *polzaClient) {
		c.model = model
	}
}

// WithPolzaHTTPClient overrides the default http.Client.
func WithPolzaHTTPClient(hc *http.Client) PolzaOption {
	return func(c *polzaClient) {
		c.http = hc
	}
}

// WithPolzaRateLimit bounds outbound requests per second.
func WithPolzaRateLimit(perSec float64) PolzaOption {
	return func(c *polzaClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

type polzaClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewPolza creates a client for the Polza.AI chat completions API
// (OpenAI-compatible).
func NewPolza(apiKey string, opts ...PolzaOption) Client {
	c := &polzaClient{
		apiKey:  apiKey,
		baseURL: polzaDefaultBaseURL,
		model:   polzaDefaultModel,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type polzaChatRequest struct {
	Model       string         `json:"model"`
	Messages    []polzaMessage `json:"messages"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Temperature float64        `json:"temperature"`
}

type polzaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type polzaChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int          `json:"index"`
		Message polzaMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *polzaClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	msgs := make([]Message, 0, 2)
	if req.System != "" {
		msgs = append(msgs, Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, Message{Role: "user", Content: req.Prompt})

	return c.Chat(ctx, ChatRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
}

func (c *polzaClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "polza: rate limit wait")
		}
	}

	msgs := make([]polzaMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = polzaMessage{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(polzaChatRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", eris.Wrap(err, "polza: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "polza: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "polza: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "polza: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{
			Provider:   "polza",
			StatusCode: resp.StatusCode,
			Message:    apiErrorMessage(respBody),
		}
	}

	var result polzaChatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", eris.Wrap(err, "polza: unmarshal response")
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return result.Choices[0].Message.Content, nil
}

// apiErrorMessage pulls the error message out of an OpenAI-style error body,
// falling back to the raw body.
func apiErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(body)
}

package llm

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const anthropicDefaultModel = "claude-sonnet-4-5-20250929"

// AnthropicOption configures the Anthropic client.
type AnthropicOption func(*anthropicClient)

// WithAnthropicModel overrides the default model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *anthropicClient) {
		c.model = model
	}
}

type anthropicClient struct {
	client sdk.Client
	model  string
}

// NewAnthropic creates a client backed by the official anthropic-sdk-go.
func NewAnthropic(apiKey string, opts ...AnthropicOption) Client {
	c := &anthropicClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
		model: anthropicDefaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *anthropicClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	msgs := []Message{{Role: "user", Content: req.Prompt}}
	return c.chat(ctx, req.Model, req.System, msgs, req.MaxTokens, req.Temperature)
}

func (c *anthropicClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	// The Messages API takes system prompts out of band; split them off.
	var system []string
	msgs := make([]Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		msgs = append(msgs, m)
	}
	return c.chat(ctx, req.Model, strings.Join(system, "\n\n"), msgs, req.MaxTokens, req.Temperature)
}

func (c *anthropicClient) chat(ctx context.Context, model, system string, msgs []Message, maxTokens int, temperature float64) (string, error) {
	if model == "" {
		model = c.model
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    toSDKMessages(msgs),
		Temperature: sdk.Float(temperature),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apierr *sdk.Error
		if errors.As(err, &apierr) {
			return "", &APIError{
				Provider:   "anthropic",
				StatusCode: apierr.StatusCode,
				Message:    apierr.Error(),
			}
		}
		return "", eris.Wrap(err, "anthropic: create message")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(msgs))
	for i, m := range msgs {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case "assistant":
			out[i] = sdk.NewAssistantMessage(block)
		default:
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}

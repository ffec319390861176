package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic generates text with the Claude Messages API
type Anthropic struct {
	client      anthropic.Client
	model       anthropic.Model
	temperature float64
	maxTokens   int64
}

// NewAnthropic creates an Anthropic generator. Extra request options
// (base URL, retries) are passed through to the SDK client.
func NewAnthropic(apiKey, model string, temperature float64, maxTokens int, opts ...option.RequestOption) *Anthropic {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Anthropic{
		client:      anthropic.NewClient(opts...),
		model:       anthropic.Model(model),
		temperature: temperature,
		maxTokens:   int64(maxTokens),
	}
}

// Name returns the provider name
func (a *Anthropic) Name() string { return "anthropic" }

// Generate sends prompt as a single user message
func (a *Anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model: a.model,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		MaxTokens:   a.maxTokens,
		Temperature: anthropic.Float(a.temperature),
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", &CollaboratorError{Provider: a.Name(), Err: err}
	}

	var text strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", &CollaboratorError{Provider: a.Name(), Err: ErrEmptyResponse}
	}
	return text.String(), nil
}

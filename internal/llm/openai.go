package llm

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// OpenAI generates text with the OpenAI Responses API
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAI creates an OpenAI generator
func NewOpenAI(apiKey, model string, maxTokens int, opts ...option.RequestOption) *OpenAI {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

// Name returns the provider name
func (o *OpenAI) Name() string { return "openai" }

// Generate sends prompt as the response input
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(o.maxTokens),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(prompt)},
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return "", &CollaboratorError{Provider: o.Name(), Err: err}
	}

	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return "", &CollaboratorError{Provider: o.Name(), Err: ErrEmptyResponse}
	}
	return text, nil
}

package llm

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// DefaultOllamaHost is used when no host is configured or it does not parse
const DefaultOllamaHost = "http://localhost:11434"

// Ollama generates text with a local Ollama server
type Ollama struct {
	client      *api.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOllama creates an Ollama generator
func NewOllama(hostURL, model string, temperature float64, maxTokens int) *Ollama {
	if hostURL == "" {
		hostURL = DefaultOllamaHost
	}
	parsedURL, err := url.Parse(hostURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		parsedURL, _ = url.Parse(DefaultOllamaHost)
	}

	return &Ollama{
		client:      api.NewClient(parsedURL, http.DefaultClient),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Name returns the provider name
func (o *Ollama) Name() string { return "ollama" }

// Generate sends prompt as a single non-streaming chat message
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options: map[string]any{
			"temperature": o.temperature,
			"num_predict": o.maxTokens,
		},
	}

	var response api.ChatResponse
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return "", &CollaboratorError{Provider: o.Name(), Err: err}
	}

	if strings.TrimSpace(response.Message.Content) == "" {
		return "", &CollaboratorError{Provider: o.Name(), Err: ErrEmptyResponse}
	}
	return response.Message.Content, nil
}

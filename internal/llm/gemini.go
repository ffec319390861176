package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini generates text with the Gemini API
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGemini creates a Gemini generator
func NewGemini(apiKey, model string, temperature float64, maxTokens int) (*Gemini, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{
		client:      client,
		model:       model,
		temperature: float32(temperature),
		maxTokens:   int32(maxTokens),
	}, nil
}

// Name returns the provider name
func (g *Gemini) Name() string { return "gemini" }

// Generate sends prompt as a single text content
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	temperature := g.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: g.maxTokens,
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", &CollaboratorError{Provider: g.Name(), Err: err}
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", &CollaboratorError{Provider: g.Name(), Err: ErrEmptyResponse}
	}
	return text, nil
}

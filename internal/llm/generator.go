// Package llm adapts hosted and local text-generation models to the planner.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourceplane/processagent/internal/config"
)

// ErrEmptyResponse is returned when a provider answers with no text
var ErrEmptyResponse = errors.New("empty response from model")

// Generator turns a prompt into free text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Named is implemented by generators that can report their provider
type Named interface {
	Name() string
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// CollaboratorError wraps a provider failure
type CollaboratorError struct {
	Provider string
	Err      error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// NameOf returns the provider name of g, or "custom"
func NameOf(g Generator) string {
	if n, ok := g.(Named); ok {
		return n.Name()
	}
	return "custom"
}

// New builds the generator for the configured provider
func New(cfg config.LLMConfig) (Generator, error) {
	model := cfg.ModelName()
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropic(cfg.APIKey, model, cfg.Temperature, cfg.MaxTokens), nil
	case "openai":
		return NewOpenAI(cfg.APIKey, model, cfg.MaxTokens), nil
	case "gemini":
		return NewGemini(cfg.APIKey, model, cfg.Temperature, cfg.MaxTokens)
	case "ollama":
		return NewOllama(cfg.BaseURL, model, cfg.Temperature, cfg.MaxTokens), nil
	case "":
		return nil, fmt.Errorf("no LLM provider configured")
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

type timeoutGenerator struct {
	next    Generator
	timeout time.Duration
}

// WithTimeout bounds every Generate call on g by d. A non-positive d
// returns g unchanged.
func WithTimeout(g Generator, d time.Duration) Generator {
	if d <= 0 {
		return g
	}
	return &timeoutGenerator{next: g, timeout: d}
}

func (t *timeoutGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	// buffered so a late answer never blocks the sender
	done := make(chan result, 1)
	go func() {
		text, err := t.next.Generate(ctx, prompt)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", &CollaboratorError{Provider: NameOf(t.next), Err: ctx.Err()}
	}
}

func (t *timeoutGenerator) Name() string {
	return NameOf(t.next)
}

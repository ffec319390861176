package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.1","message":{"role":"assistant","content":"[{\"operation\":\"face_milling\"}]"},"done":true}`))
	}))
	defer server.Close()

	g := NewOllama(server.URL, "llama3.1", 0.1, 256)
	text, err := g.Generate(context.Background(), "plan this part")
	require.NoError(t, err)
	assert.Equal(t, `[{"operation":"face_milling"}]`, text)

	assert.Equal(t, "llama3.1", got["model"])
	assert.Equal(t, false, got["stream"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "plan this part", messages[0].(map[string]any)["content"])
}

func TestOllamaGenerateErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
		}))
		defer server.Close()

		_, err := NewOllama(server.URL, "llama3.1", 0.1, 256).Generate(context.Background(), "p")
		require.Error(t, err)
		var collab *CollaboratorError
		require.True(t, errors.As(err, &collab))
		assert.Equal(t, "ollama", collab.Provider)
	})

	t.Run("empty content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"model":"llama3.1","message":{"role":"assistant","content":"  "},"done":true}`))
		}))
		defer server.Close()

		_, err := NewOllama(server.URL, "llama3.1", 0.1, 256).Generate(context.Background(), "p")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestNewOllamaFallsBackToDefaultHost(t *testing.T) {
	g := NewOllama("not a url", "llama3.1", 0.1, 256)
	require.NotNil(t, g)
	assert.Equal(t, "ollama", g.Name())
}

func TestAnthropicGenerate(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-5-haiku-latest",
  "content": [{"type": "text", "text": "[{\"operation\": \"drilling\"}]"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 12, "output_tokens": 8}
}`))
	}))
	defer server.Close()

	g := NewAnthropic("test-key", "claude-3-5-haiku-latest", 0.1, 512,
		option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	text, err := g.Generate(context.Background(), "plan this part")
	require.NoError(t, err)
	assert.Equal(t, `[{"operation": "drilling"}]`, text)

	assert.Equal(t, "claude-3-5-haiku-latest", got["model"])
	assert.Equal(t, float64(512), got["max_tokens"])
}

func TestAnthropicGenerateError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`))
	}))
	defer server.Close()

	g := NewAnthropic("test-key", "nope", 0.1, 512,
		option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	_, err := g.Generate(context.Background(), "p")
	require.Error(t, err)

	var collab *CollaboratorError
	require.True(t, errors.As(err, &collab))
	assert.Equal(t, "anthropic", collab.Provider)
}

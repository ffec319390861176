package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sourceplane/processagent/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func TestGeneratorFunc(t *testing.T) {
	g := GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		return "echo: " + prompt, nil
	})

	text, err := g.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", text)
	assert.Equal(t, "custom", NameOf(g))
}

func TestCollaboratorError(t *testing.T) {
	err := error(&CollaboratorError{Provider: "openai", Err: ErrEmptyResponse})

	var collab *CollaboratorError
	require.True(t, errors.As(err, &collab))
	assert.Equal(t, "openai", collab.Provider)
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, "openai: empty response from model", err.Error())
}

func TestWithTimeout(t *testing.T) {
	t.Run("returns answer within deadline", func(t *testing.T) {
		g := WithTimeout(GeneratorFunc(func(context.Context, string) (string, error) {
			return "[]", nil
		}), time.Second)

		text, err := g.Generate(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, "[]", text)
	})

	t.Run("slow collaborator times out", func(t *testing.T) {
		slow := GeneratorFunc(func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})
		g := WithTimeout(slow, 20*time.Millisecond)

		start := time.Now()
		_, err := g.Generate(context.Background(), "p")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)

		var collab *CollaboratorError
		assert.True(t, errors.As(err, &collab))
	})

	t.Run("non-positive timeout is a no-op", func(t *testing.T) {
		inner := GeneratorFunc(func(context.Context, string) (string, error) { return "x", nil })
		g := WithTimeout(inner, 0)
		_, wrapped := g.(*timeoutGenerator)
		assert.False(t, wrapped)
	})

	t.Run("keeps provider name", func(t *testing.T) {
		g := WithTimeout(NewOllama("", "llama3.1", 0.1, 100), time.Second)
		assert.Equal(t, "ollama", NameOf(g))
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		provider string
		name     string
		wantErr  bool
	}{
		{provider: "anthropic", name: "anthropic"},
		{provider: "openai", name: "openai"},
		{provider: "gemini", name: "gemini"},
		{provider: "ollama", name: "ollama"},
		{provider: "", wantErr: true},
		{provider: "cohere", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := config.DefaultConfig().LLM
			cfg.Provider = tt.provider
			cfg.APIKey = "test-key"

			g, err := New(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, NameOf(g))
		})
	}
}

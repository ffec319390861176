package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable applyEnvOverrides reads
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"ANTHROPIC_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY", "OLLAMA_HOST",
		"LLM_PROVIDER", "LLM_MODEL", "LLM_TEMPERATURE", "LLM_MAX_TOKENS",
		"LLM_TIMEOUT", "USE_LLM", "PROCESSAGENT_KB",
	} {
		t.Setenv(name, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.LLM.Enabled)
	assert.Equal(t, 0.1, cfg.LLM.Temperature)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout())
	assert.False(t, cfg.LLMAvailable(), "no provider configured")
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file values", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "processagent.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: ollama
  model: mistral
  timeout: 5s
knowledge_base:
  path: shop.yaml
logging:
  level: debug
`), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "ollama", cfg.LLM.Provider)
		assert.Equal(t, "mistral", cfg.LLM.ModelName())
		assert.Equal(t, 5*time.Second, cfg.LLMTimeout())
		assert.Equal(t, "shop.yaml", cfg.KnowledgeBase.Path)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format, "unset keys keep defaults")
		assert.True(t, cfg.LLMAvailable(), "ollama needs no key")
	})

	t.Run("malformed file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "processagent.yaml")
		require.NoError(t, os.WriteFile(path, []byte("llm: ["), 0644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config")
	})
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "processagent.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "gemini"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("api key selects provider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ANTHROPIC_API_KEY", "ant-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "ant-key", cfg.LLM.APIKey)
		assert.Equal(t, "anthropic", cfg.LLM.Provider)
		assert.Equal(t, "claude-3-5-haiku-latest", cfg.LLM.ModelName())
		assert.True(t, cfg.LLMAvailable())
	})

	t.Run("openai key wins over anthropic", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ANTHROPIC_API_KEY", "ant-key")
		t.Setenv("OPENAI_API_KEY", "oa-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "oa-key", cfg.LLM.APIKey)
		assert.Equal(t, "openai", cfg.LLM.Provider)
		assert.Equal(t, "gpt-4o-mini", cfg.LLM.ModelName())
	})

	t.Run("explicit provider wins", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OPENAI_API_KEY", "oa-key")
		t.Setenv("LLM_PROVIDER", "Gemini")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "gemini", cfg.LLM.Provider)
	})

	t.Run("ollama host does not override a chosen provider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ANTHROPIC_API_KEY", "ant-key")
		t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "anthropic", cfg.LLM.Provider)
		assert.Equal(t, "http://gpu-box:11434", cfg.LLM.BaseURL)
	})

	t.Run("tuning values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_MODEL", "gpt-4.1")
		t.Setenv("LLM_TEMPERATURE", "0.4")
		t.Setenv("LLM_MAX_TOKENS", "512")
		t.Setenv("LLM_TIMEOUT", "12")
		t.Setenv("USE_LLM", "false")
		t.Setenv("PROCESSAGENT_KB", "/etc/kb.yaml")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
		assert.Equal(t, 0.4, cfg.LLM.Temperature)
		assert.Equal(t, 512, cfg.LLM.MaxTokens)
		assert.Equal(t, 12*time.Second, cfg.LLMTimeout())
		assert.False(t, cfg.LLM.Enabled)
		assert.Equal(t, "/etc/kb.yaml", cfg.KnowledgeBase.Path)
	})

	t.Run("unparseable values are ignored", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_TEMPERATURE", "warm")
		t.Setenv("LLM_MAX_TOKENS", "lots")
		t.Setenv("USE_LLM", "maybe")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 0.1, cfg.LLM.Temperature)
		assert.Equal(t, 2000, cfg.LLM.MaxTokens)
		assert.True(t, cfg.LLM.Enabled)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "cohere" }, "invalid LLM provider"},
		{"temperature out of range", func(c *Config) { c.LLM.Temperature = 3 }, "temperature"},
		{"zero max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }, "max_tokens"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "invalid log level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLLMTimeoutFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = "soon"
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout())
}

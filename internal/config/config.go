package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given
const DefaultPath = "processagent.yaml"

// Config holds all processagent settings
type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	Logging       LoggingConfig       `yaml:"logging"`
	Server        ServerConfig        `yaml:"server"`
}

// LLMConfig configures the text-generation collaborator used by the planner
type LLMConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// KnowledgeBaseConfig points at the machining knowledge base document.
// An empty path selects the bundled default.
type KnowledgeBaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ValidProviders lists the supported LLM providers
var ValidProviders = []string{"anthropic", "openai", "gemini", "ollama"}

// DefaultModels maps each provider to the model used when none is configured
var DefaultModels = map[string]string{
	"anthropic": "claude-3-5-haiku-latest",
	"openai":    "gpt-4o-mini",
	"gemini":    "gemini-2.0-flash",
	"ollama":    "llama3.1",
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Enabled:     true,
			Temperature: 0.1,
			MaxTokens:   2000,
			Timeout:     "30s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// API keys pick the provider; later keys win
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "anthropic"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.LLM.BaseURL = host
		if c.LLM.Provider == "" {
			c.LLM.Provider = "ollama"
		}
	}
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = strings.ToLower(provider)
	}

	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			c.LLM.Temperature = t
		}
	}
	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LLM.MaxTokens = n
		}
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		// bare numbers are seconds
		if _, err := strconv.Atoi(v); err == nil {
			v += "s"
		}
		c.LLM.Timeout = v
	}
	if v := os.Getenv("USE_LLM"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.LLM.Enabled = enabled
		}
	}

	if path := os.Getenv("PROCESSAGENT_KB"); path != "" {
		c.KnowledgeBase.Path = path
	}
}

// LLMTimeout returns the LLM timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// LLMAvailable reports whether the planner should try the LLM strategy
func (c *Config) LLMAvailable() bool {
	if !c.LLM.Enabled || c.LLM.Provider == "" {
		return false
	}
	return c.LLM.APIKey != "" || c.LLM.Provider == "ollama"
}

// ModelName returns the configured model or the provider default
func (c LLMConfig) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	return DefaultModels[c.Provider]
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.Provider != "" && !contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("LLM temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !contains(levels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, levels)
	}
	formats := []string{"json", "text"}
	if !contains(formats, c.Logging.Format) {
		return fmt.Errorf("invalid log format: %s (valid: %v)", c.Logging.Format, formats)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server addr cannot be empty")
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

package config

import "time"

// Config holds storyloom configuration.
// Stored at: {home}/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
	Storage      StorageCfg                `mapstructure:"storage" yaml:"storage"`
}

// LLMProviderCfg configures one language-model provider.
type LLMProviderCfg struct {
	Type       string  `mapstructure:"type" yaml:"type"`               // "openai", "openrouter", "mock"
	Model      string  `mapstructure:"model" yaml:"model"`             // Model name
	APIKey     string  `mapstructure:"api_key" yaml:"api_key"`         // API key (supports ${ENV_VAR} syntax)
	BaseURL    string  `mapstructure:"base_url" yaml:"base_url"`       // Override endpoint (optional)
	RateLimit  float64 `mapstructure:"rate_limit" yaml:"rate_limit"`   // Requests per minute
	MaxRetries int     `mapstructure:"max_retries" yaml:"max_retries"` // Transport-level retries
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies synthesis defaults.
type DefaultsCfg struct {
	LLMProvider    string  `mapstructure:"llm_provider" yaml:"llm_provider"`       // Provider used for narrative synthesis
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`         // Sampling temperature
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`           // Completion cap (0 = provider default)
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // Per-call timeout
	StyleGuide     string  `mapstructure:"style_guide" yaml:"style_guide"`         // Fallback style guide
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// StorageCfg configures persistence.
type StorageCfg struct {
	// DBPath overrides the SQLite file location (default: {home}/storyloom.db).
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o",
				APIKey:  "${OPENAI_API_KEY}",
				Enabled: true,
			},
			"openrouter": {
				Type:    "openrouter",
				Model:   "anthropic/claude-sonnet-4",
				APIKey:  "${OPENROUTER_API_KEY}",
				Enabled: false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider:    "openai",
			Temperature:    0.7,
			TimeoutSeconds: 300,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: 8399,
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// SynthesisTimeout returns the per-call timeout as a duration.
func (c *Config) SynthesisTimeout() time.Duration {
	if c.Defaults.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Defaults.TimeoutSeconds) * time.Second
}

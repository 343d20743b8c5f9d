package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("STORYLOOM_TEST_KEY", "sk-secret")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain value untouched", "sk-plain", "sk-plain"},
		{"single reference", "${STORYLOOM_TEST_KEY}", "sk-secret"},
		{"embedded reference", "Bearer ${STORYLOOM_TEST_KEY}", "Bearer sk-secret"},
		{"unset variable becomes empty", "${STORYLOOM_UNSET_VAR}", ""},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveEnvVars(tt.input); got != tt.want {
				t.Errorf("ResolveEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if _, ok := cfg.GetLLMProvider("openai"); !ok {
		t.Error("default config missing openai provider")
	}
	if cfg.Defaults.LLMProvider == "" {
		t.Error("default config has no default LLM provider")
	}
	if _, ok := cfg.GetLLMProvider(cfg.Defaults.LLMProvider); !ok {
		t.Errorf("default LLM provider %q not present in llm_providers", cfg.Defaults.LLMProvider)
	}
	if cfg.Defaults.TimeoutSeconds <= 0 {
		t.Error("default synthesis timeout must be positive")
	}
	if cfg.Server.Port == 0 {
		t.Error("default server port unset")
	}

	enabled := cfg.EnabledLLMProviders()
	if _, ok := enabled["openai"]; !ok {
		t.Error("openai should be enabled by default")
	}
	if _, ok := enabled["openrouter"]; ok {
		t.Error("openrouter should be disabled by default")
	}
}

func TestToProviderRegistryConfig(t *testing.T) {
	t.Setenv("STORYLOOM_TEST_API_KEY", "sk-resolved")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"primary": {
				Type:      "openai",
				Model:     "gpt-4o",
				APIKey:    "${STORYLOOM_TEST_API_KEY}",
				RateLimit: 30,
				Enabled:   true,
			},
		},
		Defaults: DefaultsCfg{TimeoutSeconds: 120},
	}

	rc := cfg.ToProviderRegistryConfig()
	pc, ok := rc.LLMProviders["primary"]
	if !ok {
		t.Fatal("provider missing from registry config")
	}
	if pc.APIKey != "sk-resolved" {
		t.Errorf("api key = %q, want resolved env value", pc.APIKey)
	}
	if pc.Timeout.Seconds() != 120 {
		t.Errorf("timeout = %v, want 120s", pc.Timeout)
	}
	if pc.RateLimit != 30 {
		t.Errorf("rate limit = %v, want 30", pc.RateLimit)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	text := string(data)
	for _, want := range []string{"llm_providers:", "openai", "${OPENAI_API_KEY}", "server:"} {
		if !strings.Contains(text, want) {
			t.Errorf("written config missing %q", want)
		}
	}
}

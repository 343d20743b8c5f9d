package providers

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry holds references to LLM clients.
// It supports config-driven instantiation, hot-reload, and thread-safe access.
type Registry struct {
	mu         sync.RWMutex
	llmClients map[string]LLMClient
	logger     *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]LLMClient),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	if r.logger != nil {
		r.logger.Info("registered LLM client", "name", name)
	}
}

// UnregisterLLM removes an LLM client by name.
func (r *Registry) UnregisterLLM(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.llmClients, name)
	if r.logger != nil {
		r.logger.Info("unregistered LLM client", "name", name)
	}
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// HasLLM returns true if an LLM client is registered under the name.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// ListLLM returns the names of all registered LLM clients.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	return names
}

// ProviderConfig describes one LLM provider entry from configuration.
type ProviderConfig struct {
	Type       string
	Model      string
	APIKey     string
	BaseURL    string
	RateLimit  float64
	MaxRetries int
	Timeout    time.Duration
	Enabled    bool
}

// RegistryConfig is the full provider configuration used by Reload.
type RegistryConfig struct {
	LLMProviders map[string]ProviderConfig
}

// Reload replaces the registered clients with ones built from config.
// Disabled providers and providers with unknown types are skipped.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.llmClients = make(map[string]LLMClient)

	for name, pc := range cfg.LLMProviders {
		if !pc.Enabled {
			continue
		}
		client, err := newClientFromConfig(pc)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("skipping LLM provider", "name", name, "error", err)
			}
			continue
		}
		r.llmClients[name] = client
		if r.logger != nil {
			r.logger.Info("registered LLM client", "name", name, "type", pc.Type, "model", pc.Model)
		}
	}
}

func newClientFromConfig(pc ProviderConfig) (LLMClient, error) {
	switch pc.Type {
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
			MaxRetries:   pc.MaxRetries,
		}), nil
	case OpenRouterName:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
			MaxRetries:   pc.MaxRetries,
		}), nil
	case MockClientName:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider type: %s", pc.Type)
	}
}

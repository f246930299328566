package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/types"
)

// Registry manages all available providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	config    *types.Config
}

// NewRegistry creates a new provider registry.
func NewRegistry(cfg *types.Config) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		config:    cfg,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.ID()] = provider
}

// Get retrieves a provider by ID.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", providerID)
	}
	return provider, nil
}

// List returns all registered providers.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	return providers
}

// Default resolves the configured "provider/model" reference to a
// registered provider and model id.
func (r *Registry) Default() (Provider, string, error) {
	if r.config == nil || r.config.Model == "" {
		return nil, "", fmt.Errorf("no default model configured")
	}

	providerID, modelID := config.SplitModelRef(r.config.Model)
	if providerID == "" {
		return nil, "", fmt.Errorf("model reference %q missing provider", r.config.Model)
	}

	provider, err := r.Get(providerID)
	if err != nil {
		return nil, "", err
	}
	return provider, modelID, nil
}

// InitializeProviders creates and registers all providers from config.
func InitializeProviders(ctx context.Context, cfg *types.Config) (*Registry, error) {
	registry := NewRegistry(cfg)

	if pc, ok := cfg.Provider["anthropic"]; ok && pc.APIKey != "" && !pc.Disable {
		provider, err := NewAnthropicProvider(ctx, &AnthropicConfig{
			APIKey:    pc.APIKey,
			BaseURL:   pc.BaseURL,
			Model:     pc.Model,
			MaxTokens: pc.MaxTokens,
		})
		if err != nil {
			logging.Warn().Err(err).Msg("anthropic provider unavailable")
		} else {
			registry.Register(provider)
		}
	}

	if pc, ok := cfg.Provider["openai"]; ok && pc.APIKey != "" && !pc.Disable {
		provider, err := NewOpenAIProvider(ctx, &OpenAIConfig{
			APIKey:     pc.APIKey,
			BaseURL:    pc.BaseURL,
			Model:      pc.Model,
			MaxTokens:  pc.MaxTokens,
			UseAzure:   pc.UseAzure,
			APIVersion: pc.APIVersion,
		})
		if err != nil {
			logging.Warn().Err(err).Msg("openai provider unavailable")
		} else {
			registry.Register(provider)
		}
	}

	return registry, nil
}

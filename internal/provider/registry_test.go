package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/pkg/types"
)

// stubProvider is a registry fixture; it never opens a real stream.
type stubProvider struct {
	id string
}

func (s *stubProvider) ID() string   { return s.id }
func (s *stubProvider) Name() string { return s.id }
func (s *stubProvider) CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	return nil, NewError(s.id, context.Canceled)
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubProvider{id: "openai"})

	p, err := r.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.ID())

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubProvider{id: "openai"})
	r.Register(&stubProvider{id: "anthropic"})

	assert.Len(t, r.List(), 2)
}

func TestRegistry_Default(t *testing.T) {
	cfg := &types.Config{Model: "openai/gpt-4o"}
	r := NewRegistry(cfg)
	r.Register(&stubProvider{id: "openai"})

	p, modelID, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "openai", p.ID())
	assert.Equal(t, "gpt-4o", modelID)
}

func TestRegistry_DefaultUnconfigured(t *testing.T) {
	r := NewRegistry(&types.Config{})
	_, _, err := r.Default()
	assert.Error(t, err)
}

func TestRegistry_DefaultMissingProviderPrefix(t *testing.T) {
	r := NewRegistry(&types.Config{Model: "gpt-4o"})
	_, _, err := r.Default()
	assert.Error(t, err)
}

func TestInitializeProviders_Empty(t *testing.T) {
	reg, err := InitializeProviders(context.Background(), &types.Config{})
	require.NoError(t, err)
	assert.Empty(t, reg.List())
}

// Package testutil provides helpers for end-to-end API tests.
package testutil

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/schema"

	"github.com/parley-ai/parley/internal/provider"
)

// ScriptedProvider is a completion backend that replays a fixed script.
type ScriptedProvider struct {
	// Fragments are yielded in order for every completion.
	Fragments []string
	// FailAfter injects a stream error after that many fragments.
	// Negative disables failure injection.
	FailAfter int
}

// NewScriptedProvider returns a provider that streams the given fragments.
func NewScriptedProvider(fragments ...string) *ScriptedProvider {
	return &ScriptedProvider{Fragments: fragments, FailAfter: -1}
}

func (p *ScriptedProvider) ID() string   { return "scripted" }
func (p *ScriptedProvider) Name() string { return "Scripted" }

func (p *ScriptedProvider) CreateCompletion(ctx context.Context, req *provider.CompletionRequest) (*provider.CompletionStream, error) {
	reader, writer := schema.Pipe[*schema.Message](len(p.Fragments) + 1)
	for i, f := range p.Fragments {
		if p.FailAfter >= 0 && i == p.FailAfter {
			break
		}
		writer.Send(&schema.Message{Role: schema.Assistant, Content: f}, nil)
	}
	if p.FailAfter >= 0 {
		writer.Send(nil, errors.New("scripted stream failure"))
	}
	writer.Close()
	return provider.NewCompletionStream("scripted", reader), nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/pkg/types"
)

func TestLoad_FromWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	content := `{
		// default model
		"model": "openai/gpt-4o",
		"stream": {"idleTimeoutMS": 30000},
		"provider": {
			"openai": {"apiKey": "{env:PARLEY_TEST_KEY}"}
		}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parley.jsonc"), []byte(content), 0644))
	t.Setenv("PARLEY_TEST_KEY", "sk-test")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "openai/gpt-4o", cfg.Model)
	assert.Equal(t, 30000, cfg.Stream.IdleTimeoutMS)
	assert.Equal(t, "sk-test", cfg.Provider["openai"].APIKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PARLEY_MODEL", "anthropic/claude-sonnet-4-20250514")
	t.Setenv("PARLEY_AUTH_SECRET", "hush")
	t.Setenv("PARLEY_LOG_LEVEL", "debug")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "anthropic/claude-sonnet-4-20250514", cfg.Model)
	assert.Equal(t, "hush", cfg.Auth.Secret)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InlineContent(t *testing.T) {
	t.Setenv("PARLEY_CONFIG_CONTENT", `{"model":"openai/gpt-4o-mini","log":{"pretty":true}}`)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "openai/gpt-4o-mini", cfg.Model)
	assert.True(t, cfg.Log.Pretty)
}

func TestMergeConfig_ProviderMap(t *testing.T) {
	target := &types.Config{Provider: map[string]types.ProviderConfig{
		"openai": {APIKey: "old"},
	}}
	source := &types.Config{Provider: map[string]types.ProviderConfig{
		"openai":    {APIKey: "new"},
		"anthropic": {APIKey: "also"},
	}}

	mergeConfig(target, source)

	assert.Equal(t, "new", target.Provider["openai"].APIKey)
	assert.Equal(t, "also", target.Provider["anthropic"].APIKey)
}

func TestSplitModelRef(t *testing.T) {
	p, m := SplitModelRef("openai/gpt-4o")
	assert.Equal(t, "openai", p)
	assert.Equal(t, "gpt-4o", m)

	p, m = SplitModelRef("gpt-4o")
	assert.Equal(t, "", p)
	assert.Equal(t, "gpt-4o", m)
}

func TestWatcher_ReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parley.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model":"openai/gpt-4o"}`), 0644))

	reloaded := make(chan *types.Config, 1)
	w, err := NewWatcher(dir, func(cfg *types.Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	require.NoError(t, err)
	require.NotNil(t, w)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"model":"openai/gpt-4o-mini"}`), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "openai/gpt-4o-mini", cfg.Model)
	case <-time.After(3 * time.Second):
		t.Fatal("config change not observed")
	}
}

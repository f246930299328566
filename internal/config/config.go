// Package config provides configuration loading and path management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/parley-ai/parley/pkg/types"
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.config/parley/)
// 2. Working-directory config (parley.json / parley.jsonc)
// 3. PARLEY_CONFIG file
// 4. PARLEY_CONFIG_CONTENT inline JSON
// 5. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
	}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Global config
	globalPath := GetPaths().Config
	loadOnce(filepath.Join(globalPath, "parley.json"))
	loadOnce(filepath.Join(globalPath, "parley.jsonc"))

	// 2. Working-directory config
	if directory != "" {
		loadOnce(filepath.Join(directory, "parley.json"))
		loadOnce(filepath.Join(directory, "parley.jsonc"))
	}

	// 3. PARLEY_CONFIG file override
	if configPath := os.Getenv("PARLEY_CONFIG"); configPath != "" {
		loadOnce(configPath)
	}

	// 4. PARLEY_CONFIG_CONTENT inline JSON
	if configContent := os.Getenv("PARLEY_CONFIG_CONTENT"); configContent != "" {
		var inlineConfig types.Config
		if err := json.Unmarshal([]byte(configContent), &inlineConfig); err == nil {
			mergeConfig(config, &inlineConfig)
		}
	}

	// 5. Environment variables (highest priority)
	applyEnvOverrides(config)

	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	// Strip JSONC comments using tidwall/jsonc
	data = jsonc.ToJSON(data)

	// Apply {env:VAR} interpolation
	data = interpolate(data)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} placeholders.
func interpolate(data []byte) []byte {
	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
	return []byte(str)
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.Model != "" {
		target.Model = source.Model
	}

	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}

	if source.Auth.Secret != "" {
		target.Auth.Secret = source.Auth.Secret
	}

	if source.Stream.IdleTimeoutMS != 0 {
		target.Stream.IdleTimeoutMS = source.Stream.IdleTimeoutMS
	}
	if source.Stream.ConnectRetries != 0 {
		target.Stream.ConnectRetries = source.Stream.ConnectRetries
	}

	if source.Log.Level != "" {
		target.Log.Level = source.Log.Level
	}
	if source.Log.Pretty {
		target.Log.Pretty = true
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	// Provider API keys
	providerEnvMap := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
	}

	for provider, envVar := range providerEnvMap {
		if apiKey := os.Getenv(envVar); apiKey != "" {
			if config.Provider == nil {
				config.Provider = make(map[string]types.ProviderConfig)
			}
			p := config.Provider[provider]
			if p.APIKey == "" {
				p.APIKey = apiKey
				config.Provider[provider] = p
			}
		}
	}

	if model := os.Getenv("PARLEY_MODEL"); model != "" {
		config.Model = model
	}

	if secret := os.Getenv("PARLEY_AUTH_SECRET"); secret != "" {
		config.Auth.Secret = secret
	}

	if level := os.Getenv("PARLEY_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SplitModelRef splits a "provider/model" reference into its parts.
// An unqualified reference is returned as the model with no provider.
func SplitModelRef(ref string) (providerID, modelID string) {
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", ref
}

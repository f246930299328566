package types

// Config represents the Parley server configuration.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty"`

	// Model selection, "provider/model" (e.g. "openai/gpt-4o").
	Model string `json:"model,omitempty"`

	// Provider configs, keyed by provider id.
	Provider map[string]ProviderConfig `json:"provider,omitempty"`

	// Auth settings.
	Auth AuthConfig `json:"auth,omitempty"`

	// Stream settings for the turn pipeline.
	Stream StreamConfig `json:"stream,omitempty"`

	// Log settings.
	Log LogConfig `json:"log,omitempty"`
}

// ProviderConfig holds configuration for a specific completion provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`
	Model   string `json:"model,omitempty"`

	// Azure configuration (OpenAI-compatible deployments).
	UseAzure   bool   `json:"useAzure,omitempty"`
	APIVersion string `json:"apiVersion,omitempty"`

	MaxTokens int `json:"maxTokens,omitempty"`

	// Disable provider without removing its config.
	Disable bool `json:"disable,omitempty"`
}

// AuthConfig holds bearer-token auth settings. An empty Secret puts the
// server in development mode with a fixed dev identity.
type AuthConfig struct {
	Secret string `json:"secret,omitempty"`
}

// StreamConfig holds turn-streaming settings.
type StreamConfig struct {
	// IdleTimeoutMS is the maximum allowed gap between fragments, in
	// milliseconds. A breach is treated as a provider error. 0 = default.
	IdleTimeoutMS int `json:"idleTimeoutMS,omitempty"`

	// ConnectRetries bounds the backoff retries when opening a stream.
	// Only the initial request is retried, never a stream mid-flight.
	ConnectRetries int `json:"connectRetries,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Pretty bool   `json:"pretty,omitempty"`
}

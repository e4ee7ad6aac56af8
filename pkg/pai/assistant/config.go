// Package assistant – config.go defines all configuration for the PAI core.
package assistant

import (
	"time"

	"github.com/quintaverde/pai/pkg/pai/devices"
	"github.com/quintaverde/pai/pkg/pai/directory"
	"github.com/quintaverde/pai/pkg/pai/snapshots"
)

// Config holds all assistant configuration.
type Config struct {
	// Name is the assistant name used in prompts and replies.
	Name string `yaml:"name"`

	// Model is the LLM model to use (e.g. "gpt-4o-mini").
	Model string `yaml:"model"`

	// PropertyInfo is static property information appended to every system
	// prompt (address, quiet hours, house rules).
	PropertyInfo string `yaml:"property_info"`

	// API configures the LLM endpoint.
	API APIConfig `yaml:"api"`

	// Agent configures the orchestration loop.
	Agent AgentConfig `yaml:"agent"`

	// Directory configures the capability store backend.
	Directory directory.Config `yaml:"directory"`

	// Devices configures the downstream device APIs.
	Devices devices.Config `yaml:"devices"`

	// Server configures the HTTP front doors.
	Server ServerConfig `yaml:"server"`

	// Voice configures telephony caller resolution.
	Voice VoiceConfig `yaml:"voice"`

	// Snapshots configures the camera snapshot poller.
	Snapshots snapshots.Config `yaml:"snapshots"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds the LLM API endpoint configuration.
type APIConfig struct {
	// BaseURL is the OpenAI-compatible endpoint (default: api.openai.com/v1).
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests. Prefer the OS keyring or PAI_API_KEY
	// over putting it here.
	APIKey string `yaml:"api_key"`
}

// AgentConfig holds the orchestration loop constants. All of these are
// adjustable configuration, not fixed contracts.
type AgentConfig struct {
	// MaxRounds is the max model-call/tool-execution cycles per turn (default: 3).
	MaxRounds int `yaml:"max_rounds"`

	// HistoryWindow is how many prior turns are sent to the model (default: 20).
	HistoryWindow int `yaml:"history_window"`

	// MaxRetries is how many times a rate-limited or timed-out model call is
	// retried (default: 3).
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoffSeconds is the linear backoff unit between retries (default: 2).
	RetryBackoffSeconds int `yaml:"retry_backoff_seconds"`

	// LLMTimeoutSeconds is the overall timeout for one model call (default: 45).
	LLMTimeoutSeconds int `yaml:"llm_timeout_seconds"`
}

// MaxRoundsOrDefault returns the round limit with the default applied.
func (c AgentConfig) MaxRoundsOrDefault() int {
	if c.MaxRounds > 0 {
		return c.MaxRounds
	}
	return 3
}

// HistoryWindowOrDefault returns the history window with the default applied.
func (c AgentConfig) HistoryWindowOrDefault() int {
	if c.HistoryWindow > 0 {
		return c.HistoryWindow
	}
	return 20
}

// MaxRetriesOrDefault returns the retry count with the default applied.
func (c AgentConfig) MaxRetriesOrDefault() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return 3
}

// RetryBackoff returns the linear backoff unit.
func (c AgentConfig) RetryBackoff() time.Duration {
	if c.RetryBackoffSeconds > 0 {
		return time.Duration(c.RetryBackoffSeconds) * time.Second
	}
	return 2 * time.Second
}

// LLMTimeout returns the per-call model timeout.
func (c AgentConfig) LLMTimeout() time.Duration {
	if c.LLMTimeoutSeconds > 0 {
		return time.Duration(c.LLMTimeoutSeconds) * time.Second
	}
	return 45 * time.Second
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Address is the listen address (default: ":8080").
	Address string `yaml:"address"`
}

// VoiceConfig configures voice caller identity resolution.
type VoiceConfig struct {
	// ContactRoles maps a directory contact type to the effective role for
	// voice callers, e.g. tenant → resident.
	ContactRoles map[string]string `yaml:"contact_roles"`
}

// RoleForContactType returns the effective role for a contact type,
// defaulting to the base tier for unmapped types.
func (v VoiceConfig) RoleForContactType(contactType string) Role {
	if name, ok := v.ContactRoles[contactType]; ok {
		return ParseRole(name)
	}
	return RoleBase
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the log format ("json", "text").
	Format string `yaml:"format"`
}

// DefaultConfig returns the default assistant configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:  "PAI",
		Model: "gpt-4o-mini",
		API: APIConfig{
			BaseURL: "https://api.openai.com/v1",
		},
		Agent: AgentConfig{
			MaxRounds:           3,
			HistoryWindow:       20,
			MaxRetries:          3,
			RetryBackoffSeconds: 2,
			LLMTimeoutSeconds:   45,
		},
		Directory: directory.DefaultConfig(),
		Devices:   devices.DefaultConfig(),
		Server: ServerConfig{
			Address: ":8080",
		},
		Voice: VoiceConfig{
			ContactRoles: map[string]string{
				"tenant":   "resident",
				"resident": "resident",
				"staff":    "staff",
				"owner":    "admin",
			},
		},
		Snapshots: snapshots.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

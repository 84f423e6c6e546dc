// Package config loads and validates the application configuration: a JSON
// file in the XDG config directory with environment overrides for the pieces
// that differ between machines.
package config

import "fmt"

// Config is the complete application configuration.
type Config struct {
	// Version of the configuration format
	Version string `json:"version"`

	// Defaults selects the provider/model new chats start with.
	Defaults DefaultsConfig `json:"defaults"`

	// Providers holds per-provider connection settings.
	Providers ProvidersConfig `json:"providers"`

	// Search configures the web-search augmenter. Leaving the endpoint
	// empty disables augmentation.
	Search SearchConfig `json:"search,omitempty"`

	// Logging configures log output.
	Logging LoggingConfig `json:"logging,omitempty"`

	// Debug enables debug-level logging.
	Debug bool `json:"debug,omitempty"`
}

// DefaultsConfig is the provider/model selection used for new chats.
type DefaultsConfig struct {
	Provider string `json:"provider" validate:"required,oneof=openai google local"`
	Model    string `json:"model" validate:"required"`
}

// ProvidersConfig holds per-provider connection settings. Credentials never
// live here; they are kept in the encrypted secret store.
type ProvidersConfig struct {
	OpenAI OpenAIConfig `json:"openai,omitempty"`
	Google GoogleConfig `json:"google,omitempty"`
	Local  LocalConfig  `json:"local,omitempty"`
}

// OpenAIConfig configures the OpenAI backend.
type OpenAIConfig struct {
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`
}

// GoogleConfig configures the Gemini backend.
type GoogleConfig struct {
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`
}

// LocalConfig configures the on-device runtime.
type LocalConfig struct {
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`
}

// SearchConfig configures the web-search augmenter.
type SearchConfig struct {
	Endpoint string `json:"endpoint,omitempty" validate:"omitempty,url"`
	APIKey   string `json:"api_key,omitempty"`
	MaxPages int    `json:"max_pages,omitempty" validate:"omitempty,min=1,max=10"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	File   string `json:"file,omitempty"`
	Format string `json:"format,omitempty" validate:"omitempty,oneof=text json"`
}

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config field %s: %s", e.Field, e.Message)
}

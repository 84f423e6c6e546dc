package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Defaults: DefaultsConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Search: SearchConfig{
			MaxPages: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultConfigPath is the user configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "chatter", "config.json")
}

// Load reads the configuration file at path, merged over the defaults. A
// missing file yields the defaults unchanged. An empty path uses
// DefaultConfigPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config from %s: %w", path, err)
	}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyEnvironmentOverrides(config)

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration as pretty-printed JSON, creating the parent
// directory when needed.
func Save(config *Config, path string) error {
	if err := Validate(config); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration against its struct tags.
func Validate(config *Config) error {
	if config.Version == "" {
		config.Version = "1.0"
	}
	if err := validator.New().Struct(config); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				return ValidationError{
					Field:   e.Namespace(),
					Message: fmt.Sprintf("validation failed on tag '%s'", e.Tag()),
					Value:   e.Value(),
				}
			}
		}
		return err
	}
	return nil
}

func applyEnvironmentOverrides(config *Config) {
	if v := os.Getenv("CHATTER_SEARCH_ENDPOINT"); v != "" {
		config.Search.Endpoint = v
	}
	if v := os.Getenv("CHATTER_SEARCH_API_KEY"); v != "" {
		config.Search.APIKey = v
	}
	if v := os.Getenv("CHATTER_LOCAL_BASE_URL"); v != "" {
		config.Providers.Local.BaseURL = v
	}
	if v := os.Getenv("CHATTER_DEBUG"); v == "1" || v == "true" {
		config.Debug = true
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for relay.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides. Location: ~/.relay/config.toml.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete relay configuration.
type Config struct {
	// DefaultProvider is the provider used when none is specified:
	// "anthropic", "openrouter", or "ollama".
	DefaultProvider string `toml:"default_provider"`
	// DefaultModel overrides the provider's built-in default model.
	DefaultModel string `toml:"default_model"`

	Providers ProvidersConfig `toml:"providers"`
	Security  SecurityConfig  `toml:"security"`
	UI        UIConfig        `toml:"ui"`
	History   HistoryConfig   `toml:"history"`
}

// ProvidersConfig contains per-provider connection settings.
type ProvidersConfig struct {
	// OllamaURL is the URL of the local Ollama server.
	OllamaURL string `toml:"ollama_url"`
	// OllamaModel is the default model to use with Ollama.
	OllamaModel string `toml:"ollama_model"`
	// AnthropicModel is the default model for the Anthropic provider.
	AnthropicModel string `toml:"anthropic_model"`
	// OpenRouterModel is the default model for the OpenRouter provider.
	OpenRouterModel string `toml:"openrouter_model"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	// SealCredentials encrypts stored credentials at rest with AES-256-GCM.
	SealCredentials bool `toml:"seal_credentials"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// ShowStats displays per-response timing and token statistics.
	ShowStats bool `toml:"show_stats"`
	// CompactMode uses a more compact UI layout.
	CompactMode bool `toml:"compact_mode"`
}

// HistoryConfig contains conversation persistence configuration.
type HistoryConfig struct {
	// Enabled controls whether conversations are saved.
	Enabled bool `toml:"enabled"`
	// MaxConversations limits stored conversations (0 = unlimited).
	MaxConversations int `toml:"max_conversations"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		DefaultProvider: "anthropic",

		Providers: ProvidersConfig{
			OllamaURL:   "http://127.0.0.1:11434",
			OllamaModel: "llama3.2",
		},

		Security: SecurityConfig{
			SealCredentials: true,
		},

		UI: UIConfig{
			Theme:     "dark",
			ShowStats: true,
		},

		History: HistoryConfig{
			Enabled:          true,
			MaxConversations: 100,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the relay configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".relay"), nil
}

// Path returns the path to the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on the config file.
// SECURITY: Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD AND SAVE
// =============================================================================

// Load loads configuration from the default config file. A missing file
// yields defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file with validation.
// A missing file is not an error; defaults apply.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the configuration to a TOML file.
// SECURITY: Created with 0600 permissions (owner read/write only).
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# relay configuration file")
	fmt.Fprintln(file, "# Generated by relay - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

// SetDefaults fills in missing values.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.DefaultProvider == "" {
		c.DefaultProvider = defaults.DefaultProvider
	}
	if c.Providers.OllamaURL == "" {
		c.Providers.OllamaURL = defaults.Providers.OllamaURL
	}
	if c.Providers.OllamaModel == "" {
		c.Providers.OllamaModel = defaults.Providers.OllamaModel
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.History.MaxConversations == 0 {
		c.History.MaxConversations = defaults.History.MaxConversations
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	validProviders := map[string]bool{"anthropic": true, "openrouter": true, "ollama": true}
	if !validProviders[strings.ToLower(c.DefaultProvider)] {
		return ValidationError{
			Field:   "default_provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: anthropic, openrouter, ollama", c.DefaultProvider),
		}
	}

	if c.Providers.OllamaURL != "" {
		u, err := url.Parse(c.Providers.OllamaURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return ValidationError{
				Field:   "providers.ollama_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Providers.OllamaURL),
			}
		}
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		return ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		}
	}

	if c.History.MaxConversations < 0 {
		return ValidationError{
			Field:   "history.max_conversations",
			Message: "must be non-negative",
		}
	}

	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RELAY_PROVIDER: overrides default_provider
//   - RELAY_MODEL: overrides default_model
//   - RELAY_OLLAMA_URL: overrides providers.ollama_url
//   - RELAY_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if p := os.Getenv("RELAY_PROVIDER"); p != "" {
		c.DefaultProvider = p
	}
	if m := os.Getenv("RELAY_MODEL"); m != "" {
		c.DefaultModel = m
	}
	if u := os.Getenv("RELAY_OLLAMA_URL"); u != "" {
		c.Providers.OllamaURL = u
	}
	if t := os.Getenv("RELAY_THEME"); t != "" {
		c.UI.Theme = t
	}
}

// ModelFor returns the configured model for a provider, or empty for the
// provider's built-in default.
func (c *Config) ModelFor(provider string) string {
	switch strings.ToLower(provider) {
	case "anthropic":
		if c.Providers.AnthropicModel != "" {
			return c.Providers.AnthropicModel
		}
	case "openrouter":
		if c.Providers.OpenRouterModel != "" {
			return c.Providers.OpenRouterModel
		}
	case "ollama":
		if c.Providers.OllamaModel != "" {
			return c.Providers.OllamaModel
		}
	}
	return c.DefaultModel
}

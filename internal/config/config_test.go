// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if cfg.DefaultProvider != "anthropic" {
		t.Errorf("DefaultProvider = %q", cfg.DefaultProvider)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Providers.OllamaURL != "http://127.0.0.1:11434" {
		t.Errorf("OllamaURL = %q", cfg.Providers.OllamaURL)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.DefaultProvider = "ollama"
	cfg.UI.Theme = "light"
	cfg.Providers.OllamaModel = "qwen2.5:7b"
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.DefaultProvider != "ollama" {
		t.Errorf("DefaultProvider = %q", loaded.DefaultProvider)
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("Theme = %q", loaded.UI.Theme)
	}
	if loaded.Providers.OllamaModel != "qwen2.5:7b" {
		t.Errorf("OllamaModel = %q", loaded.Providers.OllamaModel)
	}
}

func TestSavedFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits not meaningful on windows")
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveTo(Default(), path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %o, want 0600", info.Mode().Perm())
	}
}

func TestPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("default_provider = \"openrouter\"\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.DefaultProvider != "openrouter" {
		t.Errorf("DefaultProvider = %q", cfg.DefaultProvider)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme should default to dark, got %q", cfg.UI.Theme)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"bad provider", func(c *Config) { c.DefaultProvider = "gemini" }, "default_provider"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"bad ollama url", func(c *Config) { c.Providers.OllamaURL = "not a url" }, "providers.ollama_url"},
		{"negative retention", func(c *Config) { c.History.MaxConversations = -1 }, "history.max_conversations"},
	}

	for _, tt := range tests {
		cfg := Default()
		tt.mod(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.field) {
			t.Errorf("%s: err = %v, want field %s", tt.name, err, tt.field)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RELAY_PROVIDER", "ollama")
	t.Setenv("RELAY_MODEL", "llama3.2:70b")
	t.Setenv("RELAY_THEME", "light")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.DefaultProvider != "ollama" {
		t.Errorf("DefaultProvider = %q", cfg.DefaultProvider)
	}
	if cfg.DefaultModel != "llama3.2:70b" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
}

func TestModelFor(t *testing.T) {
	cfg := Default()
	cfg.Providers.AnthropicModel = "claude-sonnet-4-20250514"
	cfg.DefaultModel = "fallback"

	if got := cfg.ModelFor("anthropic"); got != "claude-sonnet-4-20250514" {
		t.Errorf("ModelFor(anthropic) = %q", got)
	}
	if got := cfg.ModelFor("openrouter"); got != "fallback" {
		t.Errorf("ModelFor(openrouter) = %q", got)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTo(Default(), path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.debounce = 50 * time.Millisecond
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	cfg := Default()
	cfg.DefaultProvider = "ollama"
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	select {
	case got := <-changed:
		if got.DefaultProvider != "ollama" {
			t.Errorf("reloaded DefaultProvider = %q", got.DefaultProvider)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never delivered the reloaded config")
	}
}

func TestWatcherSkipsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTo(Default(), path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.debounce = 50 * time.Millisecond
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// A half-saved or broken file must not reach the callback.
	if err := os.WriteFile(path, []byte("default_provider = \"not-a-provider\"\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	select {
	case got := <-changed:
		t.Errorf("invalid config delivered: %+v", got)
	case <-time.After(500 * time.Millisecond):
		// expected: nothing delivered
	}
}

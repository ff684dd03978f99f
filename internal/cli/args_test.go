// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgParserFlags(t *testing.T) {
	args := NewArgParser([]string{"anthropic", "--oauth", "--model=claude-sonnet-4", "-p", "openrouter"})

	assert.Equal(t, "anthropic", args.Positional(0))
	assert.True(t, args.BoolFlag("oauth"))
	assert.Equal(t, "claude-sonnet-4", args.Flag("model"))
	assert.Equal(t, "openrouter", args.Flag("p"))
	assert.Equal(t, 1, args.PositionalCount())
}

func TestArgParserExplicitBool(t *testing.T) {
	args := NewArgParser([]string{"--stats=false", "--plain=true"})

	assert.False(t, args.BoolFlag("stats"))
	assert.True(t, args.BoolFlag("plain"))
	assert.True(t, args.HasFlag("stats"))
}

func TestArgParserDefaults(t *testing.T) {
	args := NewArgParser(nil)

	assert.Equal(t, "", args.Positional(0))
	assert.Equal(t, "", args.Flag("missing"))
	assert.False(t, args.BoolFlag("missing"))
	assert.False(t, args.HasFlag("missing"))
	assert.Equal(t, "fallback", args.FlagOrDefault("missing", "fallback"))
}

func TestArgParserFlagValueConsumesNext(t *testing.T) {
	// A flag followed by another flag is boolean, not a flag with a value.
	args := NewArgParser([]string{"--plain", "--model", "llama3.2", "hello"})

	assert.True(t, args.BoolFlag("plain"))
	assert.Equal(t, "llama3.2", args.Flag("model"))
	assert.Equal(t, "hello", args.Positional(0))
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for relay CLI.
//
// USABILITY: TTY detection for proper terminal handling. Interactive
// prompts and key entry need a real terminal; piped stdin gets a clear
// error instead of a hung read.

package cli

import (
	"errors"
	"os"

	"golang.org/x/term"
)

// DefaultTerminalWidth is the fallback width when detection fails.
const DefaultTerminalWidth = 80

// ErrNotATerminal indicates interactive input was requested without a TTY.
var ErrNotATerminal = errors.New("stdin is not a terminal")

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the current terminal width, or the default when it
// cannot be determined.
func TerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return DefaultTerminalWidth
	}
	return w
}

// readSecret reads a line from stdin without echoing it.
// SECURITY: key material never appears on the terminal or in scrollback.
func readSecret(prompt string) (string, error) {
	if !IsTTY() {
		return "", ErrNotATerminal
	}
	os.Stdout.WriteString(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	os.Stdout.WriteString("\n")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the relay TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Purple - Primary accent, assistant messages, selections
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - Brand color, info, user highlights
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - Success states, connected indicator
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - Errors, disconnected states
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings, retry-in-progress states
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE AND TEXT COLORS
// =============================================================================

var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// Header is the top title bar.
	Header = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true).
		Padding(0, 1)

	// StatusBar is the bottom status line.
	StatusBar = lipgloss.NewStyle().
			Foreground(TextSecondary).
			Padding(0, 1)

	// UserLabel prefixes user messages.
	UserLabel = lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true)

	// AssistantLabel prefixes assistant messages.
	AssistantLabel = lipgloss.NewStyle().
			Foreground(Purple).
			Bold(true)

	// ErrorText renders inline errors.
	ErrorText = lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true)

	// WarningText renders retry and reconnect notices.
	WarningText = lipgloss.NewStyle().
			Foreground(Amber)

	// SuccessText renders connection confirmations.
	SuccessText = lipgloss.NewStyle().
			Foreground(Emerald)

	// MutedText renders hints and timestamps.
	MutedText = lipgloss.NewStyle().
			Foreground(TextMuted)

	// InputBox frames the prompt input area.
	InputBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Overlay).
			Padding(0, 1)

	// Selected highlights the active item in pickers.
	Selected = lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true)
)

// =============================================================================
// THEME SELECTION
// =============================================================================

// ApplyTheme configures the lipgloss background detection for the
// configured theme. "auto" defers to terminal detection.
func ApplyTheme(theme string) {
	switch theme {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	default:
		lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())
	}
}

// StatusIndicators provides shape indicators alongside colors.
// ACCESSIBILITY: ASCII-only indicators for colorblind users.
var StatusIndicators = struct {
	Success string
	Error   string
	Warning string
	Info    string
}{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}

// RenderSuccess renders a success message with its shape indicator.
func RenderSuccess(message string) string {
	return SuccessText.Bold(true).Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error message with its shape indicator.
func RenderError(message string) string {
	return ErrorText.Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning message with its shape indicator.
func RenderWarning(message string) string {
	return WarningText.Bold(true).Render(StatusIndicators.Warning + " " + message)
}

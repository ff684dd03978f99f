// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay-tui/internal/auth"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// =============================================================================
// CONNECT FLOW
//
// /connect walks: provider pick -> method pick (when OAuth is available) ->
// key entry or code paste -> back to chat. Esc abandons the flow at any
// step; an abandoned OAuth flow is discarded, never resumed.
// =============================================================================

func (m *Model) handlePickProviderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.state = stateChat

	case "up", "k":
		if m.pickIndex > 0 {
			m.pickIndex--
		}

	case "down", "j":
		if m.pickIndex < len(m.pickIDs)-1 {
			m.pickIndex++
		}

	case "enter":
		id := m.pickIDs[m.pickIndex]
		p, err := m.registry.Get(id)
		if err != nil {
			m.status = err.Error()
			m.state = stateChat
			break
		}
		m.providerID = id
		m.conv.Provider = string(id)

		switch {
		case !p.RequiresKey():
			m.state = stateChat
			m.status = fmt.Sprintf("%s needs no credentials", id)
		case p.SupportsOAuth():
			m.methodIndex = 0
			m.state = statePickMethod
		default:
			m.beginKeyEntry()
		}
	}
	return m, nil
}

func (m *Model) handlePickMethodKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.state = stateChat

	case "up", "k", "down", "j":
		m.methodIndex = 1 - m.methodIndex

	case "enter":
		if m.methodIndex == 0 {
			m.beginKeyEntry()
			break
		}
		flow, err := m.sess.BeginOAuth(m.providerID)
		if err != nil {
			m.status = "oauth: " + err.Error()
			m.state = stateChat
			break
		}
		m.flow = flow
		m.entry.Reset()
		m.entry.EchoMode = textinput.EchoNormal
		m.entry.Placeholder = "paste code#state here"
		m.entry.Focus()
		m.state = stateCodeEntry
	}
	return m, nil
}

func (m *Model) beginKeyEntry() {
	m.entry.Reset()
	// SECURITY: Never echo key material to the terminal.
	m.entry.EchoMode = textinput.EchoPassword
	m.entry.Placeholder = "API key"
	m.entry.Focus()
	m.state = stateKeyEntry
}

func (m *Model) handleKeyEntryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.entry.Reset()
		m.state = stateChat
		return m, nil

	case "enter":
		key := strings.TrimSpace(m.entry.Value())
		m.entry.Reset()
		m.state = stateChat

		if key == "" {
			m.status = "cancelled"
			return m, nil
		}
		if err := m.sess.ConnectAPIKey(m.providerID, key); err != nil {
			if errors.Is(err, auth.ErrProviderRejected) {
				m.status = "key format rejected; not saved"
			} else {
				m.status = "connect: " + err.Error()
			}
			return m, nil
		}
		m.status = "key saved; validating"
		return m, m.validateCmd()
	}

	var cmd tea.Cmd
	m.entry, cmd = m.entry.Update(msg)
	return m, cmd
}

func (m *Model) handleCodeEntryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		if m.flow != nil {
			m.flow.Cancel()
			m.flow = nil
		}
		m.entry.Reset()
		m.state = stateChat
		m.status = "oauth cancelled"
		return m, nil

	case "enter":
		pasted := strings.TrimSpace(m.entry.Value())
		m.entry.Reset()
		if pasted == "" {
			return m, nil
		}

		flow := m.flow
		m.flow = nil
		m.state = stateChat

		err := m.sess.CompleteOAuth(context.Background(), flow, pasted)
		switch {
		case err == nil:
			m.status = fmt.Sprintf("connected to %s via oauth", m.providerID)
		case errors.Is(err, auth.ErrStateMismatch):
			m.status = "authorization response did not match this attempt; run /connect again"
		case errors.Is(err, auth.ErrInvalidCode):
			m.status = "could not parse the pasted code; run /connect again"
		default:
			m.status = "oauth: " + err.Error()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.entry, cmd = m.entry.Update(msg)
	return m, cmd
}

// =============================================================================
// CONNECT FLOW VIEWS
// =============================================================================

func (m *Model) viewPickProvider() string {
	var sb strings.Builder
	sb.WriteString(styles.Header.Render("Connect a provider"))
	sb.WriteString("\n\n")

	for i, id := range m.pickIDs {
		line := "  " + string(id)
		if p, err := m.registry.Get(id); err == nil && !p.RequiresKey() {
			line += styles.MutedText.Render(" (no key needed)")
		}
		if i == m.pickIndex {
			line = styles.Selected.Render("> " + string(id))
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(styles.MutedText.Render("up/down to choose, enter to select, esc to cancel"))
	return sb.String()
}

func (m *Model) viewPickMethod() string {
	options := []string{"API key", "OAuth (browser sign-in)"}

	var sb strings.Builder
	sb.WriteString(styles.Header.Render("Connect " + string(m.providerID)))
	sb.WriteString("\n\n")
	for i, opt := range options {
		if i == m.methodIndex {
			sb.WriteString(styles.Selected.Render("> "+opt) + "\n")
		} else {
			sb.WriteString("  " + opt + "\n")
		}
	}
	sb.WriteString("\n")
	sb.WriteString(styles.MutedText.Render("enter to select, esc to cancel"))
	return sb.String()
}

func (m *Model) viewEntry(title string) string {
	var sb strings.Builder
	sb.WriteString(styles.Header.Render(title))
	sb.WriteString("\n\n")
	sb.WriteString(styles.InputBox.Render(m.entry.View()))
	sb.WriteString("\n")
	sb.WriteString(styles.MutedText.Render("enter to submit, esc to cancel"))
	return sb.String()
}

func (m *Model) viewCodeEntry() string {
	var sb strings.Builder
	sb.WriteString(styles.Header.Render("OAuth sign-in for " + string(m.providerID)))
	sb.WriteString("\n\n")
	sb.WriteString("Open this URL in your browser and authorize access:\n\n")
	if m.flow != nil {
		sb.WriteString(styles.SuccessText.Render(m.flow.AuthorizeURL()))
	}
	sb.WriteString("\n\n")
	sb.WriteString("Then paste the code shown after approval:\n\n")
	sb.WriteString(styles.InputBox.Render(m.entry.View()))
	sb.WriteString("\n")
	sb.WriteString(styles.MutedText.Render("enter to submit, esc to cancel"))
	return sb.String()
}

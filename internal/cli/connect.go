// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// connect.go - Credential commands for the relay CLI.
//
// "relay connect" saves a credential without entering the chat UI, which
// matters for scripted setups and for terminals where the full-screen UI
// is unavailable. Key entry never echoes; OAuth prints the authorize URL
// and reads the pasted code#state response from stdin.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/relay-tui/internal/auth"
	"github.com/jeranaias/relay-tui/internal/session"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// validateTimeout bounds the post-connect credential probe.
const validateTimeout = 15 * time.Second

// RunConnect handles "relay connect <provider> [--key|--oauth]".
func (a *App) RunConnect(args *ArgParser) error {
	id := auth.ProviderID(args.Positional(0))
	if id == "" {
		return fmt.Errorf("usage: relay connect <provider>; available: %s", a.providerList())
	}

	p, err := a.Registry.Get(id)
	if err != nil {
		return fmt.Errorf("%w: %s; available: %s", err, id, a.providerList())
	}

	if !p.RequiresKey() {
		fmt.Printf("%s needs no credentials\n", id)
		return nil
	}

	useOAuth := args.BoolFlag("oauth")
	if !useOAuth && !args.BoolFlag("key") && p.SupportsOAuth() {
		choice, err := promptLine(fmt.Sprintf("Connect %s with [1] API key or [2] OAuth? ", id))
		if err != nil {
			return err
		}
		useOAuth = strings.TrimSpace(choice) == "2"
	}

	if useOAuth {
		if !p.SupportsOAuth() {
			return fmt.Errorf("%s does not support oauth sign-in", id)
		}
		return a.connectOAuth(id)
	}
	return a.connectAPIKey(id)
}

func (a *App) connectAPIKey(id auth.ProviderID) error {
	key, err := readSecret(fmt.Sprintf("API key for %s: ", id))
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("no key entered")
	}

	if err := a.Session.ConnectAPIKey(id, key); err != nil {
		if errors.Is(err, auth.ErrProviderRejected) {
			return fmt.Errorf("key format rejected for %s; nothing was saved", id)
		}
		return err
	}

	fmt.Println(styles.RenderSuccess("key saved"))
	return a.validateAfterConnect(id)
}

func (a *App) connectOAuth(id auth.ProviderID) error {
	flow, err := a.Session.BeginOAuth(id)
	if err != nil {
		return err
	}

	fmt.Println("Open this URL in your browser and authorize access:")
	fmt.Println()
	fmt.Println("  " + flow.AuthorizeURL())
	fmt.Println()

	pasted, err := promptLine("Paste the code shown after approval: ")
	if err != nil {
		flow.Cancel()
		return err
	}
	pasted = strings.TrimSpace(pasted)
	if pasted == "" {
		flow.Cancel()
		return errors.New("no code entered")
	}

	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	defer cancel()

	switch err := a.Session.CompleteOAuth(ctx, flow, pasted); {
	case err == nil:
		fmt.Println(styles.RenderSuccess(fmt.Sprintf("connected to %s via oauth", id)))
		return nil
	case errors.Is(err, auth.ErrStateMismatch):
		return errors.New("authorization response did not match this attempt; run connect again")
	case errors.Is(err, auth.ErrInvalidCode):
		return errors.New("could not parse the pasted code; expected code#state")
	default:
		return err
	}
}

// validateAfterConnect probes the fresh credential so a mistyped key is
// caught now rather than on the first chat message.
func (a *App) validateAfterConnect(id auth.ProviderID) error {
	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	defer cancel()

	switch err := a.Session.EnsureValidated(ctx, id); {
	case err == nil:
		fmt.Println(styles.RenderSuccess(fmt.Sprintf("%s credential validated", id)))
		return nil
	case errors.Is(err, session.ErrReconnectRequired):
		return fmt.Errorf("%s rejected the credential; it has been removed", id)
	default:
		// Inconclusive probes and transport errors are not fatal here; the
		// first real request will surface a genuine problem.
		fmt.Println(styles.RenderWarning("could not confirm the credential: " + err.Error()))
		return nil
	}
}

// RunDisconnect handles "relay disconnect <provider>".
func (a *App) RunDisconnect(args *ArgParser) error {
	id := auth.ProviderID(args.Positional(0))
	if id == "" {
		return fmt.Errorf("usage: relay disconnect <provider>; available: %s", a.providerList())
	}
	if _, err := a.Registry.Get(id); err != nil {
		return fmt.Errorf("%w: %s", err, id)
	}
	if err := a.Session.Disconnect(id); err != nil {
		return err
	}
	fmt.Printf("disconnected %s\n", id)
	return nil
}

func (a *App) providerList() string {
	ids := a.Registry.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

// promptLine prints a prompt and reads one line from stdin.
func promptLine(prompt string) (string, error) {
	if !IsTTY() {
		return "", ErrNotATerminal
	}
	os.Stdout.WriteString(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return line, nil
}

// relay - A terminal chat client for LLM providers.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay-tui/internal/auth"
	"github.com/jeranaias/relay-tui/internal/cli"
	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/history"
	"github.com/jeranaias/relay-tui/internal/provider"
	"github.com/jeranaias/relay-tui/internal/session"
	"github.com/jeranaias/relay-tui/internal/ui/chat"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not load config, using defaults:", err)
		cfg = config.Default()
	}
	styles.ApplyTheme(cfg.UI.Theme)

	app := buildApp(cfg)

	args := os.Args[1:]
	command := ""
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "", "chat":
		parser := cli.NewArgParser(args)
		if parser.BoolFlag("plain") || !cli.IsTTY() {
			if err := app.RunChat(parser); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
			return
		}
		runTUI(app, parser)
	default:
		os.Exit(app.Run(command, args))
	}
}

// buildApp constructs the shared subsystems every command uses.
func buildApp(cfg *config.Config) *cli.App {
	registry := provider.DefaultRegistry()
	store := buildCredentialStore(cfg)

	var hist *history.Store
	if cfg.History.Enabled {
		h, err := history.NewStore()
		if err != nil {
			fmt.Fprintln(os.Stderr, "warning: history disabled:", err)
		} else {
			h.MaxConversations = cfg.History.MaxConversations
			hist = h
		}
	}

	return &cli.App{
		Cfg:      cfg,
		Registry: registry,
		Session:  session.New(store, registry),
		Store:    store,
		History:  hist,
	}
}

// buildCredentialStore opens the file store, sealed at rest when configured.
func buildCredentialStore(cfg *config.Config) auth.Store {
	store, err := auth.NewFileStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: credentials will not persist:", err)
		return auth.NewMemoryStore()
	}

	if cfg.Security.SealCredentials {
		sealer, err := auth.NewSealer(auth.NewKeyStore())
		if err != nil {
			// Unsealed storage still works; 0600 permissions hold the line.
			fmt.Fprintln(os.Stderr, "warning: credential sealing unavailable:", err)
		} else {
			store.WithSealer(sealer)
		}
	}
	return store
}

// runTUI starts the full-screen chat interface.
func runTUI(app *cli.App, args *cli.ArgParser) {
	if id := args.Flag("provider"); id != "" {
		if _, err := app.Registry.Get(auth.ProviderID(id)); err != nil {
			fmt.Fprintf(os.Stderr, "error: unknown provider: %s\n", id)
			os.Exit(1)
		}
		app.Cfg.DefaultProvider = id
	}
	if name := args.Flag("model"); name != "" {
		app.Cfg.DefaultModel = name
	}

	// Live-reload the theme when the config file changes on disk.
	if path, err := config.Path(); err == nil {
		if w, err := config.NewWatcher(path, func(next *config.Config) {
			styles.ApplyTheme(next.UI.Theme)
		}); err == nil {
			if err := w.Watch(); err == nil {
				defer w.Close()
			}
		}
	}

	m := chat.New(app.Cfg, app.Session, app.Registry, app.History)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

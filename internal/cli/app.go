// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Command dispatch for the relay CLI.
//
// Commands:
//   relay                 Start the full-screen chat UI
//   relay chat            Start chat (add --plain for the line-mode REPL)
//   relay connect <id>    Save a credential for a provider
//   relay disconnect <id> Remove a provider's credential
//   relay status          Show provider connection status
//   relay version         Print the version
//   relay help            Show usage

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/relay-tui/internal/auth"
	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/history"
	"github.com/jeranaias/relay-tui/internal/provider"
	"github.com/jeranaias/relay-tui/internal/session"
)

// Version is the relay release version.
const Version = "0.2.0"

// App wires the CLI commands to the shared subsystems. main constructs one
// App and routes every subcommand through it.
type App struct {
	Cfg      *config.Config
	Registry *provider.Registry
	Session  *session.Session
	Store    auth.Store

	// History is nil when persistence is disabled in config.
	History *history.Store
}

// Run executes one CLI subcommand and returns the process exit code.
// The "chat" command and the bare invocation are handled by main, which
// owns the terminal; everything else lands here.
func (a *App) Run(command string, args []string) int {
	parser := NewArgParser(args)

	var err error
	switch command {
	case "connect":
		err = a.RunConnect(parser)
	case "disconnect":
		err = a.RunDisconnect(parser)
	case "status":
		err = a.RunStatus(parser)
	case "version":
		fmt.Printf("relay %s\n", Version)
	case "help", "-h", "--help":
		PrintUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", command)
		PrintUsage()
		return 2
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// PrintUsage writes command usage to stdout.
func PrintUsage() {
	fmt.Print(`relay - terminal chat for LLM providers

Usage:
  relay                   Start the full-screen chat UI
  relay chat [--plain]    Start chat; --plain uses a line-mode REPL
  relay connect <id>      Save a credential (anthropic, openrouter, ollama)
  relay disconnect <id>   Remove a provider's credential
  relay status            Show provider connection status
  relay version           Print the version
  relay help              Show this help

Connect flags:
  --oauth                 Use browser OAuth sign-in (when supported)
  --key                   Use API key entry

Chat flags:
  --plain                 Line-mode REPL instead of the full-screen UI
  --model NAME            Override the configured model
  --provider ID           Override the configured provider
`)
}

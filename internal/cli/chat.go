// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat REPL for the relay CLI.
//
// USABILITY: arrow-key history and line editing via liner; Ctrl+C cancels
// the current generation, Ctrl+D exits.
//
// The REPL is the fallback for terminals where the full-screen UI is
// unwanted (ssh sessions, scripts around a pty, screen readers). It speaks
// to the same session layer as the UI, so connection state and retry
// behavior are identical.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/relay-tui/internal/auth"
	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/history"
	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/provider"
	"github.com/jeranaias/relay-tui/internal/session"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// chatHistoryFileName stores REPL input history under the config directory.
const chatHistoryFileName = "cli_history"

// =============================================================================
// INPUT HISTORY
// =============================================================================

// replInput wraps liner with persistent input history.
type replInput struct {
	line        *liner.State
	historyFile string
}

func newReplInput() *replInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}

	r := &replInput{
		line:        line,
		historyFile: filepath.Join(dir, chatHistoryFileName),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *replInput) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *replInput) close() {
	if err := config.EnsureDir(); err == nil {
		// SECURITY: input history can contain sensitive prompts; 0600.
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// RunChat handles "relay chat --plain".
func (a *App) RunChat(args *ArgParser) error {
	if err := requireTTY(); err != nil {
		return err
	}

	providerID := auth.ProviderID(args.FlagOrDefault("provider", a.Cfg.DefaultProvider))
	if _, err := a.Registry.Get(providerID); err != nil {
		return fmt.Errorf("%w: %s", err, providerID)
	}
	modelName := args.FlagOrDefault("model", a.Cfg.ModelFor(string(providerID)))

	conv := model.NewConversation()
	conv.Provider = string(providerID)
	conv.Model = modelName

	input := newReplInput()
	defer input.close()

	fmt.Printf("relay %s - chatting with %s (%s)\n", Version, providerID, modelName)
	fmt.Println(styles.MutedText.Render("/help for commands, Ctrl+D to exit"))
	fmt.Println()

	for {
		line, err := input.read("> ")
		if err != nil {
			if err == liner.ErrPromptAborted {
				continue
			}
			// io.EOF on Ctrl+D.
			fmt.Println()
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := a.replCommand(line, conv, &providerID, &modelName); quit {
				break
			}
			continue
		}

		a.replSend(conv, providerID, modelName, line)
	}

	a.autoSave(conv)
	return nil
}

// replSend runs one chat turn, printing tokens as they stream.
func (a *App) replSend(conv *model.Conversation, id auth.ProviderID, modelName, text string) {
	conv.AddUserMessage(text)
	asst := conv.AddAssistantMessage()

	// Ctrl+C during generation cancels this turn only.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := provider.ChatRequest{
		Model:    modelName,
		Messages: conv.ToChatMessages(),
	}

	stats := model.NewStatistics()
	sink := func(ev session.Event) {
		switch e := ev.(type) {
		case session.TokenChunk:
			stats.RecordFirstToken()
			conv.AppendToLast(e.Text)
			fmt.Print(e.Text)
		case session.AuthError:
			fmt.Println()
			fmt.Println(styles.RenderError(e.Message + "; run: relay connect " + string(e.Provider)))
		case session.StreamError:
			fmt.Println()
			fmt.Println(styles.RenderError(e.Message))
		}
	}

	err := a.Session.Stream(ctx, id, req, sink)
	fmt.Println()

	switch {
	case err == nil:
		stats.Finalize(asst.EstimateTokens())
		conv.FinalizeLast(stats)
		if a.Cfg.UI.ShowStats {
			fmt.Println(styles.MutedText.Render(asst.FormatStats()))
		}
	case errors.Is(err, session.ErrNotConnected):
		fmt.Println(styles.RenderError("not connected; run: relay connect " + string(id)))
	case errors.Is(err, context.Canceled):
		fmt.Println(styles.RenderWarning("cancelled"))
	}
	fmt.Println()
}

// replCommand handles slash commands; returns true to exit the REPL.
func (a *App) replCommand(line string, conv *model.Conversation, id *auth.ProviderID, modelName *string) bool {
	fields := strings.Fields(line)
	cmd, rest := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h":
		fmt.Println(`Commands:
  /clear          Clear conversation history
  /provider [id]  Show or switch provider
  /model [name]   Show or switch model
  /save           Save the conversation
  /list           List saved conversations
  /load <n>       Load a saved conversation by list position
  /quit           Exit`)

	case "/clear", "/c":
		conv.ClearHistory()
		fmt.Println("history cleared")

	case "/provider":
		if len(rest) == 0 {
			fmt.Printf("provider: %s\n", *id)
			break
		}
		next := auth.ProviderID(rest[0])
		if _, err := a.Registry.Get(next); err != nil {
			fmt.Println(styles.RenderError("unknown provider: " + rest[0]))
			break
		}
		*id = next
		*modelName = a.Cfg.ModelFor(string(next))
		conv.Provider = string(next)
		fmt.Printf("switched to %s (%s)\n", next, *modelName)

	case "/model":
		if len(rest) == 0 {
			fmt.Printf("model: %s\n", *modelName)
			break
		}
		*modelName = rest[0]
		conv.Model = *modelName
		fmt.Printf("model set to %s\n", *modelName)

	case "/save":
		if a.History == nil {
			fmt.Println(styles.RenderWarning("history is disabled in config"))
			break
		}
		if _, err := a.History.Save(conv); err != nil {
			fmt.Println(styles.RenderError("save failed: " + err.Error()))
			break
		}
		fmt.Println("saved")

	case "/list":
		if a.History == nil {
			fmt.Println(styles.RenderWarning("history is disabled in config"))
			break
		}
		metas, err := a.History.List()
		if err != nil {
			fmt.Println(styles.RenderError("list failed: " + err.Error()))
			break
		}
		fmt.Println(history.FormatList(metas))

	case "/load":
		if a.History == nil {
			fmt.Println(styles.RenderWarning("history is disabled in config"))
			break
		}
		if len(rest) == 0 {
			fmt.Println("usage: /load <n>")
			break
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			fmt.Println("usage: /load <n>")
			break
		}
		loaded, err := a.History.LoadByIndex(n - 1)
		if err != nil {
			fmt.Println(styles.RenderError("load failed: " + err.Error()))
			break
		}
		*conv = *loaded
		if conv.Provider != "" {
			*id = auth.ProviderID(conv.Provider)
		}
		if conv.Model != "" {
			*modelName = conv.Model
		}
		fmt.Printf("loaded %q (%d messages)\n", conv.GetTitle(), len(conv.Messages))

	default:
		fmt.Println("unknown command; /help for the list")
	}
	return false
}

// autoSave persists the conversation on exit when history is enabled.
func (a *App) autoSave(conv *model.Conversation) {
	if a.History == nil || conv.IsEmpty() {
		return
	}
	if _, err := a.History.Save(conv); err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not save conversation:", err)
	}
}

func requireTTY() error {
	if !IsTTY() {
		return fmt.Errorf("%w; chat needs an interactive terminal", ErrNotATerminal)
	}
	return nil
}

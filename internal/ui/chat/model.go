// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/relay-tui/internal/auth"
	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/history"
	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/provider"
	"github.com/jeranaias/relay-tui/internal/session"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// =============================================================================
// VIEW STATES
// =============================================================================

type viewState int

const (
	stateChat viewState = iota
	statePickProvider
	statePickMethod
	stateKeyEntry
	stateCodeEntry
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	cfg      *config.Config
	sess     *session.Session
	registry *provider.Registry
	store    *history.Store

	conv       *model.Conversation
	providerID auth.ProviderID

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model
	entry    textinput.Model
	renderer *glamour.TermRenderer

	state     viewState
	streaming bool
	buffer    *StreamingBuffer
	stats     *model.Statistics

	events       chan session.Event
	streamDone   chan error
	cancelStream context.CancelFunc

	// Connect flow state
	flow        *auth.Flow
	pickIDs     []auth.ProviderID
	pickIndex   int
	methodIndex int

	status string
	width  int
	height int
	ready  bool
}

// New creates the chat model. The history store may be nil when
// persistence is disabled.
func New(cfg *config.Config, sess *session.Session, registry *provider.Registry, store *history.Store) *Model {
	input := textarea.New()
	input.Placeholder = "Send a message... (/help for commands)"
	input.ShowLineNumbers = false
	input.SetHeight(2)
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(styles.Purple)

	entry := textinput.New()

	conv := model.NewConversation()
	conv.Provider = cfg.DefaultProvider

	return &Model{
		cfg:        cfg,
		sess:       sess,
		registry:   registry,
		store:      store,
		conv:       conv,
		providerID: auth.ProviderID(cfg.DefaultProvider),
		input:      input,
		spin:       spin,
		entry:      entry,
		buffer:     NewStreamingBuffer(),
		status:     "ready",
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case streamTickMsg:
		if !m.streaming {
			return m, nil
		}
		if content, ok := m.buffer.Flush(); ok {
			m.conv.AppendToLast(content)
			m.refreshViewport()
		}
		return m, streamTickCmd()

	case streamEventMsg:
		return m.handleStreamEvent(msg.event)

	case streamFinishedMsg:
		return m.finishStream(msg.err)

	case validatedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, session.ErrReconnectRequired) {
				m.status = "credential rejected; use /connect"
			} else if !errors.Is(msg.err, session.ErrNotConnected) {
				m.status = "validation: " + msg.err.Error()
			}
		} else {
			m.status = fmt.Sprintf("connected to %s", m.providerID)
		}
		return m, nil
	}

	return m.updateFocused(msg)
}

// updateFocused routes non-key messages to the focused component.
func (m *Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch m.state {
	case stateChat:
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	case stateKeyEntry, stateCodeEntry:
		m.entry, cmd = m.entry.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) resize(w, h int) {
	m.width = w
	m.height = h

	inputHeight := 4
	chrome := 2 // header + status line
	vh := h - inputHeight - chrome
	if vh < 3 {
		vh = 3
	}

	if !m.ready {
		m.viewport = viewport.New(w, vh)
		m.ready = true
	} else {
		m.viewport.Width = w
		m.viewport.Height = vh
	}

	m.input.SetWidth(w - 4)
	m.entry.Width = w - 4
	m.renderer = newMarkdownRenderer(w - 4)
	m.refreshViewport()
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case statePickProvider:
		return m.handlePickProviderKey(msg)
	case statePickMethod:
		return m.handlePickMethodKey(msg)
	case stateKeyEntry:
		return m.handleKeyEntryKey(msg)
	case stateCodeEntry:
		return m.handleCodeEntryKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		if m.streaming {
			m.cancelStream()
			return m, nil
		}
		return m, tea.Quit

	case "esc":
		if m.streaming {
			m.cancelStream()
			m.status = "cancelled"
			return m, nil
		}

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		if strings.HasPrefix(text, "/") {
			return m.handleCommand(text)
		}
		return m.sendMessage(text)
	}

	return m.updateFocused(msg)
}

// =============================================================================
// CHAT COMMANDS
// =============================================================================

func (m *Model) handleCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		m.conv.AddSystemMessage(helpText)
		m.refreshViewport()

	case "/connect":
		m.pickIDs = m.registry.IDs()
		m.pickIndex = 0
		m.state = statePickProvider

	case "/disconnect":
		if err := m.sess.Disconnect(m.providerID); err != nil {
			m.status = "disconnect: " + err.Error()
		} else {
			m.status = fmt.Sprintf("disconnected from %s", m.providerID)
		}

	case "/provider":
		if len(args) == 0 {
			m.status = fmt.Sprintf("provider: %s", m.providerID)
			break
		}
		id := auth.ProviderID(args[0])
		if _, err := m.registry.Get(id); err != nil {
			m.status = "unknown provider: " + args[0]
			break
		}
		m.providerID = id
		m.conv.Provider = string(id)
		m.status = fmt.Sprintf("provider: %s", id)
		return m, m.validateCmd()

	case "/model":
		if len(args) == 0 {
			m.status = "model: " + m.modelName()
			break
		}
		m.cfg.DefaultModel = args[0]
		m.status = "model: " + args[0]

	case "/clear":
		m.conv.ClearHistory()
		m.refreshViewport()
		m.status = "history cleared"

	case "/save":
		m.saveConversation()

	case "/list":
		m.listConversations()

	case "/load":
		if len(args) == 0 {
			m.status = "usage: /load <index>"
			break
		}
		m.loadConversation(args[0])

	case "/export":
		m.conv.AddSystemMessage(history.ExportMarkdown(m.conv))
		m.refreshViewport()

	case "/quit":
		return m, tea.Quit

	default:
		m.status = "unknown command: " + cmd
	}

	return m, nil
}

const helpText = `Commands:
  /connect            connect a provider (API key or OAuth)
  /disconnect         clear the current provider's credential
  /provider [id]      show or switch provider (anthropic, openrouter, ollama)
  /model [name]       show or override the model
  /clear              clear conversation history
  /save               save the conversation
  /list               list saved conversations
  /load <index>       load a saved conversation
  /export             render the conversation as markdown
  /quit               exit`

func (m *Model) saveConversation() {
	if m.store == nil {
		m.status = "history disabled"
		return
	}
	id, err := m.store.Save(m.conv)
	if err != nil {
		m.status = "save: " + err.Error()
		return
	}
	m.status = "saved " + id[:8]
}

func (m *Model) listConversations() {
	if m.store == nil {
		m.status = "history disabled"
		return
	}
	metas, err := m.store.List()
	if err != nil {
		m.status = "list: " + err.Error()
		return
	}
	m.conv.AddSystemMessage(history.FormatList(metas))
	m.refreshViewport()
}

func (m *Model) loadConversation(arg string) {
	if m.store == nil {
		m.status = "history disabled"
		return
	}
	index, err := strconv.Atoi(arg)
	if err != nil {
		m.status = "usage: /load <index>"
		return
	}
	conv, err := m.store.LoadByIndex(index)
	if err != nil {
		m.status = "load: " + err.Error()
		return
	}
	m.conv = conv
	if conv.Provider != "" {
		m.providerID = auth.ProviderID(conv.Provider)
	}
	m.refreshViewport()
	m.status = "loaded " + conv.GetTitle()
}

// =============================================================================
// STREAMING
// =============================================================================

func (m *Model) sendMessage(text string) (tea.Model, tea.Cmd) {
	if m.streaming {
		m.status = "a response is already streaming"
		return m, nil
	}

	m.conv.AddUserMessage(text)
	m.conv.AddAssistantMessage()
	m.refreshViewport()

	req := provider.ChatRequest{
		Model:    m.modelName(),
		Messages: m.conv.ToChatMessages(),
	}

	events := make(chan session.Event, 64)
	done := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())

	m.events = events
	m.streamDone = done
	m.cancelStream = cancel
	m.streaming = true
	m.buffer.Reset()
	m.stats = model.NewStatistics()
	m.status = "thinking"

	id := m.providerID
	sess := m.sess
	go func() {
		err := sess.Stream(ctx, id, req, func(ev session.Event) {
			events <- ev
		})
		done <- err
		close(events)
	}()

	return m, tea.Batch(
		waitForEvent(events, done),
		streamTickCmd(),
		m.spin.Tick,
	)
}

func (m *Model) handleStreamEvent(ev session.Event) (tea.Model, tea.Cmd) {
	switch ev := ev.(type) {
	case session.TokenChunk:
		m.stats.RecordFirstToken()
		m.buffer.Write(ev.Text)
		m.status = "streaming"

	case session.StreamDone:
		// Finalization happens when the goroutine returns.

	case session.AuthError:
		m.status = fmt.Sprintf("%s: %s; use /connect", ev.Provider, ev.Message)

	case session.StreamError:
		m.status = "error: " + ev.Message
	}

	return m, waitForEvent(m.events, m.streamDone)
}

func (m *Model) finishStream(err error) (tea.Model, tea.Cmd) {
	if content, ok := m.buffer.ForceFlush(); ok {
		m.conv.AppendToLast(content)
	}

	m.stats.Finalize(m.conv.GetLastMessage().EstimateTokens())
	m.conv.FinalizeLast(m.stats)
	m.streaming = false
	m.cancelStream = nil
	m.refreshViewport()

	switch {
	case err == nil:
		m.status = "ready"
		if m.store != nil && m.cfg.History.Enabled {
			if _, saveErr := m.store.Save(m.conv); saveErr != nil {
				m.status = "history save failed"
			}
		}
	case errors.Is(err, session.ErrAuthExhausted):
		m.status = "authorization failed; use /connect"
	case errors.Is(err, session.ErrNotConnected):
		m.status = "not connected; use /connect"
	case errors.Is(err, context.Canceled):
		m.status = "cancelled"
	default:
		m.status = "error: " + err.Error()
	}

	return m, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) modelName() string {
	return m.cfg.ModelFor(string(m.providerID))
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderConversation(m.renderer, m.conv, m.cfg.UI.ShowStats))
	m.viewport.GotoBottom()
}

func (m *Model) validateCmd() tea.Cmd {
	sess := m.sess
	id := m.providerID
	return func() tea.Msg {
		return validatedMsg{err: sess.EnsureValidated(context.Background(), id)}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	switch m.state {
	case statePickProvider:
		return m.viewPickProvider()
	case statePickMethod:
		return m.viewPickMethod()
	case stateKeyEntry:
		return m.viewEntry("Enter API key for " + string(m.providerID))
	case stateCodeEntry:
		return m.viewCodeEntry()
	}

	var sb strings.Builder
	sb.WriteString(styles.Header.Render("relay"))
	sb.WriteString(styles.MutedText.Render("  " + string(m.providerID)))
	if m.sess.Connected(m.providerID) {
		sb.WriteString(styles.SuccessText.Render(" *"))
	}
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(styles.InputBox.Render(m.input.View()))
	sb.WriteString("\n")

	status := m.status
	if m.streaming {
		status = m.spin.View() + " " + status
	}
	sb.WriteString(styles.StatusBar.Render(status))

	return sb.String()
}

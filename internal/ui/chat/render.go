// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// newMarkdownRenderer builds the glamour renderer used for finalized
// assistant messages. A nil return means plain-text fallback.
func newMarkdownRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown renders assistant markdown; on failure the raw text is
// shown rather than nothing.
func renderMarkdown(r *glamour.TermRenderer, text string) string {
	if r == nil {
		return highlightCodeBlocks(text)
	}
	out, err := r.Render(text)
	if err != nil {
		return highlightCodeBlocks(text)
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// renderMessage renders one finalized conversation message with its role
// label. Streaming messages render raw; markdown formatting would jitter
// as partial syntax arrives.
func renderMessage(r *glamour.TermRenderer, msg *model.Message, showStats bool) string {
	var sb strings.Builder

	switch msg.Role {
	case model.RoleUser:
		sb.WriteString(styles.UserLabel.Render(msg.Role.DisplayName()))
	case model.RoleAssistant:
		sb.WriteString(styles.AssistantLabel.Render(msg.Role.DisplayName()))
	default:
		sb.WriteString(styles.MutedText.Render(msg.Role.DisplayName()))
	}
	sb.WriteString(styles.MutedText.Render("  " + msg.Timestamp.Format("15:04")))
	sb.WriteString("\n")

	content := msg.GetDisplayContent()
	if msg.Role == model.RoleAssistant && !msg.IsStreaming {
		sb.WriteString(renderMarkdown(r, content))
	} else {
		sb.WriteString(content)
	}

	if showStats && !msg.IsStreaming {
		if stats := msg.FormatStats(); stats != "" {
			sb.WriteString("\n")
			sb.WriteString(styles.MutedText.Render(stats))
		}
	}

	return sb.String()
}

// renderConversation renders the full message history for the viewport.
func renderConversation(r *glamour.TermRenderer, conv *model.Conversation, showStats bool) string {
	if conv.IsEmpty() {
		return styles.MutedText.Render("Send a message to start the conversation.")
	}

	parts := make([]string, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		if msg.IsEmpty() && !msg.IsStreaming {
			continue
		}
		parts = append(parts, renderMessage(r, msg, showStats))
	}
	return strings.Join(parts, "\n\n")
}

// =============================================================================
// SYNTAX HIGHLIGHTING FALLBACK
// =============================================================================

// highlightCodeBlocks applies chroma highlighting to fenced code blocks
// when the markdown renderer is unavailable.
func highlightCodeBlocks(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	var codeLines []string
	var language string
	inCode := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "```") && !inCode:
			language = strings.TrimSpace(strings.TrimPrefix(line, "```"))
			inCode = true
		case strings.HasPrefix(line, "```") && inCode:
			result = append(result, highlightCode(strings.Join(codeLines, "\n"), language))
			codeLines = nil
			inCode = false
		case inCode:
			codeLines = append(codeLines, line)
		default:
			result = append(result, line)
		}
	}
	if inCode && len(codeLines) > 0 {
		result = append(result, highlightCode(strings.Join(codeLines, "\n"), language))
	}

	return strings.Join(result, "\n")
}

// highlightCode applies ANSI syntax highlighting to a code snippet.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"

	"github.com/jeranaias/relay-tui/internal/model"
)

func TestRenderConversationEmpty(t *testing.T) {
	conv := model.NewConversation()
	out := renderConversation(nil, conv, false)
	if !strings.Contains(out, "Send a message") {
		t.Errorf("empty conversation hint missing: %q", out)
	}
}

func TestRenderConversationMessages(t *testing.T) {
	conv := model.NewConversation()
	conv.AddUserMessage("what is a channel?")
	conv.AddMessage(model.NewMessage(model.RoleAssistant, "a typed conduit"))

	out := renderConversation(nil, conv, false)
	if !strings.Contains(out, "what is a channel?") {
		t.Error("user content missing")
	}
	if !strings.Contains(out, "a typed conduit") {
		t.Error("assistant content missing")
	}
	if !strings.Contains(out, "You") || !strings.Contains(out, "Assistant") {
		t.Error("role labels missing")
	}
}

func TestRenderStreamingMessageIsRaw(t *testing.T) {
	conv := model.NewConversation()
	conv.AddUserMessage("hi")
	conv.AddAssistantMessage()
	conv.AppendToLast("partial **markdown")

	// Partial markdown must render verbatim; formatting half-open syntax
	// would jitter the view between frames.
	out := renderConversation(newMarkdownRenderer(80), conv, false)
	if !strings.Contains(out, "partial **markdown") {
		t.Errorf("streaming content should be raw, got %q", out)
	}
}

func TestHighlightCodeBlocksFallback(t *testing.T) {
	text := "before\n```go\npackage main\n```\nafter"
	out := highlightCodeBlocks(text)
	if !strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Error("surrounding text lost")
	}
	if !strings.Contains(out, "package main") {
		t.Error("code content lost")
	}
}

func TestHighlightCodeUnknownLanguage(t *testing.T) {
	code := "just some text"
	if out := highlightCode(code, "nonexistent-lang"); out == "" {
		t.Error("unknown language should still return content")
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage(t *testing.T) {
	msg := NewUserMessage("hello")

	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID should start with msg_, got %q", msg.ID)
	}
	if msg.Role != RoleUser {
		t.Errorf("Role = %v, want user", msg.Role)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q", msg.Content)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestMessage_Streaming(t *testing.T) {
	msg := NewAssistantMessage()

	if !msg.IsStreaming {
		t.Fatal("new assistant message should be streaming")
	}

	msg.AppendToken("Hello")
	msg.AppendToken(", world")

	if got := msg.GetDisplayContent(); got != "Hello, world" {
		t.Errorf("GetDisplayContent = %q", got)
	}
	if msg.Content != "" {
		t.Errorf("Content should be empty while streaming, got %q", msg.Content)
	}

	stats := NewStatistics()
	stats.Finalize(2)
	msg.FinalizeStream(stats)

	if msg.IsStreaming {
		t.Error("message should no longer be streaming")
	}
	if msg.Content != "Hello, world" {
		t.Errorf("Content = %q after finalize", msg.Content)
	}
	if msg.TokenCount != 2 {
		t.Errorf("TokenCount = %d, want 2", msg.TokenCount)
	}

	// Appending after finalize is a no-op
	msg.AppendToken("x")
	if msg.GetDisplayContent() != "Hello, world" {
		t.Error("AppendToken after finalize should be ignored")
	}
}

func TestMessage_Preview_Unicode(t *testing.T) {
	msg := NewUserMessage(strings.Repeat("é", 100))
	preview := msg.Preview(10)

	if got := len([]rune(preview)); got != 10 {
		t.Errorf("preview rune length = %d, want 10", got)
	}
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("preview should end with ellipsis, got %q", preview)
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_AddMessages(t *testing.T) {
	conv := NewConversation()

	if !strings.HasPrefix(conv.ID, "conv_") {
		t.Errorf("ID should start with conv_, got %q", conv.ID)
	}
	if !conv.IsEmpty() {
		t.Error("new conversation should be empty")
	}

	conv.AddUserMessage("first question")
	conv.AddAssistantMessage()

	if conv.MessageCount() != 2 {
		t.Errorf("MessageCount = %d, want 2", conv.MessageCount())
	}
	if conv.GetTitle() != "first question" {
		t.Errorf("auto title = %q", conv.GetTitle())
	}
}

func TestConversation_StreamingFlow(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hi")
	conv.AddAssistantMessage()

	conv.AppendToLast("hel")
	conv.AppendToLast("lo")
	conv.FinalizeLast(nil)

	last := conv.GetLastMessage()
	if last.Content != "hello" {
		t.Errorf("finalized content = %q", last.Content)
	}
	if last.IsStreaming {
		t.Error("last message should not be streaming")
	}
}

func TestConversation_ToChatMessages(t *testing.T) {
	conv := NewConversation()
	conv.SystemPrompt = "be terse"
	conv.AddUserMessage("question")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("answer")

	msgs := conv.ToChatMessages()
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[0].Content != "be terse" {
		t.Errorf("system message = %+v", msgs[0])
	}
	if msgs[1].Role != "user" || msgs[1].Content != "question" {
		t.Errorf("user message = %+v", msgs[1])
	}
	// Streaming content is included so a retried request carries full context.
	if msgs[2].Role != "assistant" || msgs[2].Content != "answer" {
		t.Errorf("assistant message = %+v", msgs[2])
	}
}

func TestConversation_ToChatMessages_SkipsEmpty(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("q")
	conv.AddAssistantMessage() // empty, still streaming

	msgs := conv.ToChatMessages()
	if len(msgs) != 1 {
		t.Errorf("len = %d, want 1 (empty assistant skipped)", len(msgs))
	}
}

func TestConversation_Prune(t *testing.T) {
	conv := NewConversation()
	conv.AddSystemMessage("keep me")

	for i := 0; i < MaxMessages+10; i++ {
		conv.AddUserMessage("msg")
	}

	if conv.MessageCount() != MaxMessages+1 {
		t.Errorf("MessageCount = %d, want %d", conv.MessageCount(), MaxMessages+1)
	}
	if conv.Messages[0].Role != RoleSystem {
		t.Error("system message should be preserved at front")
	}
}

func TestConversation_ClearHistory(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hello")
	conv.ClearHistory()

	if !conv.IsEmpty() {
		t.Error("conversation should be empty after clear")
	}
	if conv.TokensUsed != 0 {
		t.Errorf("TokensUsed = %d, want 0", conv.TokensUsed)
	}
}

func TestStatistics(t *testing.T) {
	stats := NewStatistics()
	stats.RecordFirstToken()
	stats.Finalize(100)

	if stats.CompletionTokens != 100 {
		t.Errorf("CompletionTokens = %d", stats.CompletionTokens)
	}
	if stats.TotalDuration <= 0 {
		t.Error("TotalDuration should be positive")
	}
	if stats.TTFT <= 0 {
		t.Error("TTFT should be positive")
	}

	// Second RecordFirstToken must not move the timestamp
	first := stats.FirstTokenTime
	stats.RecordFirstToken()
	if stats.FirstTokenTime != first {
		t.Error("RecordFirstToken should be idempotent")
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/relay-tui/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStoreAt(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewStoreAt failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleConversation(user, assistant string) *model.Conversation {
	conv := model.NewConversation()
	conv.Provider = "anthropic"
	conv.Model = "claude-sonnet-4-20250514"
	conv.AddUserMessage(user)
	conv.AddMessage(model.NewMessage(model.RoleAssistant, assistant))
	return conv
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)

	conv := sampleConversation("what is Go?", "a programming language")
	id, err := s.Save(conv)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" {
		t.Fatal("Save returned empty ID")
	}

	loaded, err := s.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != "anthropic" {
		t.Errorf("Provider = %q", loaded.Provider)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("Messages = %d, want 2", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != model.RoleUser || loaded.Messages[0].Content != "what is Go?" {
		t.Errorf("first message wrong: %+v", loaded.Messages[0])
	}
	if loaded.Messages[1].Role != model.RoleAssistant {
		t.Errorf("second message role = %q", loaded.Messages[1].Role)
	}
}

func TestSaveAssignsID(t *testing.T) {
	s := newTestStore(t)

	conv := sampleConversation("hi", "hello")
	conv.ID = ""
	id, err := s.Save(conv)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" || conv.ID != id {
		t.Errorf("id = %q, conv.ID = %q", id, conv.ID)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := newTestStore(t)

	conv := sampleConversation("first", "reply")
	id, _ := s.Save(conv)

	conv.AddUserMessage("second")
	if _, err := s.Save(conv); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded, err := s.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Messages) != 3 {
		t.Errorf("Messages = %d, want 3", len(loaded.Messages))
	}

	metas, _ := s.List()
	if len(metas) != 1 {
		t.Errorf("List = %d entries, want 1 (overwrite, not duplicate)", len(metas))
	}
}

func TestLoadNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Load("missing"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestListOrdering(t *testing.T) {
	s := newTestStore(t)

	older := sampleConversation("older question", "answer")
	if _, err := s.Save(older); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	newer := sampleConversation("newer question", "answer")
	if _, err := s.Save(newer); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	metas, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("List = %d, want 2", len(metas))
	}
	if metas[0].ID != newer.ID {
		t.Error("most recent conversation should list first")
	}
	if metas[0].MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", metas[0].MessageCount)
	}
	if !strings.Contains(metas[0].Preview, "newer question") {
		t.Errorf("Preview = %q", metas[0].Preview)
	}
}

func TestLoadByIndex(t *testing.T) {
	s := newTestStore(t)
	conv := sampleConversation("only one", "reply")
	s.Save(conv)

	loaded, err := s.LoadByIndex(0)
	if err != nil {
		t.Fatalf("LoadByIndex failed: %v", err)
	}
	if loaded.ID != conv.ID {
		t.Errorf("ID = %q, want %q", loaded.ID, conv.ID)
	}

	if _, err := s.LoadByIndex(5); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("out-of-range index: err = %v", err)
	}
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	s.Save(sampleConversation("tell me about goroutines", "they are lightweight"))
	s.Save(sampleConversation("weather today", "sunny"))

	results, err := s.Search("GOROUTINE")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search = %d results, want 1", len(results))
	}

	// Matches inside assistant messages too.
	results, _ = s.Search("lightweight")
	if len(results) != 1 {
		t.Errorf("content search = %d results, want 1", len(results))
	}

	// Empty query lists everything.
	results, _ = s.Search("")
	if len(results) != 2 {
		t.Errorf("empty query = %d results, want 2", len(results))
	}

	results, _ = s.Search("no such phrase")
	if len(results) != 0 {
		t.Errorf("miss = %d results, want 0", len(results))
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	conv := sampleConversation("to delete", "ok")
	id, _ := s.Save(conv)

	if err := s.Delete(id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Load(id); !errors.Is(err, ErrConversationNotFound) {
		t.Error("deleted conversation should not load")
	}
	if err := s.Delete(id); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("double delete: err = %v", err)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	s.Save(sampleConversation("a", "b"))
	s.Save(sampleConversation("c", "d"))

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	metas, _ := s.List()
	if len(metas) != 0 {
		t.Errorf("List after Clear = %d, want 0", len(metas))
	}
}

func TestRetentionLimit(t *testing.T) {
	s := newTestStore(t)
	s.MaxConversations = 3

	var oldest string
	for i := 0; i < 5; i++ {
		conv := sampleConversation("question", "answer")
		id, err := s.Save(conv)
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if i == 0 {
			oldest = id
		}
		time.Sleep(2 * time.Millisecond)
	}

	metas, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 3 {
		t.Errorf("List = %d, want 3 (retention limit)", len(metas))
	}
	if _, err := s.Load(oldest); !errors.Is(err, ErrConversationNotFound) {
		t.Error("oldest conversation should have been pruned")
	}
}

func TestExportMarkdown(t *testing.T) {
	conv := sampleConversation("hello there", "hi")
	md := ExportMarkdown(conv)

	for _, want := range []string{"**You**", "**Assistant**", "hello there", "anthropic"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestExportJSON(t *testing.T) {
	conv := sampleConversation("json me", "done")
	data, err := ExportJSON(conv)
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	if !strings.Contains(string(data), "json me") {
		t.Error("exported JSON missing message content")
	}
}

func TestFormatList(t *testing.T) {
	if FormatList(nil) != "No conversations found." {
		t.Error("empty list message wrong")
	}

	metas := []model.ConversationMeta{{
		ID:           "abcdefghijklmnop",
		Title:        "a title",
		MessageCount: 4,
		UpdatedAt:    time.Now(),
	}}
	out := FormatList(metas)
	if !strings.Contains(out, "abcdefghijkl") || !strings.Contains(out, "a title") {
		t.Errorf("FormatList output wrong:\n%s", out)
	}
}

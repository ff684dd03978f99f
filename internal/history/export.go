// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// CONVERSATION EXPORT
// =============================================================================

// ExportMarkdown renders a conversation as Markdown with role labels and
// timestamps.
func ExportMarkdown(conv *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# " + conv.GetTitle() + "\n\n")
	sb.WriteString("Created: " + conv.CreatedAt.Format(time.RFC3339) + "\n\n")
	if conv.Provider != "" {
		sb.WriteString("Provider: " + conv.Provider)
		if conv.Model != "" {
			sb.WriteString(" (" + conv.Model + ")")
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString("---\n\n")

	for _, msg := range conv.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(msg.GetDisplayContent())
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// ExportJSON renders a conversation as pretty-printed JSON.
func ExportJSON(conv *model.Conversation) ([]byte, error) {
	return json.MarshalIndent(conv, "", "  ")
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatList renders conversation metadata as a plain text table for the
// CLI surface.
func FormatList(metas []model.ConversationMeta) string {
	if len(metas) == 0 {
		return "No conversations found."
	}

	var sb strings.Builder
	sb.WriteString("Conversations:\n")
	sb.WriteString("-----------------------------------------------------\n")
	sb.WriteString(util.PadWidth("ID", 12) + " " + util.PadWidth("Updated", 18) + " " + util.PadWidth("Msgs", 5) + " Title\n")
	sb.WriteString("-----------------------------------------------------\n")

	for _, m := range metas {
		id := m.ID
		if len(id) > 12 {
			id = id[:12]
		}
		sb.WriteString(util.PadWidth(id, 12) + " " +
			util.PadWidth(m.UpdatedAt.Format("2006-01-02 15:04"), 18) + " " +
			util.PadWidth(util.IntToString(m.MessageCount), 5) + " " +
			util.TruncateWidth(m.Title, 40) + "\n")
	}
	return sb.String()
}

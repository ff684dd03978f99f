// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider implements the LLM provider backends relay can talk to:
// Anthropic, OpenRouter, and a local Ollama daemon.
//
// Each backend satisfies the Provider interface: credential shape checks,
// authentication headers, a cheap Validate probe, and streaming chat.
// Transport concerns (pooled TLS clients, response size limits, client-side
// rate limiting, SSE parsing) are shared across backends.
package provider

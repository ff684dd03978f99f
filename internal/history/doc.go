// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists conversations in a local SQLite database so
// past sessions can be listed, searched, resumed, and exported.
package history

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth implements credential persistence and the OAuth
// authorization-code-with-PKCE negotiation for relay's providers.
//
// The package has three parts:
//
//   - Credential and Store: durable secret material, one live credential
//     per storage key, written atomically so a reader never observes a
//     partial record.
//   - PKCE primitives: code verifier/challenge generation and the state
//     nonce binding an authorization response to its negotiation.
//   - Flow: the per-negotiation state machine driving authorize-URL
//     construction, pasted-code verification, and the token exchange.
//
// Nothing in this package touches the validation cache or retry logic;
// those live in internal/session and consume credentials produced here.
package auth

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama is a small client for a local Ollama server, used to
// translate natural-language requests into shell commands.
//
// # Key Types
//
//   - Client: non-streaming chat against /api/chat
//   - Translator: implements terminal.Translator on top of Client
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: url})
//	tr := ollama.NewTranslator(client, "qwen2.5-coder:7b", "bash", log)
//	coord := terminal.New(host, opts, log, terminal.WithTranslator(tr))
package ollama

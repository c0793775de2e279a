// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the tool gateway over HTTP.
//
// Endpoints:
//   - GET    /health                 - Liveness and collaborator checks (no auth)
//   - GET    /v1/tools               - Tool definitions with JSON Schemas
//   - POST   /v1/tools/{name}        - Invoke a tool; the body is its parameter object
//   - GET    /v1/terminals           - Open persistent terminals
//   - GET    /v1/terminals/{id}      - Poll one persistent terminal
//   - DELETE /v1/terminals/{id}      - Kill a persistent terminal
//   - PUT    /v1/diagnostics         - Publish lint diagnostics for a file
//   - GET    /v1/stats               - Execution and cache statistics
//   - GET    /v1/history             - Recent tool calls
//
// Tool failures are reported as {"error": ..., "kind": ...} where kind is
// one of validation, busy, execution or internal. Closing the connection
// interrupts the call, which for commands stops the process.
package server

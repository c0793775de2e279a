// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search answers content and pathname queries over the workspace
// with an ordered list of strategies: the content index first, a direct
// filesystem scan when the index is empty, unavailable or cannot answer
// the query shape.
package search

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package web implements the network tools: web search and URL browsing.
//
// Both run behind the offline gate and share a bounded cache keyed by
// "search:<query>:<k>" and "browse:<url>". A refresh request bypasses and
// replaces the cached entry.
//
// Search tries an ordered list of strategies (a JSON instant-answer API,
// then scraping an HTML results page). Each strategy gets one retry when
// the failure looks transient. When every strategy fails the caller gets an
// *AggregateError listing each failure.
//
// Browse asks a headless Extractor first when one is configured, follows a
// single redirect, and otherwise falls back to fetching the page and
// stripping its markup. Raw fetches go through an SSRF-guarded client.
package web

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
)

func (g *Gateway) webSearch(ctx context.Context, p WebSearchParams) (WebSearchResult, error) {
	if g.deps.Web == nil {
		return WebSearchResult{}, failed(WebSearch, nil, "web access is not configured")
	}
	results, err := g.deps.Web.Search(ctx, p.Query, p.K, p.Refresh)
	if err != nil {
		return WebSearchResult{}, failed(WebSearch, err, "search for %q failed", p.Query)
	}
	return WebSearchResult{Query: p.Query, Results: results}, nil
}

func (g *Gateway) browse(ctx context.Context, p BrowseParams) (BrowseResult, error) {
	if g.deps.Web == nil {
		return BrowseResult{}, failed(BrowseURL, nil, "web access is not configured")
	}
	page, err := g.deps.Web.Browse(ctx, p.URL, p.Refresh)
	if err != nil {
		return BrowseResult{}, failed(BrowseURL, err, "cannot browse %s", p.URL)
	}
	return BrowseResult{Page: page}, nil
}

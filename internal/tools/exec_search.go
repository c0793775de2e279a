// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"

	"github.com/jeranaias/rigrun-gateway/internal/paginate"
	"github.com/jeranaias/rigrun-gateway/internal/search"
)

func (g *Gateway) searchPathnames(ctx context.Context, p SearchPathnamesParams) (PathsResult, error) {
	if g.deps.Search == nil {
		return PathsResult{}, failed(SearchPathnamesOnly, nil, "no search backend is configured")
	}
	paths, err := g.deps.Search.SearchPathnames(ctx, search.PathQuery{Text: p.Query, Include: p.Include})
	if err != nil {
		return PathsResult{}, failed(SearchPathnamesOnly, err, "path search for %q failed", p.Query)
	}
	return g.pagePaths(SearchPathnamesOnly, p.Query, paths, p.Page)
}

func (g *Gateway) searchFiles(ctx context.Context, p SearchFilesParams) (PathsResult, error) {
	if g.deps.Search == nil {
		return PathsResult{}, failed(SearchForFiles, nil, "no search backend is configured")
	}
	q := search.ContentQuery{Text: p.Query, IsRegex: p.IsRegex}
	if p.Folder != nil {
		q.Folder = p.Folder.Path
	}
	paths, err := g.deps.Search.SearchFiles(ctx, q)
	if err != nil {
		return PathsResult{}, failed(SearchForFiles, err, "content search for %q failed", p.Query)
	}
	return g.pagePaths(SearchForFiles, p.Query, paths, p.Page)
}

// pagePaths pages search hits the same way whichever backend answered.
func (g *Gateway) pagePaths(tool Name, query string, paths []string, n int) (PathsResult, error) {
	page, err := paginate.Slice(paths, g.opts.EntriesPerPage, n)
	if err != nil {
		return PathsResult{}, failed(tool, err, "cannot page results")
	}
	items := page.Items
	if items == nil {
		items = []string{}
	}
	return PathsResult{
		Query:   query,
		Paths:   items,
		Page:    page.Number,
		HasNext: page.HasNext,
		Total:   len(paths),
	}, nil
}

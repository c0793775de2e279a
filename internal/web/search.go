// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/publicsuffix"

	"github.com/jeranaias/rigrun-gateway/internal/util"
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// maxSnippetRunes caps snippet length.
const maxSnippetRunes = 300

// SearchStrategy produces results for a query. Strategies are tried in
// order; the first non-empty answer wins.
type SearchStrategy struct {
	Name    string
	Attempt func(ctx context.Context, query string, k int) ([]SearchResult, error)
}

// searchHeader mimics a browser so the HTML frontend serves its regular page.
func searchHeader(userAgent string) http.Header {
	h := http.Header{}
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("DNT", "1")
	return h
}

// =============================================================================
// INSTANT ANSWER STRATEGY
// =============================================================================

type instantTopic struct {
	FirstURL string         `json:"FirstURL"`
	Text     string         `json:"Text"`
	Topics   []instantTopic `json:"Topics"`
}

type instantAnswer struct {
	Heading       string         `json:"Heading"`
	AbstractText  string         `json:"AbstractText"`
	AbstractURL   string         `json:"AbstractURL"`
	Results       []instantTopic `json:"Results"`
	RelatedTopics []instantTopic `json:"RelatedTopics"`
}

// InstantAnswerStrategy queries a structured JSON answer endpoint. Links
// back to the endpoint's domain, or to any related endpoint's, are dropped.
func InstantAnswerStrategy(f Fetcher, endpoint, userAgent string, related ...string) SearchStrategy {
	providers := newProviderHosts(append([]string{endpoint}, related...)...)
	return SearchStrategy{
		Name: "instant-answer",
		Attempt: func(ctx context.Context, query string, k int) ([]SearchResult, error) {
			u, err := withQuery(endpoint, url.Values{
				"q":             {query},
				"format":        {"json"},
				"no_html":       {"1"},
				"skip_disambig": {"1"},
			})
			if err != nil {
				return nil, err
			}
			resp, err := f.Fetch(ctx, u, searchHeader(userAgent))
			if err != nil {
				return nil, err
			}
			var answer instantAnswer
			if err := json.Unmarshal(resp.Body, &answer); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrParse, err)
			}
			return answer.results(k, providers), nil
		},
	}
}

func (a *instantAnswer) results(k int, providers providerHosts) []SearchResult {
	c := newCollector(k, providers)
	if a.AbstractURL != "" {
		title := a.Heading
		if title == "" {
			title = a.AbstractURL
		}
		c.add(SearchResult{Title: title, URL: a.AbstractURL, Snippet: a.AbstractText})
	}
	var visit func(topics []instantTopic)
	visit = func(topics []instantTopic) {
		for _, t := range topics {
			if c.full() {
				return
			}
			if len(t.Topics) > 0 {
				visit(t.Topics)
				continue
			}
			title, snippet := splitTopicText(t.Text)
			c.add(SearchResult{Title: title, URL: t.FirstURL, Snippet: snippet})
		}
	}
	visit(a.Results)
	visit(a.RelatedTopics)
	return c.results
}

// splitTopicText splits "Title - description" topic text.
func splitTopicText(s string) (string, string) {
	if title, rest, ok := strings.Cut(s, " - "); ok {
		return strings.TrimSpace(title), strings.TrimSpace(rest)
	}
	return s, ""
}

// =============================================================================
// HTML SCRAPING STRATEGY
// =============================================================================

// bareURLPattern finds URLs in running text.
var bareURLPattern = regexp.MustCompile(`https?://[^\s<>"'()\[\]]+`)

// HTMLStrategy scrapes a search results page. Links are taken from the
// markdown rendering of the page first; bare URLs in the text fill in when
// that yields fewer than k results. related works as for
// InstantAnswerStrategy.
func HTMLStrategy(f Fetcher, endpoint, userAgent string, related ...string) SearchStrategy {
	providers := newProviderHosts(append([]string{endpoint}, related...)...)
	return SearchStrategy{
		Name: "html",
		Attempt: func(ctx context.Context, query string, k int) ([]SearchResult, error) {
			u, err := withQuery(endpoint, url.Values{"q": {query}})
			if err != nil {
				return nil, err
			}
			resp, err := f.Fetch(ctx, u, searchHeader(userAgent))
			if err != nil {
				return nil, err
			}
			doc, err := ToMarkdown(resp.Body)
			if err != nil {
				return nil, err
			}
			return parseResultLinks(doc.Text, k, providers), nil
		},
	}
}

// parseResultLinks extracts up to k results from markdown text.
func parseResultLinks(markdown string, k int, providers providerHosts) []SearchResult {
	c := newCollector(k, providers)
	src := []byte(markdown)

	root := goldmark.New().Parser().Parse(text.NewReader(src))
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || c.full() {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		c.add(SearchResult{
			Title:   nodeText(link, src),
			URL:     string(link.Destination),
			Snippet: snippetAround(link, src),
		})
		return ast.WalkSkipChildren, nil
	})

	if !c.full() {
		for _, raw := range bareURLPattern.FindAllString(markdown, -1) {
			if c.full() {
				break
			}
			raw = strings.TrimRight(raw, ".,;:!?")
			c.add(SearchResult{Title: raw, URL: raw})
		}
	}
	return c.results
}

// nodeText concatenates the text segments below n.
func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// snippetAround returns the text of the block containing link, minus the
// link itself.
func snippetAround(link *ast.Link, src []byte) string {
	parent := link.Parent()
	if parent == nil {
		return ""
	}
	var b strings.Builder
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		if c == ast.Node(link) {
			continue
		}
		if _, isLink := c.(*ast.Link); isLink {
			continue
		}
		b.WriteString(nodeText(c, src))
		b.WriteByte(' ')
	}
	return util.TruncateRunes(strings.Join(strings.Fields(b.String()), " "), maxSnippetRunes)
}

// =============================================================================
// RESULT FILTERING
// =============================================================================

// collector dedupes, resolves and filters results up to a limit.
type collector struct {
	limit     int
	providers providerHosts
	seen      map[string]bool
	results   []SearchResult
}

func newCollector(limit int, providers providerHosts) *collector {
	return &collector{limit: limit, providers: providers, seen: make(map[string]bool)}
}

func (c *collector) full() bool {
	return c.limit > 0 && len(c.results) >= c.limit
}

func (c *collector) add(r SearchResult) {
	if c.full() {
		return
	}
	resolved, ok := resolveResultURL(r.URL, c.providers)
	if !ok || c.seen[resolved] {
		return
	}
	c.seen[resolved] = true
	r.URL = resolved
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		r.Title = resolved
	}
	r.Snippet = util.TruncateRunes(strings.TrimSpace(r.Snippet), maxSnippetRunes)
	c.results = append(c.results, r)
}

// resolveResultURL unwraps redirect links (uddg parameter) and rejects
// non-http links and links back to the search provider.
func resolveResultURL(raw string, providers providerHosts) (string, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if target := u.Query().Get("uddg"); target != "" {
		return resolveResultURL(target, providers)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if providers.match(u.Hostname()) {
		return "", false
	}
	return u.String(), true
}

// providerHosts holds the registrable domains of the search endpoints in
// use. IP and single-label hosts are kept whole.
type providerHosts []string

func newProviderHosts(endpoints ...string) providerHosts {
	var out providerHosts
	for _, endpoint := range endpoints {
		u, err := url.Parse(endpoint)
		if err != nil || u.Hostname() == "" {
			continue
		}
		host := strings.ToLower(u.Hostname())
		if net.ParseIP(host) == nil {
			if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
				host = domain
			}
		}
		if !slices.Contains(out, host) {
			out = append(out, host)
		}
	}
	return out
}

func (p providerHosts) match(host string) bool {
	host = strings.ToLower(host)
	for _, domain := range p {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func withQuery(endpoint string, values url.Values) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, endpoint)
	}
	q := u.Query()
	for k, vs := range values {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

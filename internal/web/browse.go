// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// Page is the readable content of a browsed URL.
type Page struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	Source    string `json:"source"` // "extractor" or "fetch"
}

// =============================================================================
// HEADLESS EXTRACTOR
// =============================================================================

// Extraction statuses.
const (
	StatusOK       = "ok"
	StatusRedirect = "redirect"
	StatusFailed   = "error"
)

// Extraction is the answer of a headless content extractor. On
// StatusRedirect, URL names the page to extract instead.
type Extraction struct {
	Status  string `json:"status"`
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Extractor renders a page in a real browser and returns its readable text.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (Extraction, error)
}

// RemoteExtractor calls an extraction service over HTTP:
// GET <Endpoint>?url=<target> answering an Extraction as JSON.
type RemoteExtractor struct {
	Endpoint string
	Client   *http.Client
}

// NewRemoteExtractor creates a RemoteExtractor. The endpoint is operator
// configured, so it is called with a plain client.
func NewRemoteExtractor(endpoint string, timeout time.Duration) *RemoteExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteExtractor{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
}

// Extract implements Extractor.
func (e *RemoteExtractor) Extract(ctx context.Context, rawURL string) (Extraction, error) {
	u, err := withQuery(e.Endpoint, url.Values{"url": {rawURL}})
	if err != nil {
		return Extraction{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Extraction{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return Extraction{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Extraction{}, &StatusError{URL: u, Code: resp.StatusCode}
	}

	var out Extraction
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10*1024*1024)).Decode(&out); err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	switch out.Status {
	case StatusOK, StatusRedirect:
		return out, nil
	case StatusFailed:
		return out, fmt.Errorf("extractor: %s", out.Error)
	default:
		return out, fmt.Errorf("%w: extractor status %q", ErrParse, out.Status)
	}
}

// =============================================================================
// RAW FETCH
// =============================================================================

// pageFromResponse converts a fetched document into readable text.
func pageFromResponse(resp *Response) (Page, error) {
	mediaType, _, err := mime.ParseMediaType(resp.ContentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(resp.ContentType, ";")[0]))
	}

	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		doc, err := ExtractText(resp.Body)
		if err != nil {
			return Page{}, err
		}
		return Page{URL: resp.URL, Title: doc.Title, Content: doc.Text, Source: "fetch"}, nil

	case strings.HasPrefix(mediaType, "text/"),
		mediaType == "application/json",
		strings.HasSuffix(mediaType, "+json"),
		strings.HasSuffix(mediaType, "+xml"),
		mediaType == "application/xml":
		if !utf8.Valid(resp.Body) {
			return Page{}, fmt.Errorf("%w: body is not valid UTF-8", ErrParse)
		}
		return Page{URL: resp.URL, Content: string(resp.Body), Source: "fetch"}, nil

	default:
		return Page{}, fmt.Errorf("%w: unsupported content type %q", ErrParse, resp.ContentType)
	}
}

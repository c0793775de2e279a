// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jeranaias/rigrun-gateway/internal/resilience"
)

// =============================================================================
// FETCHER
// =============================================================================

// Response is a fetched document.
type Response struct {
	URL         string
	ContentType string
	Body        []byte
}

// Fetcher performs GET requests for the network tools.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, header http.Header) (*Response, error)
}

// StatusError is a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Temporary reports whether retrying might succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// HTTPFetcher is the default Fetcher, built on NewClient.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	maxBytes     int64
	allowPrivate bool
}

// FetcherOptions configure NewHTTPFetcher.
type FetcherOptions struct {
	Client               ClientOptions
	UserAgent            string
	MaxResponseBytes     int64
	AllowPrivateNetworks bool
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts FetcherOptions) *HTTPFetcher {
	if opts.MaxResponseBytes <= 0 {
		opts.MaxResponseBytes = 5 * 1024 * 1024
	}
	opts.Client.AllowPrivateNetworks = opts.AllowPrivateNetworks
	return &HTTPFetcher{
		client:       NewClient(opts.Client),
		userAgent:    opts.UserAgent,
		maxBytes:     opts.MaxResponseBytes,
		allowPrivate: opts.AllowPrivateNetworks,
	}
}

// Fetch GETs rawURL. Non-2xx responses return *StatusError.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	u, err := ValidateURL(rawURL, f.allowPrivate)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" && f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{URL: u.String(), Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBytes {
		return nil, ErrResponseTooLarge
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return &Response{URL: resp.Request.URL.String(), ContentType: contentType, Body: body}, nil
}

// isTransient decides whether a strategy gets its one retry. Guard
// rejections and parse failures never do.
func isTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrBlockedIP), errors.Is(err, ErrBlockedHost),
		errors.Is(err, ErrInvalidScheme), errors.Is(err, ErrInvalidURL),
		errors.Is(err, ErrParse), errors.Is(err, ErrResponseTooLarge):
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Temporary()
	}
	return resilience.IsTransient(err)
}

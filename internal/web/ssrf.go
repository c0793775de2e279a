// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package web

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// =============================================================================
// SSRF PROTECTION - BLOCKED IP RANGES
// =============================================================================

// blockedCIDRs contains IP ranges that raw fetches may not reach.
// Based on RFC1918 and other private/reserved address spaces.
var blockedCIDRs = []string{
	// IPv4 Private networks (RFC1918)
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",

	// IPv4 Loopback and link-local
	"127.0.0.0/8",
	"169.254.0.0/16",

	// IPv4 Special purpose
	"0.0.0.0/8",
	"100.64.0.0/10",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"224.0.0.0/4",
	"240.0.0.0/4",

	// IPv6 Special addresses
	// NOTE: ::ffff:0:0/96 is omitted - net.ParseCIDR normalizes it to
	// 0.0.0.0/0. IPv4-mapped addresses are caught by the IPv4 ranges.
	"::1/128",
	"::/128",
	"64:ff9b::/96",
	"100::/64",
	"2001:db8::/32",
	"fc00::/7",
	"fe80::/10",
	"ff00::/8",
}

// Cloud metadata endpoints
var blockedHosts = []string{
	"metadata.google.internal",
	"metadata.google.com",
	"metadata",
	"instance-data",
	"localhost",
}

var blockedNetworks = func() []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(blockedCIDRs))
	for _, cidr := range blockedCIDRs {
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			nets = append(nets, network)
		}
	}
	return nets
}()

// SSRF protection errors
var (
	ErrBlockedIP        = errors.New("IP address is blocked (private/internal range)")
	ErrBlockedHost      = errors.New("hostname is blocked")
	ErrInvalidScheme    = errors.New("only http and https schemes are allowed")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrResponseTooLarge = errors.New("response body too large")
)

// ValidateURL parses rawURL and rejects non-http(s) schemes and, unless
// allowPrivate, hosts that name internal services or private addresses.
func ValidateURL(rawURL string, allowPrivate bool) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, ErrInvalidURL
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, ErrInvalidScheme
	}
	hostname := parsed.Hostname()
	if hostname == "" {
		return nil, ErrInvalidURL
	}
	if allowPrivate {
		return parsed, nil
	}

	lower := strings.ToLower(hostname)
	for _, blocked := range blockedHosts {
		if lower == blocked || strings.HasSuffix(lower, "."+blocked) {
			return nil, ErrBlockedHost
		}
	}
	if ip := net.ParseIP(hostname); ip != nil && isBlockedIP(ip) {
		return nil, ErrBlockedIP
	}
	return parsed, nil
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// =============================================================================
// SECURE HTTP CLIENT
// =============================================================================

// ClientOptions configure NewClient.
type ClientOptions struct {
	Timeout              time.Duration
	MaxRedirects         int
	AllowPrivateNetworks bool
}

// NewClient returns an HTTP client that re-checks every resolved address
// (DNS rebinding) and every redirect target against the blocklist.
func NewClient(opts ClientOptions) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 5
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	dial := dialer.DialContext
	if !opts.AllowPrivateNetworks {
		dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
			if err != nil {
				return nil, err
			}
			if len(ips) == 0 {
				return nil, errors.New("no IP addresses resolved")
			}
			for _, ip := range ips {
				if isBlockedIP(ip) {
					return nil, ErrBlockedIP
				}
			}
			return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
		}
	}

	transport := &http.Transport{
		DialContext:           dial,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}

	maxRedirects := opts.MaxRedirects
	return &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return ErrTooManyRedirects
			}
			_, err := ValidateURL(req.URL.String(), opts.AllowPrivateNetworks)
			return err
		},
	}
}

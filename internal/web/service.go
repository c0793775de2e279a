// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package web

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/jeranaias/rigrun-gateway/internal/netcache"
	"github.com/jeranaias/rigrun-gateway/internal/offline"
	"github.com/jeranaias/rigrun-gateway/internal/resilience"
	"github.com/jeranaias/rigrun-gateway/internal/util"
)

// Defaults for the network tools.
const (
	DefaultResultCount    = 5
	DefaultBrowseMaxChars = 50_000
	DefaultCacheCapacity  = 100
	DefaultCacheTTL       = time.Hour
	DefaultWorkTimeout    = time.Minute
)

// Entry is a cached network tool payload. Exactly one field is set.
type Entry struct {
	Results []SearchResult
	Page    *Page
}

// Options configure a Service.
type Options struct {
	UserAgent         string
	InstantAnswerURL  string
	HTMLSearchURL     string
	BrowseMaxChars    int
	RequestsPerSecond float64
	Retry             resilience.RetryConfig

	// WorkTimeout bounds one shared search or page load. The work outlives
	// the caller that started it so joined callers still get an answer.
	WorkTimeout time.Duration
}

// DefaultRetry gives each strategy one retry, for transient failures only.
func DefaultRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxRetries:  1,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		IsRetryable: isTransient,
	}
}

// Service implements web_search and browse_url behind the offline gate and
// a shared cache.
type Service struct {
	gate       *offline.Gate
	cache      netcache.Cache[Entry]
	fetcher    Fetcher
	extractor  Extractor
	strategies []SearchStrategy
	limiter    *rate.Limiter
	group      singleflight.Group
	opts       Options
	log        zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithExtractor enables headless extraction for browse_url.
func WithExtractor(e Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

// WithStrategies replaces the default search strategies.
func WithStrategies(strategies ...SearchStrategy) Option {
	return func(s *Service) { s.strategies = strategies }
}

// NewService creates a Service. A nil cache stores nothing.
func NewService(gate *offline.Gate, cache netcache.Cache[Entry], fetcher Fetcher, opts Options, log zerolog.Logger, options ...Option) *Service {
	if gate == nil {
		gate = offline.NewGate(false, false)
	}
	if cache == nil {
		cache = netcache.New[Entry](0, 0)
	}
	if opts.BrowseMaxChars <= 0 {
		opts.BrowseMaxChars = DefaultBrowseMaxChars
	}
	if opts.WorkTimeout <= 0 {
		opts.WorkTimeout = DefaultWorkTimeout
	}
	if opts.Retry.IsRetryable == nil {
		opts.Retry.IsRetryable = isTransient
	}

	s := &Service{
		gate:    gate,
		cache:   cache,
		fetcher: fetcher,
		opts:    opts,
		log:     log.With().Str("component", "web").Logger(),
	}
	if opts.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(1, int(opts.RequestsPerSecond)))
	}
	if opts.InstantAnswerURL != "" {
		s.strategies = append(s.strategies, InstantAnswerStrategy(fetcher, opts.InstantAnswerURL, opts.UserAgent, opts.HTMLSearchURL))
	}
	if opts.HTMLSearchURL != "" {
		s.strategies = append(s.strategies, HTMLStrategy(fetcher, opts.HTMLSearchURL, opts.UserAgent, opts.InstantAnswerURL))
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// CacheStats reports cache counters when the cache keeps them.
func (s *Service) CacheStats() (netcache.Stats, bool) {
	if sc, ok := s.cache.(interface{ Stats() netcache.Stats }); ok {
		return sc.Stats(), true
	}
	return netcache.Stats{}, false
}

// =============================================================================
// WEB SEARCH
// =============================================================================

// Search returns up to k results for query. A cached answer is returned
// unchanged unless refresh is set.
func (s *Service) Search(ctx context.Context, query string, k int, refresh bool) ([]SearchResult, error) {
	if err := s.gate.CheckNetworkTool(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is empty")
	}
	if k <= 0 {
		k = DefaultResultCount
	}

	key := fmt.Sprintf("search:%s:%d", query, k)
	if refresh {
		s.cache.Delete(key)
	} else if entry, ok := s.cache.Get(key); ok {
		s.log.Debug().Str("key", key).Msg("cache hit")
		return slices.Clone(entry.Results), nil
	}

	v, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
		results, err := s.search(ctx, query, k)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, Entry{Results: results})
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]SearchResult)), nil
}

// shared runs fn once for every concurrent caller of key. fn gets a context
// detached from the first caller's cancellation and bounded by WorkTimeout;
// each caller stops waiting when its own ctx ends.
func (s *Service) shared(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		work, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.WorkTimeout)
		defer cancel()
		return fn(work)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.Val, r.Err
	}
}

func (s *Service) search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if len(s.strategies) == 0 {
		return nil, errors.New("no search strategies configured")
	}

	var (
		failures []StrategyFailure
		answered bool
	)
	for _, st := range s.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var got []SearchResult
		err := resilience.RetryWithBackoff(ctx, s.opts.Retry, func(ctx context.Context) error {
			if err := s.wait(ctx); err != nil {
				return err
			}
			r, err := st.Attempt(ctx, query, k)
			if err != nil {
				return err
			}
			got = r
			return nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.log.Warn().Err(err).Str("strategy", st.Name).Msg("search strategy failed")
			failures = append(failures, StrategyFailure{Strategy: st.Name, Err: err})
			continue
		}
		answered = true
		if len(got) > 0 {
			s.log.Debug().Str("strategy", st.Name).Int("results", len(got)).Msg("search answered")
			return got, nil
		}
	}

	if !answered {
		return nil, &AggregateError{Op: "web search", Failures: failures}
	}
	return []SearchResult{}, nil
}

// =============================================================================
// BROWSE
// =============================================================================

// Browse returns the readable content of rawURL, truncated to the
// configured maximum. A cached page is returned unchanged unless refresh is
// set.
func (s *Service) Browse(ctx context.Context, rawURL string, refresh bool) (Page, error) {
	return s.browse(ctx, strings.TrimSpace(rawURL), refresh, 0)
}

func (s *Service) browse(ctx context.Context, rawURL string, refresh bool, depth int) (Page, error) {
	if err := s.gate.CheckNetworkTool(); err != nil {
		return Page{}, err
	}
	if err := s.gate.ValidateURL(rawURL); err != nil {
		return Page{}, err
	}

	key := "browse:" + rawURL
	if refresh {
		s.cache.Delete(key)
	} else if entry, ok := s.cache.Get(key); ok && entry.Page != nil {
		s.log.Debug().Str("key", key).Msg("cache hit")
		return *entry.Page, nil
	}

	v, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
		page, err := s.load(ctx, rawURL, refresh, depth)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, Entry{Page: &page})
		return page, nil
	})
	if err != nil {
		return Page{}, err
	}
	return v.(Page), nil
}

// load tries the extractor, following at most one redirect, and falls back
// to a raw fetch.
func (s *Service) load(ctx context.Context, rawURL string, refresh bool, depth int) (Page, error) {
	var failures []StrategyFailure

	if s.extractor != nil {
		ex, err := s.extractor.Extract(ctx, rawURL)
		switch {
		case err != nil:
			failures = append(failures, StrategyFailure{Strategy: "extractor", Err: err})
		case ex.Status == StatusOK:
			return s.truncate(Page{URL: rawURL, Title: ex.Title, Content: ex.Content, Source: "extractor"}), nil
		case ex.Status == StatusRedirect && ex.URL != "" && ex.URL != rawURL && depth == 0:
			s.log.Debug().Str("from", rawURL).Str("to", ex.URL).Msg("extractor redirect")
			page, err := s.browse(ctx, ex.URL, refresh, depth+1)
			if err == nil {
				return page, nil
			}
			failures = append(failures, StrategyFailure{Strategy: "extractor redirect", Err: err})
		default:
			failures = append(failures, StrategyFailure{
				Strategy: "extractor",
				Err:      fmt.Errorf("unfollowed redirect to %q", ex.URL),
			})
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page{}, ctxErr
		}
		s.log.Debug().Err(failures[len(failures)-1].Err).Str("url", rawURL).Msg("extractor failed, fetching raw page")
	}

	var page Page
	err := resilience.RetryWithBackoff(ctx, s.opts.Retry, func(ctx context.Context) error {
		if err := s.wait(ctx); err != nil {
			return err
		}
		resp, err := s.fetcher.Fetch(ctx, rawURL, nil)
		if err != nil {
			return err
		}
		page, err = pageFromResponse(resp)
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page{}, ctxErr
		}
		failures = append(failures, StrategyFailure{Strategy: "fetch", Err: err})
		return Page{}, &AggregateError{Op: "browse " + rawURL, Failures: failures}
	}
	return s.truncate(page), nil
}

func (s *Service) truncate(p Page) Page {
	if utf8.RuneCountInString(p.Content) > s.opts.BrowseMaxChars {
		p.Content = util.KeepHead(p.Content, s.opts.BrowseMaxChars)
		p.Truncated = true
	}
	return p
}

func (s *Service) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

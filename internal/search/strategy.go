// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInapplicable is returned by a strategy that cannot answer this kind
	// of query (e.g. the index asked for a regex). The next strategy runs.
	ErrInapplicable = errors.New("strategy not applicable")

	// ErrUnavailable is returned when a backend is not configured or not ready.
	ErrUnavailable = errors.New("search backend unavailable")

	// ErrAllFailed wraps the per-strategy errors when nothing answered.
	ErrAllFailed = errors.New("all search strategies failed")
)

// =============================================================================
// STRATEGY LIST
// =============================================================================

// Strategy is one way of answering a query.
type Strategy[T any] struct {
	Name    string
	Attempt func(ctx context.Context) ([]T, error)
}

// Run tries strategies in order. The first non-empty answer wins. An empty
// answer, ErrInapplicable or an error falls through to the next strategy;
// the last strategy's empty answer is returned as-is. When the last strategy
// fails too, the error lists every failure.
// ctx is checked before each attempt.
func Run[T any](ctx context.Context, log zerolog.Logger, strategies []Strategy[T]) ([]T, error) {
	var errs []error

	for i, s := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := s.Attempt(ctx)
		switch {
		case errors.Is(err, ErrInapplicable):
			log.Debug().Str("strategy", s.Name).Msg("strategy not applicable")
			continue
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Debug().Err(err).Str("strategy", s.Name).Msg("search strategy failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}

		if len(items) > 0 || i == len(strategies)-1 {
			log.Debug().Str("strategy", s.Name).Int("results", len(items)).Msg("search answered")
			return items, nil
		}
	}

	// The last strategy failed or did not apply.
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
	}
	return nil, nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package paginate slices ordered results into fixed-size pages.
//
// Page n (1-based) of size P covers [P(n-1), Pn) clipped to the input
// length. HasNext is true when elements remain beyond the page.
package paginate

import (
	"errors"
	"fmt"
)

// ErrPageSize is returned for a page size below 1.
var ErrPageSize = errors.New("page size must be at least 1")

// PageError is returned for a page number below 1.
type PageError struct {
	Page int
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page number must be a positive integer, got %d", e.Page)
}

// Page is one page of items.
type Page[T any] struct {
	Items   []T
	Number  int
	HasNext bool
}

// Slice returns page n of items with size per page.
func Slice[T any](items []T, size, n int) (Page[T], error) {
	start, end, hasNext, err := bounds(len(items), size, n)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: items[start:end], Number: n, HasNext: hasNext}, nil
}

// TextPage is one character-offset page of a string.
type TextPage struct {
	Text    string
	Number  int
	HasNext bool
	// Total is the character count of the whole input.
	Total int
}

// Text paginates content by character (rune) offset.
func Text(content string, size, n int) (TextPage, error) {
	runes := []rune(content)
	start, end, hasNext, err := bounds(len(runes), size, n)
	if err != nil {
		return TextPage{}, err
	}
	return TextPage{
		Text:    string(runes[start:end]),
		Number:  n,
		HasNext: hasNext,
		Total:   len(runes),
	}, nil
}

func bounds(length, size, n int) (start, end int, hasNext bool, err error) {
	if size < 1 {
		return 0, 0, false, ErrPageSize
	}
	if n < 1 {
		return 0, 0, false, &PageError{Page: n}
	}
	start = min(size*(n-1), length)
	end = min(size*n, length)
	hasNext = length-1-size*n >= 0
	return start, end, hasNext, nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"errors"
	"fmt"
	"strings"
)

// Search/replace block markers used by edit_file.
const (
	markerOriginal = "<<<<<<< ORIGINAL"
	markerDivider  = "======="
	markerUpdated  = ">>>>>>> UPDATED"
)

// EditBlock replaces Original with Updated. Original must occur exactly
// once in the file.
type EditBlock struct {
	Original string
	Updated  string
}

var (
	// ErrNoBlocks is returned when the text holds no search/replace block.
	ErrNoBlocks = errors.New("no search/replace blocks found")

	// ErrMalformedBlock is returned for a block with missing markers.
	ErrMalformedBlock = errors.New("malformed search/replace block")
)

// ParseEditBlocks parses
//
//	<<<<<<< ORIGINAL
//	old text
//	=======
//	new text
//	>>>>>>> UPDATED
//
// blocks. Text outside blocks is ignored.
func ParseEditBlocks(text string) ([]EditBlock, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var (
		blocks   []EditBlock
		original []string
		updated  []string
		state    int // 0 outside, 1 original, 2 updated
	)
	for i, line := range lines {
		marker := strings.TrimRight(line, " \t")
		switch {
		case marker == markerOriginal:
			if state != 0 {
				return nil, fmt.Errorf("%w: line %d opens a block inside another", ErrMalformedBlock, i+1)
			}
			state, original, updated = 1, nil, nil
		case marker == markerDivider && state == 1:
			state = 2
		case marker == markerUpdated:
			if state != 2 {
				return nil, fmt.Errorf("%w: line %d closes a block that has no %q divider", ErrMalformedBlock, i+1, markerDivider)
			}
			if len(original) == 0 {
				return nil, fmt.Errorf("%w: block %d has an empty ORIGINAL section", ErrMalformedBlock, len(blocks)+1)
			}
			blocks = append(blocks, EditBlock{
				Original: strings.Join(original, "\n"),
				Updated:  strings.Join(updated, "\n"),
			})
			state = 0
		case state == 1:
			original = append(original, line)
		case state == 2:
			updated = append(updated, line)
		}
	}
	if state != 0 {
		return nil, fmt.Errorf("%w: block %d is not closed with %q", ErrMalformedBlock, len(blocks)+1, markerUpdated)
	}
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}
	return blocks, nil
}

// ApplyEditBlocks applies blocks in order. Files with CRLF line endings
// keep them.
func ApplyEditBlocks(content string, blocks []EditBlock) (string, error) {
	crlf := strings.Contains(content, "\r\n")
	for i, b := range blocks {
		original, updated := b.Original, b.Updated
		if crlf {
			original = strings.ReplaceAll(original, "\n", "\r\n")
			updated = strings.ReplaceAll(updated, "\n", "\r\n")
		}
		switch n := strings.Count(content, original); n {
		case 0:
			return "", fmt.Errorf("block %d: ORIGINAL text not found in file; re-read the file and copy the text exactly", i+1)
		case 1:
			content = strings.Replace(content, original, updated, 1)
		default:
			return "", fmt.Errorf("block %d: ORIGINAL text found %d times; include more surrounding lines so it matches once", i+1, n)
		}
	}
	return content, nil
}

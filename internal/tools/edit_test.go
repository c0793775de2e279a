// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEditBlocks(t *testing.T) {
	text := "Here are the edits.\n" +
		"<<<<<<< ORIGINAL\nfoo()\nbar()\n=======\nbaz()\n>>>>>>> UPDATED\n" +
		"and a deletion:\n" +
		"<<<<<<< ORIGINAL\nold line\n=======\n>>>>>>> UPDATED\n"

	blocks, err := ParseEditBlocks(text)
	require.NoError(t, err)
	assert.Equal(t, []EditBlock{
		{Original: "foo()\nbar()", Updated: "baz()"},
		{Original: "old line", Updated: ""},
	}, blocks)
}

func TestParseEditBlocks_Malformed(t *testing.T) {
	cases := map[string]string{
		"no blocks":      "nothing here",
		"unclosed":       "<<<<<<< ORIGINAL\na\n=======\nb\n",
		"no divider":     "<<<<<<< ORIGINAL\na\n>>>>>>> UPDATED\n",
		"nested":         "<<<<<<< ORIGINAL\n<<<<<<< ORIGINAL\n",
		"empty original": "<<<<<<< ORIGINAL\n=======\nb\n>>>>>>> UPDATED\n",
	}
	for name, text := range cases {
		_, err := ParseEditBlocks(text)
		assert.Error(t, err, name)
	}
}

func TestApplyEditBlocks(t *testing.T) {
	content := "a\nb\nc\n"

	got, err := ApplyEditBlocks(content, []EditBlock{{Original: "b", Updated: "B"}, {Original: "c\n", Updated: ""}})
	require.NoError(t, err)
	assert.Equal(t, "a\nB\n", got)

	_, err = ApplyEditBlocks(content, []EditBlock{{Original: "zzz", Updated: ""}})
	assert.ErrorContains(t, err, "not found")

	_, err = ApplyEditBlocks("x x", []EditBlock{{Original: "x", Updated: "y"}})
	assert.ErrorContains(t, err, "2 times")
}

func TestApplyEditBlocks_KeepsCRLF(t *testing.T) {
	got, err := ApplyEditBlocks("one\r\ntwo\r\nthree\r\n", []EditBlock{{Original: "one\ntwo", Updated: "1\n2"}})
	require.NoError(t, err)
	assert.Equal(t, "1\r\n2\r\nthree\r\n", got)
}

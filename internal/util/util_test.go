// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("hello, world!"), 0644))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello, world!", string(content))
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "deep", "test.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("test data"), 0644))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestAtomicWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("initial"), 0644))
	require.NoError(t, AtomicWriteFile(path, []byte("updated"), 0644))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "updated", string(content))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAtomicWriteFile_EmptyData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")

	require.NoError(t, AtomicWriteFile(path, []byte{}, 0644))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestAtomicWriteFile_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	path := filepath.Join(t.TempDir(), "secret.toml")

	require.NoError(t, AtomicWriteFile(path, []byte("k = 1"), 0600))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

// =============================================================================
// STRING TRUNCATION TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"tiny max", "hello", 2, "he"},
		{"zero", "hello", 0, ""},
		{"multibyte", "日本語テキスト", 5, "日本..."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, TruncateRunes(tc.input, tc.max))
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	assert.Equal(t, "hello", TruncateWidth("hello", 10))
	assert.Equal(t, "he...", TruncateWidth("hello world", 5))
	assert.Equal(t, "", TruncateWidth("hello", 0))

	// Each CJK character is two columns wide.
	out := TruncateWidth("日本語日本語", 7)
	assert.LessOrEqual(t, StringWidth(out), 7)
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestStringWidth(t *testing.T) {
	assert.Equal(t, 5, StringWidth("hello"))
	assert.Equal(t, 6, StringWidth("日本語"))
	assert.Equal(t, 0, StringWidth(""))
}

func TestKeepHead(t *testing.T) {
	assert.Equal(t, "short", KeepHead("short", 10))

	out := KeepHead("abcdefghij", 4)
	assert.True(t, strings.HasPrefix(out, "abcd\n"))
	assert.Contains(t, out, "truncated 6 characters")

	// Zero and negative caps disable truncation.
	assert.Equal(t, "abcdefghij", KeepHead("abcdefghij", -1))
	assert.Equal(t, "abcdefghij", KeepHead("abcdefghij", 0))
}

func TestKeepTail(t *testing.T) {
	assert.Equal(t, "short", KeepTail("short", 10))

	out := KeepTail("abcdefghij", 4)
	assert.True(t, strings.HasSuffix(out, "\nghij"))
	assert.Contains(t, out, "truncated 6 characters")

	out = KeepTail("日本語テキスト", 3)
	assert.True(t, strings.HasSuffix(out, "キスト"))

	assert.Equal(t, "hello\noops\n", KeepTail("hello\noops\n", 0))
}

// =============================================================================
// BINARY DETECTION TESTS
// =============================================================================

func TestIsBinary(t *testing.T) {
	assert.False(t, IsBinary(nil))
	assert.False(t, IsBinary([]byte("package main\n\nfunc main() {}\n")))
	assert.False(t, IsBinary([]byte("héllo wörld, ünïcode text")))
	assert.True(t, IsBinary([]byte{'a', 0, 'b'}))
	assert.True(t, IsBinary([]byte{0x01, 0x02, 0x03, 0x04, 'a'}))

	// Non-Latin UTF-8 text is text, including when the sniff window ends
	// in the middle of a character.
	assert.False(t, IsBinary([]byte("Привет, мир! Это обычный текстовый файл.\n")))
	assert.False(t, IsBinary([]byte("日本語のテキストファイルです。")))
	assert.False(t, IsBinary([]byte("Καλημέρα κόσμε")))
	cjk := []byte(strings.Repeat("中文", SniffLen))
	assert.False(t, IsBinary(cjk[:SniffLen+1]))

	// High bytes that are not UTF-8 still count.
	latin := make([]byte, 64)
	for i := range latin {
		latin[i] = 0x80 + byte(i)
	}
	assert.True(t, IsBinary(latin))
}

func TestIsBinaryExt(t *testing.T) {
	assert.True(t, IsBinaryExt("logo.PNG"))
	assert.True(t, IsBinaryExt("/x/y/lib.so"))
	assert.False(t, IsBinaryExt("main.go"))
	assert.False(t, IsBinaryExt("Makefile"))
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// SniffLen is how many leading bytes IsBinary needs.
const SniffLen = 512

// MaxContentFileSize is the default size above which content search skips
// a file. The scanner and the index share it so both tiers see the same set.
const MaxContentFileSize = 5 * 1024 * 1024

// IgnoreNames holds directory and file names skipped by content search.
var IgnoreNames = []string{
	".git", ".svn", ".hg",
	"node_modules", "__pycache__", ".venv", "venv",
	"target", "dist", "build",
	".idea", ".vscode", ".vs", ".cache",
}

// IsBinary reports whether data (typically the first SniffLen bytes of a
// file) looks binary: any NUL byte, or more than 30% control bytes. Bytes
// above 0x7e count against the input only when it is not valid UTF-8.
func IsBinary(data []byte) bool {
	if len(data) > SniffLen {
		data = data[:SniffLen]
	}
	if len(data) == 0 {
		return false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}

	text := utf8.Valid(trimPartialRune(data))
	nonPrintable := 0
	for _, b := range data {
		switch {
		case b == '\n' || b == '\r' || b == '\t' || b == '\f' || b == '\b' || b == 0x1b:
		case b < 32 || b == 0x7f:
			nonPrintable++
		case b > 0x7e && !text:
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(data)) > 0.30
}

// trimPartialRune drops an incomplete multi-byte sequence cut off at the
// end of a sniff window.
func trimPartialRune(data []byte) []byte {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b < utf8.RuneSelf {
			return data
		}
		if utf8.RuneStart(b) {
			if !utf8.FullRune(data[len(data)-i:]) {
				return data[:len(data)-i]
			}
			return data
		}
	}
	return data
}

var binaryExts = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".bin": true, ".dat": true, ".db": true, ".sqlite": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".ico": true, ".bmp": true, ".tiff": true, ".webp": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true,
	".xlsx": true, ".ppt": true, ".pptx": true,
	".zip": true, ".tar": true, ".gz": true, ".rar": true,
	".7z": true, ".bz2": true, ".xz": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true,
	".wav": true, ".flac": true, ".ogg": true,
	".ttf": true, ".otf": true, ".woff": true, ".woff2": true,
	".pyc": true, ".pyo": true, ".class": true,
	".o": true, ".a": true, ".lib": true,
}

// IsBinaryExt reports whether path has a well-known binary extension.
func IsBinaryExt(path string) bool {
	return binaryExts[strings.ToLower(filepath.Ext(path))]
}

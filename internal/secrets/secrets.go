// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package secrets detects and redacts credential-like values in text.
//
// Detection combines known token shapes with a Shannon entropy check for
// long random-looking words.
package secrets

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// PATTERNS
// =============================================================================

// Pattern is a named secret shape.
type Pattern struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultPatterns are checked in order; more specific shapes come first so
// their names win on overlap.
var DefaultPatterns = []Pattern{
	{"anthropic key", regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-_]{20,}`)},
	{"openrouter key", regexp.MustCompile(`sk-or-v1-[a-zA-Z0-9]{32,}`)},
	{"openai key", regexp.MustCompile(`sk-(proj-)?[a-zA-Z0-9_\-]{20,}`)},
	{"github token", regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36,}`)},
	{"aws access key", regexp.MustCompile(`\b(AKIA|ASIA)[0-9A-Z]{16}\b`)},
	{"slack token", regexp.MustCompile(`xox[abprs]-[a-zA-Z0-9\-]{10,}`)},
	{"private key", regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`)},
	{"jwt", regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`)},
	{"bearer token", regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_.=]{16,}`)},
	{"password assignment", regexp.MustCompile(`(?i)(password|passwd|pwd|secret|api_?key|token)\s*[=:]\s*["']?[^\s"']{6,}`)},
}

// Default thresholds for entropy detection.
const (
	// EntropyThreshold marks likely random data such as keys and tokens.
	EntropyThreshold = 4.5
	// MinEntropyLength is the shortest word analysed.
	MinEntropyLength = 20
)

// Redacted replaces every detected value.
const Redacted = "[REDACTED]"

// =============================================================================
// DETECTOR
// =============================================================================

// Finding is one detected value.
type Finding struct {
	Kind  string
	Start int
	End   int
}

// Detector finds secrets in text. The zero value is not usable; use New.
type Detector struct {
	patterns      []Pattern
	entropy       bool
	minEntropyLen int
}

// Option configures a Detector.
type Option func(*Detector)

// WithPatterns replaces the pattern list.
func WithPatterns(p []Pattern) Option {
	return func(d *Detector) { d.patterns = p }
}

// WithoutEntropy disables the entropy check.
func WithoutEntropy() Option {
	return func(d *Detector) { d.entropy = false }
}

// New returns a detector with the default patterns and entropy check.
func New(opts ...Option) *Detector {
	d := &Detector{
		patterns:      DefaultPatterns,
		entropy:       true,
		minEntropyLen: MinEntropyLength,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns non-overlapping findings ordered by position.
func (d *Detector) Detect(text string) []Finding {
	var found []Finding
	for _, p := range d.patterns {
		for _, loc := range p.Pattern.FindAllStringIndex(text, -1) {
			found = append(found, Finding{Kind: p.Name, Start: loc[0], End: loc[1]})
		}
	}
	if d.entropy {
		found = append(found, d.highEntropy(text)...)
	}
	return merge(found)
}

// Redact replaces every finding with Redacted.
func (d *Detector) Redact(text string) string {
	found := d.Detect(text)
	if len(found) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, f := range found {
		b.WriteString(text[last:f.Start])
		b.WriteString(Redacted)
		last = f.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// merge sorts findings and drops those overlapping an earlier one. Pattern
// findings were appended first, so they win ties at the same offset.
func merge(found []Finding) []Finding {
	if len(found) < 2 {
		return found
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Start < found[j].Start })
	out := found[:1]
	for _, f := range found[1:] {
		prev := &out[len(out)-1]
		if f.Start < prev.End {
			if f.End > prev.End {
				prev.End = f.End
			}
			continue
		}
		out = append(out, f)
	}
	return out
}

// highEntropy finds whitespace-delimited words whose Shannon entropy is
// above EntropyThreshold.
func (d *Detector) highEntropy(text string) []Finding {
	var found []Finding
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		wordStart, wordEnd := trimPunct(text, start, end)
		start = -1
		if wordEnd-wordStart < d.minEntropyLen {
			return
		}
		word := text[wordStart:wordEnd]
		if looksLikePath(word) {
			return
		}
		if calculateEntropy(normalizeForDetection(word)) > EntropyThreshold {
			found = append(found, Finding{Kind: "high entropy string", Start: wordStart, End: wordEnd})
		}
	}
	for i, r := range text {
		if isSeparator(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(text))
	return found
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', ',', ';', '=', ':':
		return true
	}
	return false
}

func trimPunct(text string, start, end int) (int, int) {
	const cut = "\"'`()[]{}.!?<>"
	for start < end && strings.IndexByte(cut, text[start]) >= 0 {
		start++
	}
	for end > start && strings.IndexByte(cut, text[end-1]) >= 0 {
		end--
	}
	return start, end
}

// looksLikePath skips file paths and URLs, which are long but not secret.
func looksLikePath(word string) bool {
	return strings.Count(word, "/") >= 2 || strings.Contains(word, "://")
}

// normalizeForDetection folds compatibility forms (fullwidth letters and
// similar) so lookalike characters do not inflate entropy.
func normalizeForDetection(s string) string {
	normalized, _, err := transform.String(norm.NFKD, s)
	if err != nil {
		return s
	}
	return normalized
}

// calculateEntropy calculates the Shannon entropy of a string in bits per
// character.
func calculateEntropy(s string) float64 {
	if len(s) == 0 {
		return 0.0
	}

	freq := make(map[rune]int)
	total := 0
	for _, r := range s {
		freq[r]++
		total++
	}

	var entropy float64
	length := float64(total)
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// Package checksum computes drift-detection checksums for SQL migration files.
//
// Comments, trailing whitespace and blank lines are stripped before hashing, so
// cosmetic edits to a migration do not change its checksum while any change to
// the statements themselves does.
package checksum

import (
	"hash/crc32"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentPattern  = regexp.MustCompile(`--.*?\n`)
	newlineReplacer     = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Normalize strips block comments, line comments and blank lines, and
// right-trims every remaining line. The result has no trailing newline.
func Normalize(text string) string {
	s := newlineReplacer.Replace(text)
	s = blockCommentPattern.ReplaceAllString(s, "")
	// a "--" comment on an unterminated last line is left alone
	s = lineCommentPattern.ReplaceAllString(s, "\n")

	lines := splitLines(s)
	kept := make([]string, 0, len(lines))
	for _, ln := range lines {
		if strings.TrimFunc(ln, isSpace) == "" {
			continue
		}
		kept = append(kept, strings.TrimRightFunc(ln, isSpace))
	}
	return strings.Join(kept, "\n")
}

// CRC returns the IEEE CRC-32 of text folded into the signed 32-bit range.
func CRC(text string) int32 {
	return int32(crc32.ChecksumIEEE([]byte(text)))
}

// splitLines splits on every line boundary a text-mode reader recognises,
// without producing a trailing empty element.
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if isLineBoundary(r) {
			lines = append(lines, s[start:i])
			start = i + utf8.RuneLen(r)
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func isLineBoundary(r rune) bool {
	switch r {
	case '\n', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

func isSpace(r rune) bool {
	if r >= '\x1c' && r <= '\x1f' {
		return true
	}
	return unicode.IsSpace(r)
}

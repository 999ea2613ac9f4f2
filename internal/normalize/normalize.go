// SPDX-License-Identifier: MIT

// Package normalize canonicalizes channel names so that document entries and
// client queries can be compared byte for byte.
package normalize

import (
	"strings"
	"unicode"

	unorm "golang.org/x/text/unicode/norm"
)

// ChannelName returns the comparison key for a channel name:
//   - trims surrounding whitespace and invisible characters
//   - upper-cases ("cctv1" and "CCTV1" are the same key)
//   - drops markup leftovers (angle brackets, ampersand, quotes)
//   - removes every whitespace rune, including inner spaces
//   - strips zero-width characters and the byte order mark
//
// The result is NFC-composed. ChannelName is idempotent and never fails.
func ChannelName(s string) string {
	// Dropping a separator can let NFC recompose into a sequence that
	// upper-cases further, so repeat until the key is stable.
	for i := 0; i < maxPasses && s != ""; i++ {
		next := channelNamePass(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

const maxPasses = 8

func channelNamePass(s string) string {
	s = strings.ToUpper(unorm.NFC.String(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if dropRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	return unorm.NFC.String(b.String())
}

func dropRune(r rune) bool {
	if unicode.IsSpace(r) || isInvisible(r) {
		return true
	}
	switch r {
	case '<', '>', '&', '"', '\'', '“', '”', '‘', '’':
		return true
	}
	return false
}

func isInvisible(r rune) bool {
	return r == '\u200B' || // Zero Width Space
		r == '\u200C' || // Zero Width Non-Joiner
		r == '\u200D' || // Zero Width Joiner
		r == '\uFEFF' // Zero Width Non-Breaking Space (BOM)
}

// Token normalizes a free-form token (query flags, language codes):
// trims whitespace and invisible edge characters and lowercases.
func Token(s string) string {
	return strings.ToLower(strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || isInvisible(r)
	}))
}

// SPDX-License-Identifier: MIT

// Package epg extracts channels and programmes from XMLTV guide documents and
// matches channel names against them.
package epg

import (
	"regexp"
	"strings"

	"github.com/ManuGH/diyepg/internal/normalize"
)

// DefaultLanguage is the preferred lang attribute for names and titles.
const DefaultLanguage = "zh"

var channelOpen = regexp.MustCompile(`<(?i:channel)(?:\s[^>]*)?>`)

// Document is the text of one XMLTV guide together with its channel list.
// It is never modified after ParseDocument returns and may be shared.
type Document struct {
	Source   string
	Text     string
	Language string
	Channels []ChannelRecord
}

// ParseDocument scans text for <channel> elements. lang selects the preferred
// display-name; empty means DefaultLanguage.
func ParseDocument(source, text, lang string) *Document {
	if lang == "" {
		lang = DefaultLanguage
	}
	return &Document{
		Source:   source,
		Text:     text,
		Language: lang,
		Channels: ParseChannels(text, lang),
	}
}

// NormalizedNames lists every channel's comparison key in document order.
func (d *Document) NormalizedNames() []string {
	out := make([]string, len(d.Channels))
	for i, ch := range d.Channels {
		out[i] = ch.NormalizedName
	}
	return out
}

// ParseChannels returns one record per distinct channel id in document order.
// When an id repeats, the first occurrence wins. A channel without a
// display-name is named after its id; one without an id is skipped.
func ParseChannels(markup, lang string) []ChannelRecord {
	seen := make(map[string]struct{})
	var out []ChannelRecord
	for _, loc := range channelOpen.FindAllStringIndex(markup, -1) {
		tag := markup[loc[0]:loc[1]]
		id := strings.TrimSpace(tagAttrs(tag)["id"])
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		var body string
		if !strings.HasSuffix(tag, "/>") {
			body = elementBody(markup, loc[1], "channel")
		}
		name := ExtractField(body, "display-name", lang)
		if name == "" {
			name = id
		}
		out = append(out, ChannelRecord{
			ID:             id,
			RawName:        name,
			NormalizedName: normalize.ChannelName(name),
		})
	}
	return out
}

// elementBody returns the markup between the end of a start tag at offset
// from and the matching close tag. An unclosed element ends where the next
// element of the same name starts, or at the end of markup. Tag names are
// compared case-insensitively.
func elementBody(markup string, from int, name string) string {
	rest := markup[from:]
	end := len(rest)
	if i := indexTag(rest, "</", name); i >= 0 {
		end = i
	}
	if i := indexTag(rest[:end], "<", name); i >= 0 {
		end = i
	}
	return rest[:end]
}

// indexTag finds prefix+name in s, ignoring ASCII case, where name is
// followed by whitespace, '>', '/' or the end of s. It returns -1 if absent.
func indexTag(s, prefix, name string) int {
	for off := 0; off < len(s); {
		i := strings.Index(s[off:], prefix)
		if i < 0 {
			return -1
		}
		at := off + i
		rest := s[at+len(prefix):]
		if len(rest) >= len(name) && strings.EqualFold(rest[:len(name)], name) &&
			(len(rest) == len(name) || isNameEnd(rest[len(name)])) {
			return at
		}
		off = at + len(prefix)
	}
	return -1
}

func isNameEnd(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '>', '/':
		return true
	}
	return false
}

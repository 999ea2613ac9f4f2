// SPDX-License-Identifier: MIT

package epg

import (
	"regexp"
	"strings"
	"time"
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// programmePattern matches the start tag of every <programme> whose channel
// attribute is exactly channelID. The id is matched literally, both as given
// and in its XML-escaped form. Attributes merely ending in "channel", such as
// data-channel, do not count.
func programmePattern(channelID string) *regexp.Regexp {
	ids := []string{regexp.QuoteMeta(channelID)}
	if escaped := attrEscaper.Replace(channelID); escaped != channelID {
		ids = append(ids, regexp.QuoteMeta(escaped))
	}
	alt := strings.Join(ids, "|")
	return regexp.MustCompile(`<(?i:programme)(?:\s[^>]*?)?\s(?i:channel)\s*=\s*(?:"(?:` + alt + `)"|'(?:` + alt + `)')[^>]*>`)
}

// ExtractProgrammes returns the programmes of channelID that start inside
// [dayStart, dayEnd). Start and stop without an explicit offset are read in
// dayStart's location. Entries with an unparseable start or stop are
// dropped. Titles and descriptions prefer lang; missing ones are "".
//
// The result keeps document order; it is not sorted by start time.
func ExtractProgrammes(markup, channelID string, dayStart, dayEnd time.Time, lang string) []ProgrammeRecord {
	if markup == "" || channelID == "" {
		return nil
	}
	loc := dayStart.Location()

	var out []ProgrammeRecord
	for _, idx := range programmePattern(channelID).FindAllStringIndex(markup, -1) {
		tag := markup[idx[0]:idx[1]]
		attrs := tagAttrs(tag)

		start, ok := ParseTimestamp(attrs["start"], loc)
		if !ok {
			continue
		}
		stop, ok := ParseTimestamp(attrs["stop"], loc)
		if !ok {
			continue
		}
		if start.Before(dayStart) || !start.Before(dayEnd) {
			continue
		}

		var body string
		if !strings.HasSuffix(tag, "/>") {
			body = elementBody(markup, idx[1], "programme")
		}
		out = append(out, ProgrammeRecord{
			ChannelID:   channelID,
			Start:       start,
			Stop:        stop,
			Title:       ExtractField(body, "title", lang),
			Description: ExtractField(body, "desc", lang),
		})
	}
	return out
}

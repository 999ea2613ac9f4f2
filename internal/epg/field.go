// SPDX-License-Identifier: MIT

package epg

import (
	"encoding/xml"
	"errors"
	"html"
	"io"
	"regexp"
	"strings"
	"sync"
)

// ExtractField returns the text of the first <field> element in markup whose
// lang attribute matches langPrefix ("zh" accepts "zh", "zh-CN", "zh_Hans",
// compared case-insensitively). Without such an element it falls back to the
// first <field> without a lang attribute, then to the first <field> in any
// language. Elements with blank content are not candidates.
//
// markup is usually a fragment (the body of a <channel> or <programme>), not a
// well-formed document. It is read with a lenient tokenizer; when the
// tokenizer gives up before finding any candidate a lexical scan is used
// instead. ExtractField never fails: a missing field yields "".
func ExtractField(markup, field, langPrefix string) string {
	if markup == "" || field == "" {
		return ""
	}
	c, err := scanFields(markup, field, langPrefix)
	if err != nil && !c.hasAny {
		c = scanFieldsLexical(markup, field, langPrefix)
	}
	return c.pick()
}

type fieldCandidates struct {
	preferred      string
	unqualified    string
	anyLang        string
	hasPreferred   bool
	hasUnqualified bool
	hasAny         bool
}

func (c *fieldCandidates) offer(lang string, hasLang bool, text, langPrefix string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	lang = strings.TrimSpace(lang)
	switch {
	case hasLang && lang != "" && langMatches(lang, langPrefix):
		if !c.hasPreferred {
			c.preferred, c.hasPreferred = text, true
		}
	case !hasLang || lang == "":
		if !c.hasUnqualified {
			c.unqualified, c.hasUnqualified = text, true
		}
	}
	if !c.hasAny {
		c.anyLang, c.hasAny = text, true
	}
}

func (c *fieldCandidates) pick() string {
	switch {
	case c.hasPreferred:
		return c.preferred
	case c.hasUnqualified:
		return c.unqualified
	case c.hasAny:
		return c.anyLang
	}
	return ""
}

func langMatches(lang, prefix string) bool {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return false
	}
	lang = strings.ToLower(lang)
	return lang == prefix ||
		strings.HasPrefix(lang, prefix+"-") ||
		strings.HasPrefix(lang, prefix+"_")
}

// newLenientDecoder returns a decoder that accepts the sloppy markup commonly
// found in EPG feeds: unknown HTML entities, bare ampersands, mismatched end
// tags.
func newLenientDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	return dec
}

func scanFields(markup, field, langPrefix string) (fieldCandidates, error) {
	var c fieldCandidates
	dec := newLenientDecoder(strings.NewReader(markup))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return c, nil
			}
			return c, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, field) {
			continue
		}
		lang, hasLang := attrValue(start.Attr, "lang")
		text, err := elementText(dec)
		c.offer(lang, hasLang, text, langPrefix)
		if c.hasPreferred {
			return c, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return c, nil
			}
			return c, err
		}
	}
}

// elementText collects the character data up to the end of the element whose
// start tag was just consumed. Nested elements contribute their text.
func elementText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return b.String(), err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}
	return b.String(), nil
}

func attrValue(attrs []xml.Attr, name string) (string, bool) {
	for _, a := range attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}

var (
	fieldPatterns sync.Map // field name -> *regexp.Regexp

	cdataPattern = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	tagPattern   = regexp.MustCompile(`(?s)<[^>]*>`)
	attrPattern  = regexp.MustCompile(`(?s)(?:^|\s)((?:[\w.-]+:)?[\w.-]+)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>/]+))`)
)

func fieldPattern(field string) *regexp.Regexp {
	if re, ok := fieldPatterns.Load(field); ok {
		return re.(*regexp.Regexp)
	}
	name := regexp.QuoteMeta(field)
	re := regexp.MustCompile(`(?is)<` + name + `(\s[^>]*)?>(.*?)</` + name + `\s*>`)
	actual, _ := fieldPatterns.LoadOrStore(field, re)
	return actual.(*regexp.Regexp)
}

func scanFieldsLexical(markup, field, langPrefix string) fieldCandidates {
	var c fieldCandidates
	for _, m := range fieldPattern(field).FindAllStringSubmatch(markup, -1) {
		attrs := lexicalAttrs(m[1])
		lang, hasLang := attrs["lang"]
		c.offer(lang, hasLang, lexicalText(m[2]), langPrefix)
		if c.hasPreferred {
			break
		}
	}
	return c
}

func lexicalText(body string) string {
	body = cdataPattern.ReplaceAllString(body, "$1")
	body = tagPattern.ReplaceAllString(body, "")
	return html.UnescapeString(body)
}

// lexicalAttrs parses name=value pairs from the inside of a start tag.
// Namespace prefixes are dropped and names are lower-cased.
func lexicalAttrs(s string) map[string]string {
	out := make(map[string]string)
	for _, m := range attrPattern.FindAllStringSubmatch(s, -1) {
		name := strings.ToLower(m[1])
		if i := strings.LastIndexByte(name, ':'); i >= 0 {
			name = name[i+1:]
		}
		if _, dup := out[name]; dup {
			continue
		}
		value := m[2]
		if value == "" {
			value = m[3]
		}
		if value == "" {
			value = m[4]
		}
		out[name] = html.UnescapeString(value)
	}
	return out
}

// tagAttrs returns the attributes of a single start tag such as
// `<programme start="..." channel="...">`, keyed by lower-cased local name.
func tagAttrs(tag string) map[string]string {
	dec := newLenientDecoder(strings.NewReader(tag))
	tok, err := dec.Token()
	if err == nil {
		if start, ok := tok.(xml.StartElement); ok {
			out := make(map[string]string, len(start.Attr))
			for _, a := range start.Attr {
				name := strings.ToLower(a.Name.Local)
				if _, dup := out[name]; !dup {
					out[name] = a.Value
				}
			}
			return out
		}
	}
	inner := strings.TrimPrefix(tag, "<")
	inner = strings.TrimSuffix(strings.TrimSuffix(inner, ">"), "/")
	if i := strings.IndexFunc(inner, isTagSpace); i >= 0 {
		inner = inner[i:]
	} else {
		inner = ""
	}
	return lexicalAttrs(inner)
}

func isTagSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// SPDX-License-Identifier: MIT

// Package diyp reads DIYP guide requests and builds the JSON documents DIYP
// compatible players expect.
package diyp

import (
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/diyepg/internal/normalize"
)

// DateLayout is the layout of the "date" field in responses.
const DateLayout = "2006-01-02"

// Query is one parsed guide request.
type Query struct {
	ChannelName string    // raw, as sent by the client
	Date        time.Time // midnight of the requested day
	Debug       bool

	// DateDefaulted is set when the date parameter was absent or unusable
	// and today was substituted.
	DateDefaulted bool
}

// ParseQuery reads ch (or channel), date and debug from v. A missing or
// malformed date becomes the current day of now in loc.
func ParseQuery(v url.Values, now time.Time, loc *time.Location) Query {
	if loc == nil {
		loc = time.UTC
	}
	name := v.Get("ch")
	if normalize.ChannelName(name) == "" {
		name = v.Get("channel")
	}

	q := Query{ChannelName: name, Debug: ParseFlag(v, "debug")}
	if d, ok := ParseDate(v.Get("date"), loc); ok {
		q.Date = d
	} else {
		y, m, day := now.In(loc).Date()
		q.Date = time.Date(y, m, day, 0, 0, 0, 0, loc)
		q.DateDefaulted = true
	}
	return q
}

// ParseDate keeps only the digits of s and reads the first eight as
// YYYYMMDD, so "2026-01-05", "2026/01/05" and "20260105" are equivalent.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			if digits.Len() == 8 {
				break
			}
		}
	}
	if digits.Len() < 8 {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation("20060102", digits.String(), loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ParseFlag reports whether the query parameter name is set to 1, true, yes
// or on, or is present without a value.
func ParseFlag(v url.Values, name string) bool {
	if !v.Has(name) {
		return false
	}
	switch normalize.Token(v.Get(name)) {
	case "", "1", "true", "yes", "on":
		return true
	}
	return false
}

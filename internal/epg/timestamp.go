// SPDX-License-Identifier: MIT

package epg

import (
	"regexp"
	"strconv"
	"time"
)

// xmltvLayout is the canonical XMLTV timestamp: YYYYMMDDHHMMSS ±HHMM.
const xmltvLayout = "20060102150405 -0700"

var timestampPattern = regexp.MustCompile(`^\s*(\d+)\s*(?:([+-])(\d{2}):?(\d{2}))?\s*$`)

// ParseTimestamp parses an XMLTV start/stop attribute. Accepted forms are
// "YYYYMMDDHHMMSS", "YYYYMMDDHHMM" and either followed by an offset such as
// "+0800" or "+08:00". Anything else after the digits rejects the value.
// Without an offset the time is read in loc, never in
// the host's zone; a nil loc means UTC.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	m := timestampPattern.FindStringSubmatch(s)
	if m == nil || (len(m[1]) != 14 && len(m[1]) != 12) {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	if m[2] != "" {
		hh, _ := strconv.Atoi(m[3])
		mm, _ := strconv.Atoi(m[4])
		if hh > 14 || mm > 59 {
			return time.Time{}, false
		}
		secs := hh*3600 + mm*60
		if m[2] == "-" {
			secs = -secs
		}
		loc = time.FixedZone("", secs)
	}

	layout := "20060102150405"
	if len(m[1]) == 12 {
		layout = "200601021504"
	}
	t, err := time.ParseInLocation(layout, m[1], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatTimestamp renders t in the canonical XMLTV form.
func FormatTimestamp(t time.Time) string {
	return t.Format(xmltvLayout)
}

// DayWindow returns the half-open interval [start, start+24h) of the calendar
// day of date, evaluated in loc.
func DayWindow(date time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour)
}

// SPDX-License-Identifier: MIT

package diyp

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/diyepg/internal/epg"
)

var beijing = time.FixedZone("UTC+8", 8*3600)

func TestParseQuery(t *testing.T) {
	// 15:30 UTC is 23:30 on the 5th in Beijing.
	now := time.Date(2026, 1, 5, 15, 30, 0, 0, time.UTC)
	today := time.Date(2026, 1, 5, 0, 0, 0, 0, beijing)

	tests := []struct {
		name        string
		raw         string
		wantChannel string
		wantDate    time.Time
		wantDefault bool
		wantDebug   bool
	}{
		{name: "ch alias", raw: "ch=CCTV1&date=2026-01-06", wantChannel: "CCTV1", wantDate: today.AddDate(0, 0, 1)},
		{name: "channel", raw: "channel=%E6%B9%96%E5%8D%97%E5%8D%AB%E8%A7%86&date=20260106", wantChannel: "湖南卫视", wantDate: today.AddDate(0, 0, 1)},
		{name: "ch wins over channel", raw: "ch=A&channel=B", wantChannel: "A", wantDate: today, wantDefault: true},
		{name: "blank ch falls back to channel", raw: "ch=+&channel=B", wantChannel: "B", wantDate: today, wantDefault: true},
		{name: "invisible ch falls back to channel", raw: "ch=%E2%80%8B&channel=B", wantChannel: "B", wantDate: today, wantDefault: true},
		{name: "slashes", raw: "ch=x&date=2026/02/28", wantChannel: "x", wantDate: time.Date(2026, 2, 28, 0, 0, 0, 0, beijing)},
		{name: "extra digits ignored", raw: "ch=x&date=2026010512", wantChannel: "x", wantDate: today},
		{name: "not a date", raw: "ch=x&date=notadate", wantChannel: "x", wantDate: today, wantDefault: true},
		{name: "short", raw: "ch=x&date=202601", wantChannel: "x", wantDate: today, wantDefault: true},
		{name: "impossible month", raw: "ch=x&date=20261301", wantChannel: "x", wantDate: today, wantDefault: true},
		{name: "debug", raw: "ch=x&debug=TRUE", wantChannel: "x", wantDate: today, wantDefault: true, wantDebug: true},
		{name: "empty", raw: "", wantDate: today, wantDefault: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := url.ParseQuery(tt.raw)
			require.NoError(t, err)

			q := ParseQuery(v, now, beijing)
			assert.Equal(t, tt.wantChannel, q.ChannelName)
			assert.True(t, tt.wantDate.Equal(q.Date), "date = %v, want %v", q.Date, tt.wantDate)
			assert.Equal(t, tt.wantDefault, q.DateDefaulted)
			assert.Equal(t, tt.wantDebug, q.Debug)
		})
	}
}

func TestParseQuery_TodayFollowsLocation(t *testing.T) {
	// 17:00 UTC on the 5th is already the 6th in Beijing.
	now := time.Date(2026, 1, 5, 17, 0, 0, 0, time.UTC)
	q := ParseQuery(url.Values{}, now, beijing)
	assert.Equal(t, "2026-01-06", q.Date.Format(DateLayout))
}

func TestParseFlag(t *testing.T) {
	for raw, want := range map[string]bool{
		"debug=1":     true,
		"debug=yes":   true,
		"debug=On":    true,
		"debug":       true,
		"debug=0":     false,
		"debug=false": false,
		"debug=nope":  false,
		"other=1":     false,
	} {
		v, err := url.ParseQuery(raw)
		require.NoError(t, err)
		assert.Equal(t, want, ParseFlag(v, "debug"), raw)
	}
}

func TestFallback(t *testing.T) {
	entries := Fallback("精彩节目")
	require.Len(t, entries, 24)

	assert.Equal(t, Entry{Start: "00:00", End: "01:00", Title: "精彩节目"}, entries[0])
	assert.Equal(t, Entry{Start: "12:00", End: "13:00", Title: "精彩节目"}, entries[12])
	assert.Equal(t, Entry{Start: "23:00", End: "00:00", Title: "精彩节目"}, entries[23])
	for _, e := range entries {
		assert.Empty(t, e.Desc)
	}
}

func TestEntries(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) // 08:00 in Beijing
	programmes := []epg.ProgrammeRecord{
		{Start: start, Stop: start.Add(time.Hour), Title: "晨间新闻", Description: "要闻"},
		{Start: start.Add(15*time.Hour + 30*time.Minute), Stop: start.Add(16*time.Hour + 45*time.Minute), Title: "夜间"},
	}

	got := Entries(programmes, beijing)
	assert.Equal(t, []Entry{
		{Start: "08:00", End: "09:00", Title: "晨间新闻", Desc: "要闻"},
		{Start: "23:30", End: "00:45", Title: "夜间"},
	}, got)

	assert.Empty(t, Entries(nil, beijing))
	assert.NotNil(t, Entries(nil, beijing))
}

func TestIconURL(t *testing.T) {
	base := "https://raw.githubusercontent.com/jackycher/my-epg-generator/main/logo/"
	assert.Equal(t, base+"CCTV1.png", IconURL(base, "CCTV1"))
	assert.Equal(t, base+"%E6%B9%96%E5%8D%97%E5%8D%AB%E8%A7%86.png", IconURL(base, "湖南卫视"))
	assert.Equal(t, base+"CCTV5+.png", IconURL(base, "CCTV5+"))
	assert.Equal(t, base+"A%2FB.png", IconURL(base, "A/B"))
}

func TestResponseJSON(t *testing.T) {
	site := Site{HomepageURL: "https://example.com", IconBaseURL: "https://icons.example/"}
	resp := site.NewResponse("CCTV1", time.Date(2026, 1, 5, 0, 0, 0, 0, beijing))

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"channel_name": "CCTV1",
		"date": "2026-01-05",
		"url": "https://example.com",
		"icon": "https://icons.example/CCTV1.png",
		"epg_data": []
	}`, string(raw))

	resp.Debug = map[string]string{"tier": "exact"}
	raw, err = json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"debug":{"tier":"exact"}`)
}

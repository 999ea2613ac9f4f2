// SPDX-License-Identifier: MIT

package diyp

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ManuGH/diyepg/internal/epg"
)

const clockLayout = "15:04"

// Entry is one programme as DIYP clients expect it.
type Entry struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

// Response is the JSON body of a successful guide request.
type Response struct {
	ChannelName string  `json:"channel_name"`
	Date        string  `json:"date"`
	URL         string  `json:"url"`
	Icon        string  `json:"icon"`
	EPGData     []Entry `json:"epg_data"`
	Debug       any     `json:"debug,omitempty"`
}

// Site holds the values that are the same in every response.
type Site struct {
	HomepageURL   string
	IconBaseURL   string
	FallbackTitle string
}

// IconURL appends the path-escaped channel name and ".png" to base.
func IconURL(base, channelName string) string {
	return base + url.PathEscape(channelName) + ".png"
}

// NewResponse builds the response skeleton for channelName on date.
func (s Site) NewResponse(channelName string, date time.Time) Response {
	return Response{
		ChannelName: channelName,
		Date:        date.Format(DateLayout),
		URL:         s.HomepageURL,
		Icon:        IconURL(s.IconBaseURL, channelName),
		EPGData:     []Entry{},
	}
}

// Entries converts programmes into entries with HH:MM times in loc.
func Entries(programmes []epg.ProgrammeRecord, loc *time.Location) []Entry {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]Entry, 0, len(programmes))
	for _, p := range programmes {
		out = append(out, Entry{
			Start: p.Start.In(loc).Format(clockLayout),
			End:   p.Stop.In(loc).Format(clockLayout),
			Title: p.Title,
			Desc:  p.Description,
		})
	}
	return out
}

// Fallback returns 24 one-hour placeholder entries covering the day, the
// last one ending at 00:00.
func Fallback(title string) []Entry {
	out := make([]Entry, 24)
	for hour := range out {
		out[hour] = Entry{
			Start: fmt.Sprintf("%02d:00", hour),
			End:   fmt.Sprintf("%02d:00", (hour+1)%24),
			Title: title,
		}
	}
	return out
}

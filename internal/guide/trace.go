// SPDX-License-Identifier: MIT

package guide

import (
	"time"

	"github.com/ManuGH/diyepg/internal/epg"
)

// Trace records how a response was produced. It is attached to the
// response when the client asks for debug output.
type Trace struct {
	RequestedChannel  string `json:"requested_channel"`
	NormalizedChannel string `json:"normalized_channel"`
	Date              string `json:"date"`
	DateDefaulted     bool   `json:"date_defaulted"`

	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	Source        string    `json:"source"`
	Cached        bool      `json:"cached"`
	FetchedAt     time.Time `json:"fetched_at"`
	DocumentBytes int       `json:"document_bytes"`

	Channels       []string           `json:"channels"`
	Tier           epg.Tier           `json:"tier"`
	Score          float64            `json:"score"`
	MatchedChannel *epg.ChannelRecord `json:"matched_channel,omitempty"`

	ProgrammeCount int                   `json:"programme_count"`
	Programmes     []epg.ProgrammeRecord `json:"programmes"`
	Fallback       bool                  `json:"fallback"`
}

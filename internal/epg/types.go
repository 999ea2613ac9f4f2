// SPDX-License-Identifier: MIT

package epg

import "time"

// ChannelRecord is one <channel> element of a parsed document.
type ChannelRecord struct {
	ID             string `json:"id"`
	RawName        string `json:"raw_name"`
	NormalizedName string `json:"normalized_name"`
}

// ProgrammeRecord is one <programme> element of a parsed document.
// Start < Stop is expected but not validated.
type ProgrammeRecord struct {
	ChannelID   string    `json:"channel_id"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop"`
	Title       string    `json:"title"`
	Description string    `json:"desc"`
}

// Tier names the stage of the matching cascade that produced a result.
type Tier string

const (
	TierExact      Tier = "exact"
	TierSubstring  Tier = "substring"
	TierSimilarity Tier = "similarity"
	TierPrefix     Tier = "prefix"
	TierNone       Tier = "none"
)

// MatchResult is the outcome of MatchChannel. Score is only meaningful for
// TierSimilarity.
type MatchResult struct {
	Channel *ChannelRecord `json:"channel,omitempty"`
	Tier    Tier           `json:"tier"`
	Score   float64        `json:"score"`
}

// Found reports whether the cascade selected a channel.
func (m MatchResult) Found() bool {
	return m.Channel != nil && m.Tier != TierNone
}

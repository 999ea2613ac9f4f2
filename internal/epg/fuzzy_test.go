// SPDX-License-Identifier: MIT

package epg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/diyepg/internal/normalize"
)

func records(names ...string) []ChannelRecord {
	out := make([]ChannelRecord, len(names))
	for i, n := range names {
		out[i] = ChannelRecord{
			ID:             string(rune('a' + i)),
			RawName:        n,
			NormalizedName: normalize.ChannelName(n),
		}
	}
	return out
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "CCTV1", b: "CCTV1", want: 1},
		{name: "duplicates_collapsed", a: "AAB", b: "AB", want: 1},
		{name: "order_insensitive", a: "ABC", b: "CBA", want: 1},
		{name: "disjoint", a: "ABC", b: "XYZ", want: 0},
		{name: "half_overlap", a: "AB", b: "BC", want: 1.0 / 3.0},
		{name: "cjk_runes_are_units", a: "湖南卫视", b: "湖北卫视", want: 3.0 / 5.0},
		{name: "left_empty", a: "", b: "ABC", want: 0},
		{name: "right_empty", a: "ABC", b: "", want: 0},
		{name: "both_empty", a: "", b: "", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"CCTV1", "CCTV13"},
		{"湖南卫视", "HUNANTV"},
		{"A", "ABCDEFG"},
		{"", "X"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "pair %v", p)
	}
}

func TestSimilarity_SelfIsOne(t *testing.T) {
	for _, s := range []string{"X", "CCTV5+", "凤凰卫视"} {
		assert.Equal(t, 1.0, Similarity(s, s))
	}
}

func TestMatchChannel_Tiers(t *testing.T) {
	tests := []struct {
		name      string
		channels  []ChannelRecord
		target    string
		wantTier  Tier
		wantName  string
		wantScore float64
	}{
		{
			name:     "exact_beats_earlier_substring",
			channels: records("CCTV1综合", "CCTV1"),
			target:   "CCTV1",
			wantTier: TierExact,
			wantName: "CCTV1",
		},
		{
			name:     "exact_first_in_document_order",
			channels: records("cctv1", "CCTV 1"),
			target:   "CCTV1",
			wantTier: TierExact,
			wantName: "cctv1",
		},
		{
			name:     "target_inside_channel_name",
			channels: records("湖南卫视", "CCTV5+体育赛事"),
			target:   "CCTV5+",
			wantTier: TierSubstring,
			wantName: "CCTV5+体育赛事",
		},
		{
			name:     "channel_name_inside_target",
			channels: records("北京卫视", "湖南卫视"),
			target:   "湖南卫视高清",
			wantTier: TierSubstring,
			wantName: "湖南卫视",
		},
		{
			name:      "similarity_picks_highest",
			channels:  records("ABXY", "ABCX"),
			target:    "ABCD",
			wantTier:  TierSimilarity,
			wantName:  "ABCX",
			wantScore: 3.0 / 5.0,
		},
		{
			name:      "similarity_tie_keeps_document_order",
			channels:  records("ABCX", "ABCY"),
			target:    "ABCD",
			wantTier:  TierSimilarity,
			wantName:  "ABCX",
			wantScore: 3.0 / 5.0,
		},
		{
			name:     "prefix_when_similarity_too_low",
			channels: records("XYZ", "ABCMNOPQRSTUVW"),
			target:   "ABCDEFGHIJ",
			wantTier: TierPrefix,
			wantName: "ABCMNOPQRSTUVW",
		},
		{
			name:     "nothing_close",
			channels: records("湖南卫视", "北京卫视"),
			target:   "CCTV1",
			wantTier: TierNone,
		},
		{
			name:     "empty_document",
			channels: nil,
			target:   "CCTV1",
			wantTier: TierNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := MatchChannel(tt.channels, tt.target)
			assert.Equal(t, tt.wantTier, res.Tier)
			if tt.wantTier == TierNone {
				assert.False(t, res.Found())
				assert.Nil(t, res.Channel)
				return
			}
			require.True(t, res.Found())
			assert.Equal(t, tt.wantName, res.Channel.RawName)
			if tt.wantTier == TierSimilarity {
				assert.InDelta(t, tt.wantScore, res.Score, 1e-9)
			}
		})
	}
}

func TestMatchChannel_PrefixNeedsTwoRunes(t *testing.T) {
	// A single-rune target never reaches the prefix tier.
	res := MatchChannel(records("QRSTUVWXYZ"), "Q")
	assert.Equal(t, TierSubstring, res.Tier)

	res = MatchChannel(records("RSTUVWXYZ"), "Q")
	assert.Equal(t, TierNone, res.Tier)
}

func TestMatchChannel_PrefixUsesRunes(t *testing.T) {
	channels := records("一", "中央电视台综合频道超长名称甲乙丙丁戊己庚辛")
	res := MatchChannel(channels, "中央电视二三四五六七八九十")
	require.True(t, res.Found())
	assert.Equal(t, TierPrefix, res.Tier)
	assert.Equal(t, "b", res.Channel.ID)
}

func TestMatchChannel_IgnoresEmptyNames(t *testing.T) {
	channels := []ChannelRecord{
		{ID: "blank", RawName: "   ", NormalizedName: ""},
		{ID: "x", RawName: "XYZ", NormalizedName: "XYZ"},
	}
	res := MatchChannel(channels, "CCTV1")
	assert.Equal(t, TierNone, res.Tier)
}

func TestMatchChannel_EmptyTarget(t *testing.T) {
	res := MatchChannel(records("CCTV1"), "")
	assert.Equal(t, TierNone, res.Tier)
	assert.False(t, res.Found())
}

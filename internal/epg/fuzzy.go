// SPDX-License-Identifier: MIT

package epg

import "strings"

// MinSimilarity is the lowest Similarity score the similarity tier accepts.
const MinSimilarity = 0.3

// prefixRunes is how many leading runes of the target the prefix tier uses.
const prefixRunes = 3

// Similarity returns the Jaccard index of the rune sets of a and b.
// Duplicates and order are ignored; either side empty scores 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	setA := runeSet(a)
	setB := runeSet(b)

	inter := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}

// MatchChannel picks the channel that best matches target, an already
// normalized name. Tiers are tried in order and the first one that yields a
// candidate wins:
//
//  1. exact:      NormalizedName == target
//  2. substring:  either name contains the other
//  3. similarity: highest Similarity >= MinSimilarity
//  4. prefix:     NormalizedName starts with the first runes of target
//
// Within a tier the earliest channel in document order wins. Channels with an
// empty normalized name never match. A miss is reported as TierNone.
func MatchChannel(channels []ChannelRecord, target string) MatchResult {
	if target == "" {
		return MatchResult{Tier: TierNone}
	}

	for i := range channels {
		if channels[i].NormalizedName == target {
			return MatchResult{Channel: &channels[i], Tier: TierExact, Score: 1}
		}
	}

	for i := range channels {
		name := channels[i].NormalizedName
		if name == "" {
			continue
		}
		if strings.Contains(name, target) || strings.Contains(target, name) {
			return MatchResult{Channel: &channels[i], Tier: TierSubstring}
		}
	}

	best := -1
	bestScore := 0.0
	for i := range channels {
		score := Similarity(channels[i].NormalizedName, target)
		if score >= MinSimilarity && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		return MatchResult{Channel: &channels[best], Tier: TierSimilarity, Score: bestScore}
	}

	runes := []rune(target)
	if len(runes) >= 2 {
		n := min(len(runes), prefixRunes)
		prefix := string(runes[:n])
		for i := range channels {
			name := channels[i].NormalizedName
			if name != "" && strings.HasPrefix(name, prefix) {
				return MatchResult{Channel: &channels[i], Tier: TierPrefix}
			}
		}
	}

	return MatchResult{Tier: TierNone}
}

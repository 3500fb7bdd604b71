package search

import (
	"sort"
	"strings"

	"logdex/internal/index"
)

// Match types reported on results.
const (
	MatchExact   = "exact"
	MatchPartial = "partial"
)

// maxPartialKeys caps how many distinct index keys a partial search may
// return before scoring and ordering.
const maxPartialKeys = 25

// Match is one matched index key with the chunks that produced it.
type Match struct {
	Key       string         `json:"key"`
	MatchType string         `json:"match_type"`
	Score     float64        `json:"score"`
	Entries   []index.Entry  `json:"entries"`
	Chunks    []*index.Chunk `json:"chunks"`
}

// Search looks up a raw query message in a snapshot's error index. The query
// is normalized exactly the way messages were at build time, so a message
// copied out of a log always matches its own index entry. Exact matches win
// outright; partial matching runs only when the exact lookup comes up empty,
// and the two are never mixed in one result set.
func Search(query string, snap *index.Snapshot) []Match {
	normalized := index.NormalizeMessage(query)
	if normalized == "" {
		return nil
	}

	if entries, ok := snap.ErrorIndex[normalized]; ok && len(entries) > 0 {
		return []Match{hydrate(snap, normalized, MatchExact, 1.0, entries)}
	}
	return partialSearch(normalized, snap)
}

// partialSearch scans index keys in sorted order so results are
// deterministic across runs. A key matches when either string contains the
// other. Scores favor keys whose length is close to the query's.
func partialSearch(query string, snap *index.Snapshot) []Match {
	var matches []Match
	for _, key := range snap.SortedKeys() {
		if !strings.Contains(key, query) && !strings.Contains(query, key) {
			continue
		}
		score := lengthScore(len(query), len(key))
		matches = append(matches, hydrate(snap, key, MatchPartial, score, snap.ErrorIndex[key]))
		if len(matches) >= maxPartialKeys {
			break
		}
	}
	// Stable sort keeps the sorted-key order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

func lengthScore(lq, lk int) float64 {
	max := lq
	if lk > max {
		max = lk
	}
	if max == 0 {
		return 0
	}
	diff := lq - lk
	if diff < 0 {
		diff = -diff
	}
	return 1 - float64(diff)/float64(max)
}

// hydrate resolves entry chunk ids against the snapshot in entry order.
// Entries whose chunk id is missing are kept, with no chunk attached.
func hydrate(snap *index.Snapshot, key, matchType string, score float64, entries []index.Entry) Match {
	m := Match{
		Key:       key,
		MatchType: matchType,
		Score:     score,
		Entries:   entries,
	}
	for _, e := range entries {
		if c := snap.ChunkByID(e.ChunkID); c != nil {
			m.Chunks = append(m.Chunks, c)
		}
	}
	return m
}

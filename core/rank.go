package core

import "sort"

// Less is the leaderboard total order: higher score first, ties broken by
// earlier savedAt. Unparsable timestamps compare as the zero time, so they
// win ties deterministically rather than erroring.
func Less(a, b Entry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.SavedTime().Before(b.SavedTime())
}

// Rank returns a new slice sorted by Less and truncated to MaxEntries. It
// never mutates its input; applying it twice yields the same result as
// once. Every read path and every write applies it, so the persisted file
// is always pre-sorted and pre-truncated.
func Rank(entries []Entry) []Entry {
	ranked := make([]Entry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool { return Less(ranked[i], ranked[j]) })
	if len(ranked) > MaxEntries {
		ranked = ranked[:MaxEntries]
	}
	return ranked
}

package core

import "time"

const (
	// MaxEntries is the number of entries the leaderboard retains.
	MaxEntries = 25
	// MaxNameLength bounds player names, counted in Unicode code points.
	MaxNameLength = 24
	// MaxScore is the highest accepted score.
	MaxScore = 999999
)

// TimeLayout is the wire and storage format for Entry.SavedAt.
const TimeLayout = time.RFC3339

// Entry is one leaderboard record. Entries are immutable once persisted;
// duplicate names are distinct entries.
type Entry struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	SavedAt string `json:"savedAt"`
}

// SavedTime parses the entry's timestamp. Unparsable timestamps return the
// zero time, which the ranking order treats as oldest.
func (e Entry) SavedTime() time.Time {
	t, err := time.Parse(TimeLayout, e.SavedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Stamp formats a submission time for storage.
func Stamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

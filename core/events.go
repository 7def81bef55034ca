package core

// Update is the event emitted after a successful submission: the entry that
// was just saved plus the resulting ranked leaderboard. It doubles as the
// payload streamed to realtime subscribers and webhook sinks.
type Update struct {
	Saved   Entry   `json:"saved"`
	Entries []Entry `json:"entries"`
}

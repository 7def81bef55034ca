package core

import (
	"strconv"
	"strings"
)

// FieldSeparator joins the fields of a persisted record. CleanName strips it
// from player names, so it can never appear inside a field.
const FieldSeparator = "|"

// EncodeEntry renders one entry as a single persisted line (no newline).
func EncodeEntry(e Entry) string {
	return e.Name + FieldSeparator + strconv.Itoa(e.Score) + FieldSeparator + e.SavedAt
}

// Encode renders entries as the full file contents, one record per line
// with a trailing newline. Encoding an empty set yields an empty blob.
func Encode(entries []Entry) []byte {
	if len(entries) == 0 {
		return []byte{}
	}
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(EncodeEntry(e))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Decode parses a persisted blob. Malformed lines are dropped, never
// surfaced: fewer than 3 fields, an empty trimmed name, or a score that is
// negative or fails to parse as an integer all disqualify the line. A torn
// concurrent read therefore degrades to a subset, not an error.
func Decode(blob []byte) []Entry {
	var entries []Entry
	for _, line := range strings.Split(string(blob), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, FieldSeparator, 3)
		if len(parts) < 3 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		if name == "" {
			continue
		}
		score, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || score < 0 {
			continue
		}
		entries = append(entries, Entry{Name: name, Score: score, SavedAt: strings.TrimSpace(parts[2])})
	}
	return entries
}

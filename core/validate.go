package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"unicode"
)

var (
	// ErrNameRequired reports a name that is empty after cleaning.
	ErrNameRequired = errors.New("player name is required")
	// ErrInvalidScore reports a score outside the accepted shape or range.
	ErrInvalidScore = errors.New("score must be a whole number between 0 and 999999")
)

// namePunctuation is the fixed punctuation allow-list for player names.
const namePunctuation = ".'-_!?@#*()+"

func allowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
		return true
	}
	return strings.ContainsRune(namePunctuation, r)
}

// CleanName strips every rune outside the allow-list, trims surrounding
// whitespace, and truncates to MaxNameLength code points. The field
// separator is not in the allow-list, so a cleaned name can always be
// encoded safely.
func CleanName(raw string) string {
	kept := make([]rune, 0, len(raw))
	for _, r := range raw {
		if allowedNameRune(r) {
			kept = append(kept, r)
		}
	}
	cleaned := strings.TrimSpace(string(kept))
	runes := []rune(cleaned)
	if len(runes) > MaxNameLength {
		cleaned = strings.TrimSpace(string(runes[:MaxNameLength]))
	}
	return cleaned
}

// ParseScore validates a raw JSON score value. Only JSON numbers that are
// exactly representable as a whole number in [0, MaxScore] are accepted:
// fractional, negative, over-range, string-typed, or missing values are
// rejected with ErrInvalidScore. No clamping.
func ParseScore(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0, ErrInvalidScore
	}
	// json.Number tolerates quoted number literals; the wire type must be
	// a number, not a string
	if trimmed[0] == '"' {
		return 0, ErrInvalidScore
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return 0, ErrInvalidScore
	}
	n, err := num.Int64()
	if err != nil {
		return 0, ErrInvalidScore
	}
	if n < 0 || n > MaxScore {
		return 0, ErrInvalidScore
	}
	return int(n), nil
}

package typeahead

import (
	"strings"
	"unicode/utf8"

	. "waiverdesk/internal/models"
)

const (
	MinQueryLength = 2
	SearchLimit    = 50
	ListLimit      = 200
)

// NormalizeQuery is the single normalisation applied to queries and cache keys.
func NormalizeQuery(query string) string {
	return strings.TrimSpace(query)
}

// ValidateQuery trims query and rejects it when shorter than MinQueryLength
// runes. Short queries are an error, never silently widened.
func ValidateQuery(query string) (string, error) {
	normalized := NormalizeQuery(query)
	if utf8.RuneCountInString(normalized) < MinQueryLength {
		return "", ErrQueryTooShort
	}
	return normalized, nil
}

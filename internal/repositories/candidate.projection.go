package repositories

import (
	"strings"

	. "waiverdesk/internal/models"
	"waiverdesk/internal/utils"
)

// candidateColumns is the only place the search read path names columns.
// The signature image is never selected.
const candidateColumns = "id, first_name, last_name, email, year_of_birth, minor_names, waiver_year, signature_date"

type candidateRow struct {
	ID            int
	FirstName     string
	LastName      string
	Email         string
	YearOfBirth   string
	MinorNames    *string
	WaiverYear    int
	SignatureDate string
	Score         float64
}

func (row candidateRow) candidate(currentYear int) SearchCandidate {
	var minors *string
	if row.MinorNames != nil && strings.TrimSpace(*row.MinorNames) != "" {
		value := *row.MinorNames
		minors = &value
	}

	return SearchCandidate{
		ID:                 row.ID,
		DisplayName:        strings.TrimSpace(row.FirstName + " " + row.LastName),
		FirstName:          row.FirstName,
		LastName:           row.LastName,
		Email:              row.Email,
		YearOfBirth:        row.YearOfBirth,
		MinorNames:         minors,
		WaiverYear:         row.WaiverYear,
		IsCurrentYear:      row.WaiverYear == currentYear,
		SignatureTimestamp: row.SignatureDate,
		Score:              row.Score,
	}
}

// score applies the fuzzy qualification policy: any field similarity above
// the threshold, or a case-insensitive substring hit on a name field or the
// year of birth. The score is the best similarity across fields.
func (row candidateRow) score(needle string, query utils.TrigramSet) (float64, bool) {
	fields := []string{
		row.FirstName,
		row.LastName,
		row.FirstName + " " + row.LastName,
	}
	if row.MinorNames != nil {
		fields = append(fields, *row.MinorNames)
	}

	best := query.Similarity(utils.Trigrams(row.YearOfBirth))
	contains := strings.Contains(strings.ToLower(row.YearOfBirth), needle)

	for _, field := range fields {
		if similarity := query.Similarity(utils.Trigrams(field)); similarity > best {
			best = similarity
		}
		if strings.Contains(strings.ToLower(field), needle) {
			contains = true
		}
	}

	return best, contains || best > utils.SimilarityThreshold
}

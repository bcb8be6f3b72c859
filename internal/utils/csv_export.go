package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	. "waiverdesk/internal/models"
)

var exportHeaders = []string{
	"id", "first_name", "last_name", "email", "year_of_birth",
	"minor_names", "waiver_year", "current_year", "signed",
}

// WriteCandidatesCSV exports search candidates, one row per waiver. Malformed
// signature dates are written as "Invalid Date".
func WriteCandidatesCSV(w io.Writer, candidates []SearchCandidate) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(exportHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, candidate := range candidates {
		minors := ""
		if candidate.MinorNames != nil {
			minors = *candidate.MinorNames
		}

		row := []string{
			strconv.Itoa(candidate.ID),
			candidate.FirstName,
			candidate.LastName,
			candidate.Email,
			candidate.YearOfBirth,
			minors,
			strconv.Itoa(candidate.WaiverYear),
			strconv.FormatBool(candidate.IsCurrentYear),
			FormatSignatureDateTime(candidate.SignatureTimestamp),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

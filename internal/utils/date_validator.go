package utils

import (
	"strconv"
	"strings"
	"time"
)

const InvalidDate = "Invalid Date"

type DateFormat string

const (
	FormatRFC3339Nano  DateFormat = time.RFC3339Nano
	FormatISO8601      DateFormat = "2006-01-02T15:04:05Z07:00"
	FormatISO8601Local DateFormat = "2006-01-02T15:04:05"
	FormatSQLite       DateFormat = "2006-01-02 15:04:05"
	FormatISO8601Date  DateFormat = "2006-01-02"
	FormatUnixTime     DateFormat = "unix"

	DisplayDate     = "Jan 2, 2006"
	DisplayDateTime = "Jan 2, 2006 3:04 PM"
)

// DateValidator parses the timestamp shapes a signature date can arrive in:
// what this service writes, what SQLite's CURRENT_TIMESTAMP writes, and
// unix seconds from imports.
type DateValidator struct {
	supportedFormats []DateFormat
}

type ValidationResult struct {
	IsValid        bool
	DetectedFormat DateFormat
	ParsedTime     time.Time
	OriginalValue  string
}

func NewDateValidator() *DateValidator {
	return &DateValidator{
		supportedFormats: []DateFormat{
			FormatRFC3339Nano,
			FormatISO8601,
			FormatISO8601Local,
			FormatSQLite,
			FormatISO8601Date,
		},
	}
}

func (dv *DateValidator) Validate(input string) ValidationResult {
	result := ValidationResult{OriginalValue: input}

	input = strings.TrimSpace(input)
	if input == "" {
		return result
	}

	if unixTime, err := strconv.ParseInt(input, 10, 64); err == nil {
		if unixTime > 0 && unixTime < 4102444800 {
			result.IsValid = true
			result.DetectedFormat = FormatUnixTime
			result.ParsedTime = time.Unix(unixTime, 0).UTC()
		}
		return result
	}

	for _, format := range dv.supportedFormats {
		if parsed, err := time.Parse(string(format), input); err == nil {
			result.IsValid = true
			result.DetectedFormat = format
			result.ParsedTime = parsed
			return result
		}
	}

	return result
}

var defaultValidator = NewDateValidator()

// FormatSignatureDate renders a stored signature timestamp for display, or
// InvalidDate when it cannot be parsed.
func FormatSignatureDate(timestamp string) string {
	return formatWith(timestamp, DisplayDate)
}

func FormatSignatureDateTime(timestamp string) string {
	return formatWith(timestamp, DisplayDateTime)
}

func formatWith(timestamp, layout string) string {
	result := defaultValidator.Validate(timestamp)
	if !result.IsValid {
		return InvalidDate
	}
	return result.ParsedTime.Format(layout)
}

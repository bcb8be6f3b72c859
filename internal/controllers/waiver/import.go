package waiverController

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	. "waiverdesk/internal/models"
	"waiverdesk/internal/utils"

	"golang.org/x/sync/errgroup"
)

const (
	importBatchSize = 500
	maxImportErrors = 100
)

// ImportRowError describes a row the import skipped. Line counts the header
// as line 1.
type ImportRowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}

var importColumns = map[string]string{
	"firstname":             "firstName",
	"lastname":              "lastName",
	"email":                 "email",
	"yearofbirth":           "yearOfBirth",
	"phone":                 "phone",
	"emergencycontactphone": "emergencyContactPhone",
	"safetyrulesinitial":    "safetyRulesInitial",
	"medicalconsentinitial": "medicalConsentInitial",
	"photorelease":          "photoRelease",
	"minornames":            "minorNames",
	"signature":             "signature",
	"signaturedate":         "signatureDate",
	"waiveryear":            "waiverYear",
	"ipaddress":             "ipAddress",
	"useragent":             "userAgent",
}

var requiredImportColumns = []string{"firstName", "lastName", "signatureDate"}

// Import loads historical waivers from CSV. Rows are parsed and inserted in
// batches inside one transaction, so a store failure leaves nothing behind.
// Rows without a name, or without a usable signature date and waiver year,
// are skipped and reported. Signature dates that cannot be parsed are kept
// as written.
func (c *WaiverController) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	log := c.log.Function("Import")

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return ImportResult{}, fmt.Errorf("%w: empty file", ErrInvalidImport)
	}
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	columns, err := mapImportColumns(header)
	if err != nil {
		return ImportResult{}, err
	}

	var result ImportResult
	batches := make(chan []*Waiver, 2)

	err = c.transactionService.Execute(ctx, func(txCtx context.Context) error {
		group, groupCtx := errgroup.WithContext(txCtx)

		group.Go(func() error {
			defer close(batches)
			return c.parseImport(groupCtx, reader, columns, batches, &result)
		})

		group.Go(func() error {
			for batch := range batches {
				if err := c.waiverRepo.CreateBatch(groupCtx, batch, importBatchSize); err != nil {
					return err
				}
				result.Imported += len(batch)
			}
			return nil
		})

		return group.Wait()
	})
	if err != nil {
		if errors.Is(err, ErrInvalidImport) {
			return ImportResult{}, err
		}
		return ImportResult{}, log.Err("failed to import waivers", err)
	}

	if result.Imported > 0 {
		c.cacheInvalidationService.InvalidateSuggestions(ctx)
	}
	log.Info("waivers imported", "imported", result.Imported, "skipped", result.Skipped)

	return result, nil
}

func (c *WaiverController) parseImport(
	ctx context.Context,
	reader *csv.Reader,
	columns map[string]int,
	batches chan<- []*Waiver,
	result *ImportResult,
) error {
	validator := utils.NewDateValidator()
	batch := make([]*Waiver, 0, importBatchSize)
	line := 1

	send := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case batches <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
		batch = make([]*Waiver, 0, importBatchSize)
		return nil
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalidImport, line, err)
		}

		row := importRow{record: record, columns: columns}
		waiver, reason := row.toWaiver(validator)
		if reason != "" {
			result.Skipped++
			if len(result.Errors) < maxImportErrors {
				result.Errors = append(result.Errors, ImportRowError{Line: line, Reason: reason})
			}
			continue
		}

		batch = append(batch, waiver)
		if len(batch) == importBatchSize {
			if err := send(); err != nil {
				return err
			}
		}
	}

	return send()
}

func mapImportColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.NewReplacer("_", "", " ", "", "-", "").Replace(key)
		if field, ok := importColumns[key]; ok {
			columns[field] = i
		}
	}

	var missing []string
	for _, field := range requiredImportColumns {
		if _, ok := columns[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrInvalidImport, strings.Join(missing, ", "))
	}

	return columns, nil
}

type importRow struct {
	record  []string
	columns map[string]int
}

func (r importRow) get(field string) string {
	i, ok := r.columns[field]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r importRow) toWaiver(validator *utils.DateValidator) (*Waiver, string) {
	request := SubmitWaiverRequest{
		FirstName:             r.get("firstName"),
		LastName:              r.get("lastName"),
		Email:                 r.get("email"),
		YearOfBirth:           r.get("yearOfBirth"),
		Phone:                 r.get("phone"),
		EmergencyContactPhone: r.get("emergencyContactPhone"),
		SafetyRulesInitial:    r.get("safetyRulesInitial"),
		MedicalConsentInitial: r.get("medicalConsentInitial"),
		PhotoRelease:          parseYes(r.get("photoRelease")),
		MinorNames:            r.get("minorNames"),
		Signature:             r.get("signature"),
	}
	if request.FirstName == "" || request.LastName == "" {
		return nil, "missing firstName or lastName"
	}

	rawDate := r.get("signatureDate")
	parsed := validator.Validate(rawDate)

	year := 0
	if value := r.get("waiverYear"); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n < 1900 || n > 9999 {
			return nil, fmt.Sprintf("invalid waiverYear %q", value)
		}
		year = n
	}

	var waiver *Waiver
	if parsed.IsValid {
		signedAt := parsed.ParsedTime.UTC()
		waiver = request.ToWaiver(signedAt, r.get("ipAddress"), r.get("userAgent"))
		if year != 0 {
			waiver.WaiverYear = year
		}
	} else {
		if year == 0 {
			return nil, fmt.Sprintf("invalid signatureDate %q and no waiverYear", rawDate)
		}
		// The raw value is kept so the record still lists, as "Invalid Date".
		waiver = request.ToWaiver(time.Time{}, r.get("ipAddress"), r.get("userAgent"))
		waiver.SignatureDate = rawDate
		waiver.WaiverYear = year
	}

	return waiver, ""
}

func parseYes(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "y", "t":
		return true
	}
	return false
}

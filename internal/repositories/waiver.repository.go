package repositories

import (
	"context"
	"errors"
	"sort"
	"strings"

	"waiverdesk/config"
	"waiverdesk/internal/database"
	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/services"
	"waiverdesk/internal/typeahead"
	"waiverdesk/internal/utils"

	"gorm.io/gorm"
)

type WaiverRepository interface {
	Create(ctx context.Context, waiver *Waiver) error
	CreateBatch(ctx context.Context, waivers []*Waiver, batchSize int) error
	GetByID(ctx context.Context, id int) (*Waiver, error)
	Search(ctx context.Context, query string) ([]SearchCandidate, error)
	ListRecent(ctx context.Context) ([]SearchCandidate, error)
}

type waiverRepository struct {
	db       database.DB
	strategy string
	clock    typeahead.Clock
	log      logger.Logger
}

// NewWaiver returns the waiver store. strategy is one of the config.Strategy*
// values and is fixed for the lifetime of the repository.
func NewWaiver(db database.DB, strategy string, clock typeahead.Clock) WaiverRepository {
	if strategy == "" {
		strategy = config.StrategyTrigram
	}
	if clock == nil {
		clock = typeahead.RealClock{}
	}

	return &waiverRepository{
		db:       db,
		strategy: strategy,
		clock:    clock,
		log:      logger.New("waiverRepository"),
	}
}

func (r *waiverRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *waiverRepository) Create(ctx context.Context, waiver *Waiver) error {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(waiver).Error; err != nil {
		return log.Err("failed to create waiver", err, "lastName", waiver.LastName)
	}

	return nil
}

func (r *waiverRepository) CreateBatch(ctx context.Context, waivers []*Waiver, batchSize int) error {
	log := r.log.Function("CreateBatch")

	if len(waivers) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	if err := r.getDB(ctx).CreateInBatches(waivers, batchSize).Error; err != nil {
		return log.Err("failed to create waiver batch", err,
			"totalRecords", len(waivers),
			"batchSize", batchSize)
	}

	log.Debug("inserted waiver batch", "totalRecords", len(waivers), "batchSize", batchSize)
	return nil
}

func (r *waiverRepository) GetByID(ctx context.Context, id int) (*Waiver, error) {
	log := r.log.Function("GetByID")

	var waiver Waiver
	err := r.getDB(ctx).First(&waiver, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, log.Err("failed to get waiver by id", err, "id", id)
	}

	return &waiver, nil
}

// Search ranks waivers against query, which must already be validated.
// Results are capped at typeahead.SearchLimit.
func (r *waiverRepository) Search(ctx context.Context, query string) ([]SearchCandidate, error) {
	log := r.log.Function("Search")

	var (
		rows []candidateRow
		err  error
	)

	switch r.strategy {
	case config.StrategySubstring:
		rows, err = r.searchSubstring(ctx, query)
	case config.StrategyPgTrgm:
		rows, err = r.searchPgTrgm(ctx, query)
	default:
		rows, err = r.searchTrigram(ctx, query)
	}
	if err != nil {
		return nil, log.Err("failed to search waivers", err, "strategy", r.strategy)
	}

	return r.project(rows), nil
}

func (r *waiverRepository) ListRecent(ctx context.Context) ([]SearchCandidate, error) {
	log := r.log.Function("ListRecent")

	var rows []candidateRow
	err := r.getDB(ctx).
		Model(&Waiver{}).
		Select(candidateColumns).
		Order("signature_date DESC").
		Limit(typeahead.ListLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, log.Err("failed to list waivers", err)
	}

	return r.project(rows), nil
}

func (r *waiverRepository) searchSubstring(ctx context.Context, query string) ([]candidateRow, error) {
	pattern := likePattern(query)

	var rows []candidateRow
	err := r.getDB(ctx).
		Model(&Waiver{}).
		Select(candidateColumns).
		Where(
			"LOWER(first_name) LIKE ? ESCAPE '!' OR LOWER(last_name) LIKE ? ESCAPE '!' "+
				"OR LOWER(first_name || ' ' || last_name) LIKE ? ESCAPE '!' "+
				"OR LOWER(COALESCE(minor_names, '')) LIKE ? ESCAPE '!'",
			pattern, pattern, pattern, pattern,
		).
		Order("waiver_year DESC, signature_date DESC").
		Limit(typeahead.SearchLimit).
		Scan(&rows).Error

	return rows, err
}

// searchTrigram scores every live waiver in process with the same policy the
// pg_trgm strategy pushes down to PostgreSQL. Each call reads the whole table,
// so large stores should run the pg_trgm strategy instead.
func (r *waiverRepository) searchTrigram(ctx context.Context, query string) ([]candidateRow, error) {
	var all []candidateRow
	err := r.getDB(ctx).
		Model(&Waiver{}).
		Select(candidateColumns).
		Scan(&all).Error
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	trigrams := utils.Trigrams(query)

	matched := make([]candidateRow, 0, len(all))
	for _, row := range all {
		score, ok := row.score(needle, trigrams)
		if !ok {
			continue
		}
		row.Score = score
		matched = append(matched, row)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.WaiverYear != b.WaiverYear {
			return a.WaiverYear > b.WaiverYear
		}
		return a.SignatureDate > b.SignatureDate
	})

	if len(matched) > typeahead.SearchLimit {
		matched = matched[:typeahead.SearchLimit]
	}

	return matched, nil
}

const pgTrgmSearch = `
SELECT ` + candidateColumns + `,
	GREATEST(
		similarity(first_name, @query),
		similarity(last_name, @query),
		similarity(first_name || ' ' || last_name, @query),
		similarity(COALESCE(minor_names, ''), @query),
		similarity(year_of_birth, @query)
	) AS score
FROM waivers
WHERE deleted_at IS NULL AND (
	similarity(first_name, @query) > @threshold
	OR similarity(last_name, @query) > @threshold
	OR similarity(first_name || ' ' || last_name, @query) > @threshold
	OR similarity(COALESCE(minor_names, ''), @query) > @threshold
	OR similarity(year_of_birth, @query) > @threshold
	OR first_name ILIKE @pattern ESCAPE '!'
	OR last_name ILIKE @pattern ESCAPE '!'
	OR (first_name || ' ' || last_name) ILIKE @pattern ESCAPE '!'
	OR minor_names ILIKE @pattern ESCAPE '!'
	OR year_of_birth ILIKE @pattern ESCAPE '!'
)
ORDER BY score DESC, waiver_year DESC, signature_date DESC
LIMIT @limit`

func (r *waiverRepository) searchPgTrgm(ctx context.Context, query string) ([]candidateRow, error) {
	var rows []candidateRow
	err := r.getDB(ctx).Raw(pgTrgmSearch, map[string]any{
		"query":     query,
		"pattern":   likePattern(query),
		"threshold": utils.SimilarityThreshold,
		"limit":     typeahead.SearchLimit,
	}).Scan(&rows).Error

	return rows, err
}

func (r *waiverRepository) project(rows []candidateRow) []SearchCandidate {
	currentYear := r.clock.Now().Year()

	candidates := make([]SearchCandidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, row.candidate(currentYear))
	}
	return candidates
}

// likePattern lowercases query and escapes LIKE wildcards with '!'.
func likePattern(query string) string {
	escaped := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(strings.ToLower(query))
	return "%" + escaped + "%"
}

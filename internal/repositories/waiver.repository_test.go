package repositories

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"waiverdesk/config"
	"waiverdesk/internal/database"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/typeahead"
	"waiverdesk/internal/typeahead/typeaheadtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) database.DB {
	t.Helper()

	db, err := database.New(config.Config{
		Environment:    config.EnvTest,
		DatabaseDriver: config.DriverSQLite,
		DatabaseDbPath: filepath.Join(t.TempDir(), "repositories.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.MigrateUp()
	require.NoError(t, err)

	return db
}

type waiverSeed struct {
	first, last string
	yearOfBirth string
	minors      string
	year        int
	signed      string
}

func seedWaivers(t *testing.T, db database.DB, seeds ...waiverSeed) []*Waiver {
	t.Helper()

	waivers := make([]*Waiver, 0, len(seeds))
	for i, seed := range seeds {
		year := seed.year
		if year == 0 {
			year = testNow.Year()
		}
		signed := seed.signed
		if signed == "" {
			signed = time.Date(year, time.January, 1, 0, 0, i, 0, time.UTC).Format(time.RFC3339Nano)
		}
		yob := seed.yearOfBirth
		if yob == "" {
			yob = "1985"
		}

		request := SubmitWaiverRequest{
			FirstName:             seed.first,
			LastName:              seed.last,
			Email:                 fmt.Sprintf("%s.%s@example.com", seed.first, seed.last),
			YearOfBirth:           yob,
			EmergencyContactPhone: "555-0100",
			SafetyRulesInitial:    "XX",
			MedicalConsentInitial: "XX",
			MinorNames:            seed.minors,
			Signature:             "data:image/png;base64,AAAA",
		}
		waiver := request.ToWaiver(testNow, "", "")
		waiver.WaiverYear = year
		waiver.SignatureDate = signed

		waivers = append(waivers, waiver)
	}

	require.NoError(t, db.SQL.CreateInBatches(waivers, 100).Error)
	return waivers
}

func newTestWaiverRepo(db database.DB, strategy string) WaiverRepository {
	return NewWaiver(db, strategy, typeaheadtest.NewFakeClock(testNow))
}

func names(candidates []SearchCandidate) []string {
	out := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, candidate.DisplayName)
	}
	return out
}

func TestWaiverRepository_SearchSubstring(t *testing.T) {
	db := newTestDB(t)
	seedWaivers(t, db,
		waiverSeed{first: "John", last: "Smith", year: 2024, signed: "2024-03-01T10:00:00Z"},
		waiverSeed{first: "Jane", last: "Smithers", year: 2025, signed: "2025-02-01T10:00:00Z"},
		waiverSeed{first: "Smitty", last: "Jones", year: 2025, signed: "2025-04-01T10:00:00Z"},
		waiverSeed{first: "Maria", last: "Garcia", minors: "Timmy Garcia, Tara Garcia"},
		waiverSeed{first: "Pct", last: "100%"},
		waiverSeed{first: "Under", last: "Score_Name"},
	)
	repo := newTestWaiverRepo(db, config.StrategySubstring)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "year then signature date ordering",
			query: "smit",
			want:  []string{"Smitty Jones", "Jane Smithers", "John Smith"},
		},
		{name: "case insensitive", query: "GARC", want: []string{"Maria Garcia"}},
		{name: "full name", query: "john smi", want: []string{"John Smith"}},
		{name: "minor names", query: "timmy", want: []string{"Maria Garcia"}},
		{name: "percent is literal", query: "0%", want: []string{"Pct 100%"}},
		{name: "underscore is literal", query: "e_n", want: []string{"Under Score_Name"}},
		{name: "no match", query: "zzzznomatch", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Search(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestWaiverRepository_SearchTrigram(t *testing.T) {
	db := newTestDB(t)
	seedWaivers(t, db,
		waiverSeed{first: "Eric", last: "Johnson", year: 2024},
		waiverSeed{first: "Erica", last: "Jonsson", year: 2025},
		waiverSeed{first: "Maria", last: "Garcia", yearOfBirth: "1990"},
		waiverSeed{first: "Paul", last: "Tran", minors: "Kai Tran"},
	)
	repo := newTestWaiverRepo(db, config.StrategyTrigram)
	ctx := context.Background()

	t.Run("tolerates typos", func(t *testing.T) {
		got, err := repo.Search(ctx, "jonson")
		require.NoError(t, err)
		assert.Subset(t, names(got), []string{"Eric Johnson", "Erica Jonsson"})
		for _, candidate := range got {
			assert.Greater(t, candidate.Score, 0.0)
		}
	})

	t.Run("best similarity first", func(t *testing.T) {
		got, err := repo.Search(ctx, "erica jonsson")
		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.Equal(t, "Erica Jonsson", got[0].DisplayName)
		assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	})

	t.Run("year of birth substring", func(t *testing.T) {
		got, err := repo.Search(ctx, "1990")
		require.NoError(t, err)
		assert.Equal(t, []string{"Maria Garcia"}, names(got))
	})

	t.Run("minor names", func(t *testing.T) {
		got, err := repo.Search(ctx, "kai")
		require.NoError(t, err)
		assert.Equal(t, []string{"Paul Tran"}, names(got))
	})

	t.Run("no match is empty", func(t *testing.T) {
		got, err := repo.Search(ctx, "zzzznomatch")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestWaiverRepository_TrigramTieBreak(t *testing.T) {
	db := newTestDB(t)
	seedWaivers(t, db,
		waiverSeed{first: "Sam", last: "Lee", year: 2023, signed: "2023-05-01T00:00:00Z"},
		waiverSeed{first: "Sam", last: "Lee", year: 2025, signed: "2025-01-01T00:00:00Z"},
		waiverSeed{first: "Sam", last: "Lee", year: 2025, signed: "2025-03-01T00:00:00Z"},
	)
	repo := newTestWaiverRepo(db, config.StrategyTrigram)

	got, err := repo.Search(context.Background(), "sam lee")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "2025-03-01T00:00:00Z", got[0].SignatureTimestamp)
	assert.Equal(t, "2025-01-01T00:00:00Z", got[1].SignatureTimestamp)
	assert.Equal(t, 2023, got[2].WaiverYear)
}

func TestWaiverRepository_SearchCap(t *testing.T) {
	for _, strategy := range []string{config.StrategySubstring, config.StrategyTrigram} {
		t.Run(strategy, func(t *testing.T) {
			db := newTestDB(t)

			seeds := make([]waiverSeed, 60)
			for i := range seeds {
				seeds[i] = waiverSeed{first: fmt.Sprintf("Person%02d", i), last: "Smith"}
			}
			seedWaivers(t, db, seeds...)

			got, err := newTestWaiverRepo(db, strategy).Search(context.Background(), "smith")
			require.NoError(t, err)
			assert.Len(t, got, typeahead.SearchLimit)
			assert.Equal(t, "Person59 Smith", got[0].DisplayName, "latest signature first")
		})
	}
}

func TestWaiverRepository_ListRecent(t *testing.T) {
	db := newTestDB(t)

	seeds := make([]waiverSeed, typeahead.ListLimit+5)
	for i := range seeds {
		seeds[i] = waiverSeed{
			first:  fmt.Sprintf("Guest%03d", i),
			last:   "Visitor",
			year:   2024 + i%2,
			signed: testNow.Add(time.Duration(i) * time.Minute).Format(time.RFC3339Nano),
		}
	}
	seedWaivers(t, db, seeds...)

	got, err := newTestWaiverRepo(db, config.StrategyTrigram).ListRecent(context.Background())
	require.NoError(t, err)
	require.Len(t, got, typeahead.ListLimit)

	assert.Equal(t, fmt.Sprintf("Guest%03d Visitor", typeahead.ListLimit+4), got[0].DisplayName)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].SignatureTimestamp, got[i].SignatureTimestamp)
	}
}

func TestWaiverRepository_Projection(t *testing.T) {
	db := newTestDB(t)
	seedWaivers(t, db,
		waiverSeed{first: "Current", last: "Year", minors: "Kid One", year: testNow.Year()},
		waiverSeed{first: "Last", last: "Year", year: testNow.Year() - 1, signed: "garbage"},
	)

	got, err := newTestWaiverRepo(db, config.StrategySubstring).Search(context.Background(), "year")
	require.NoError(t, err)
	require.Len(t, got, 2)

	current, previous := got[0], got[1]
	assert.Equal(t, "Current Year", current.DisplayName)
	assert.True(t, current.IsCurrentYear)
	require.NotNil(t, current.MinorNames)
	assert.Equal(t, "Kid One", *current.MinorNames)
	assert.Equal(t, "Current.Year@example.com", current.Email)

	assert.False(t, previous.IsCurrentYear)
	assert.Nil(t, previous.MinorNames)
	assert.Equal(t, "garbage", previous.SignatureTimestamp, "malformed timestamps pass through")
}

func TestWaiverRepository_SoftDeletedRowsAreHidden(t *testing.T) {
	db := newTestDB(t)
	waivers := seedWaivers(t, db,
		waiverSeed{first: "Gone", last: "Away"},
		waiverSeed{first: "Still", last: "Away"},
	)
	require.NoError(t, db.SQL.Delete(waivers[0]).Error)

	for _, strategy := range []string{config.StrategySubstring, config.StrategyTrigram} {
		got, err := newTestWaiverRepo(db, strategy).Search(context.Background(), "away")
		require.NoError(t, err)
		assert.Equal(t, []string{"Still Away"}, names(got), strategy)
	}

	_, err := newTestWaiverRepo(db, config.StrategyTrigram).GetByID(context.Background(), waivers[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWaiverRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := newTestWaiverRepo(db, config.StrategyTrigram)
	ctx := context.Background()

	waiver := SubmitWaiverRequest{
		FirstName:             "Ada",
		LastName:              "Lovelace",
		Email:                 "ada@example.com",
		YearOfBirth:           "1990",
		EmergencyContactPhone: "555-0100",
		SafetyRulesInitial:    "AL",
		MedicalConsentInitial: "AL",
		Signature:             "data:image/png;base64,AAAA",
	}.ToWaiver(testNow, "10.0.0.1", "curl/8")

	require.NoError(t, repo.Create(ctx, waiver))
	require.NotZero(t, waiver.ID)

	got, err := repo.GetByID(ctx, waiver.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", got.LastName)
	assert.Equal(t, "data:image/png;base64,AAAA", got.Signature)
	require.NotNil(t, got.IPAddress)
	assert.Equal(t, "10.0.0.1", *got.IPAddress)

	_, err = repo.GetByID(ctx, waiver.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%smith%", likePattern("SMITH"))
	assert.Equal(t, "%100!%%", likePattern("100%"))
	assert.Equal(t, "%a!_b%", likePattern("a_b"))
	assert.Equal(t, "%wow!!%", likePattern("wow!"))
}

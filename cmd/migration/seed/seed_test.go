package seed

import (
	"path/filepath"
	"testing"
	"time"

	"waiverdesk/config"
	"waiverdesk/internal/database"
	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	cfg := config.Config{
		Environment:    config.EnvTest,
		DatabaseDriver: config.DriverSQLite,
		DatabaseDbPath: filepath.Join(t.TempDir(), "waivers.db"),
	}
	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.MigrateUp()
	require.NoError(t, err)

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	log := logger.New("seed_test")

	require.NoError(t, Seed(db.SQL, cfg, log, 120, now))
	// Running again leaves existing data alone.
	require.NoError(t, Seed(db.SQL, cfg, log, 120, now))

	var waivers int64
	require.NoError(t, db.SQL.Model(&Waiver{}).Count(&waivers).Error)
	assert.EqualValues(t, 120, waivers)

	var admins []AdminUser
	require.NoError(t, db.SQL.Order("username").Find(&admins).Error)
	require.Len(t, admins, 2)
	assert.Equal(t, "admin", admins[0].Username)
	assert.True(t, admins[0].CheckPassword("password123"))

	var years []int
	require.NoError(t, db.SQL.Model(&Waiver{}).Distinct().Pluck("waiver_year", &years).Error)
	assert.Greater(t, len(years), 1, "waivers span several years")
}

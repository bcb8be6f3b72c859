package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, config.Environment)
	assert.Equal(t, DriverSQLite, config.DatabaseDriver)
	assert.Equal(t, StrategyTrigram, config.SearchStrategy)
	assert.Equal(t, 120*time.Second, config.SearchCacheTTL)
	assert.Equal(t, 200*time.Millisecond, config.SearchDebounce)
	assert.Equal(t, 5*time.Second, config.SearchFetchTimeout)
	assert.Equal(t, 100*time.Millisecond, config.SearchBlurGrace)
	assert.Equal(t, 7*24*time.Hour, config.SecurityTokenTTL)
	assert.Equal(t, 8280, config.ServerPort)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	contents := "SERVER_PORT=9000\nSEARCH_STRATEGY=substring\nSEARCH_CACHE_TTL=30s\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	t.Setenv("SEARCH_STRATEGY", "TRIGRAM")
	t.Setenv("DATABASE_CACHE_ADDRESS", "valkey")

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, config.ServerPort)
	assert.Equal(t, StrategyTrigram, config.SearchStrategy, "environment overrides file")
	assert.Equal(t, 30*time.Second, config.SearchCacheTTL)
	assert.Equal(t, "valkey", config.DatabaseCacheAddress)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECURITY_JWT_SECRET")

	t.Setenv("SECURITY_JWT_SECRET", "s3cret")
	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), config.JWTSecret())
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Environment:        EnvDevelopment,
		DatabaseDriver:     DriverSQLite,
		DatabaseDbPath:     "data/test.db",
		SearchStrategy:     StrategyTrigram,
		SearchCacheTTL:     time.Minute,
		SearchDebounce:     200 * time.Millisecond,
		SearchFetchTimeout: time.Second,
	}

	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:     "unknown driver",
			mutate:   func(c *Config) { c.DatabaseDriver = "mysql" },
			errorMsg: "unsupported DATABASE_DRIVER",
		},
		{
			name:     "sqlite without path",
			mutate:   func(c *Config) { c.DatabaseDbPath = "" },
			errorMsg: "DATABASE_DB_PATH",
		},
		{
			name:     "postgres without dsn",
			mutate:   func(c *Config) { c.DatabaseDriver = DriverPostgres },
			errorMsg: "DATABASE_DSN",
		},
		{
			name:     "pg_trgm on sqlite",
			mutate:   func(c *Config) { c.SearchStrategy = StrategyPgTrgm },
			errorMsg: "requires DATABASE_DRIVER",
		},
		{
			name: "pg_trgm on postgres",
			mutate: func(c *Config) {
				c.DatabaseDriver = DriverPostgres
				c.DatabaseDSN = "postgres://localhost/waivers"
				c.SearchStrategy = StrategyPgTrgm
			},
		},
		{
			name:     "unknown strategy",
			mutate:   func(c *Config) { c.SearchStrategy = "soundex" },
			errorMsg: "unsupported SEARCH_STRATEGY",
		},
		{
			name:     "zero cache ttl",
			mutate:   func(c *Config) { c.SearchCacheTTL = 0 },
			errorMsg: "search timings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)

			err := config.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestConfig_Address(t *testing.T) {
	config := Config{ServerHost: "127.0.0.1", ServerPort: 8080}
	assert.Equal(t, "127.0.0.1:8080", config.Address())
}

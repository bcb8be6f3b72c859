package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	StrategySubstring = "substring"
	StrategyTrigram   = "trigram"
	StrategyPgTrgm    = "pg_trgm"
)

// Config is flat and comparable on purpose: the app compares it against the
// zero value to detect a missing configuration.
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFormat   string `mapstructure:"LOG_FORMAT"`

	ServerHost string `mapstructure:"SERVER_HOST"`
	ServerPort int    `mapstructure:"SERVER_PORT"`

	DatabaseDriver       string `mapstructure:"DATABASE_DRIVER"`
	DatabaseDbPath       string `mapstructure:"DATABASE_DB_PATH"`
	DatabaseDSN          string `mapstructure:"DATABASE_DSN"`
	DatabaseCacheAddress string `mapstructure:"DATABASE_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DATABASE_CACHE_PORT"`

	SecurityJwtSecret    string        `mapstructure:"SECURITY_JWT_SECRET"`
	SecurityTokenTTL     time.Duration `mapstructure:"SECURITY_TOKEN_TTL"`
	SecurityCookieSecure bool          `mapstructure:"SECURITY_COOKIE_SECURE"`

	SearchStrategy     string        `mapstructure:"SEARCH_STRATEGY"`
	SearchCacheTTL     time.Duration `mapstructure:"SEARCH_CACHE_TTL"`
	SearchDebounce     time.Duration `mapstructure:"SEARCH_DEBOUNCE"`
	SearchFetchTimeout time.Duration `mapstructure:"SEARCH_FETCH_TIMEOUT"`
	SearchBlurGrace    time.Duration `mapstructure:"SEARCH_BLUR_GRACE"`
}

var defaults = map[string]any{
	"ENVIRONMENT": EnvDevelopment,
	"LOG_LEVEL":   "info",
	"LOG_FORMAT":  "text",

	"SERVER_HOST": "0.0.0.0",
	"SERVER_PORT": 8280,

	"DATABASE_DRIVER":        DriverSQLite,
	"DATABASE_DB_PATH":       "data/waivers.db",
	"DATABASE_DSN":           "",
	"DATABASE_CACHE_ADDRESS": "",
	"DATABASE_CACHE_PORT":    6379,

	"SECURITY_JWT_SECRET":    "",
	"SECURITY_TOKEN_TTL":     7 * 24 * time.Hour,
	"SECURITY_COOKIE_SECURE": false,

	"SEARCH_STRATEGY":      StrategyTrigram,
	"SEARCH_CACHE_TTL":     120 * time.Second,
	"SEARCH_DEBOUNCE":      200 * time.Millisecond,
	"SEARCH_FETCH_TIMEOUT": 5 * time.Second,
	"SEARCH_BLUR_GRACE":    100 * time.Millisecond,
}

func InitConfig() (Config, error) {
	return Load(".env")
}

// Load reads an optional env-format file and overlays the process
// environment on top of it. A missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	config.Environment = strings.ToLower(config.Environment)
	config.DatabaseDriver = strings.ToLower(config.DatabaseDriver)
	config.SearchStrategy = strings.ToLower(config.SearchStrategy)

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseDbPath == "" {
			return fmt.Errorf("DATABASE_DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.SearchStrategy {
	case StrategySubstring, StrategyTrigram:
	case StrategyPgTrgm:
		if c.DatabaseDriver != DriverPostgres {
			return fmt.Errorf("SEARCH_STRATEGY %q requires DATABASE_DRIVER %q", StrategyPgTrgm, DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported SEARCH_STRATEGY %q", c.SearchStrategy)
	}

	if c.SecurityJwtSecret == "" && !c.IsDevelopment() && c.Environment != EnvTest {
		return fmt.Errorf("SECURITY_JWT_SECRET is required outside development")
	}

	if c.SearchCacheTTL <= 0 || c.SearchDebounce < 0 || c.SearchFetchTimeout <= 0 {
		return fmt.Errorf("search timings must be positive")
	}

	return nil
}

func (c Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// JWTSecret falls back to a fixed development secret so a fresh checkout runs
// without configuration. Validate refuses that fallback outside development.
func (c Config) JWTSecret() []byte {
	if c.SecurityJwtSecret == "" {
		return []byte("waiverdesk-development-secret")
	}
	return []byte(c.SecurityJwtSecret)
}

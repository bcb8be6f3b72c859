package database

import (
	"embed"

	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

const migrationTable = "schema_migrations"

func init() {
	migrate.SetTable(migrationTable)
}

func (s *DB) migrationSource() (migrate.MigrationSource, string) {
	if s.Driver == "postgres" {
		return &migrate.EmbedFileSystemMigrationSource{
			FileSystem: migrationFiles,
			Root:       "migrations/postgres",
		}, "postgres"
	}

	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFiles,
		Root:       "migrations/sqlite",
	}, "sqlite3"
}

// MigrateUp applies every pending migration.
func (s *DB) MigrateUp() (int, error) {
	log := s.log.Function("MigrateUp")

	sqlDB, err := s.SQL.DB()
	if err != nil {
		return 0, log.Err("failed to get database from GORM", err)
	}

	source, dialect := s.migrationSource()
	applied, err := migrate.Exec(sqlDB, dialect, source, migrate.Up)
	if err != nil {
		return applied, log.Err("failed to apply migrations", err, "applied", applied)
	}

	log.Info("Applied migrations", "count", applied, "dialect", dialect)
	return applied, nil
}

// MigrateDown rolls back up to steps migrations; zero rolls back all of them.
func (s *DB) MigrateDown(steps int) (int, error) {
	log := s.log.Function("MigrateDown")

	sqlDB, err := s.SQL.DB()
	if err != nil {
		return 0, log.Err("failed to get database from GORM", err)
	}

	source, dialect := s.migrationSource()
	rolledBack, err := migrate.ExecMax(sqlDB, dialect, source, migrate.Down, steps)
	if err != nil {
		return rolledBack, log.Err("failed to roll back migrations", err, "rolledBack", rolledBack)
	}

	log.Info("Rolled back migrations", "count", rolledBack, "dialect", dialect)
	return rolledBack, nil
}

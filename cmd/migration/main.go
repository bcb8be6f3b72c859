package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"waiverdesk/cmd/migration/initialize"
	"waiverdesk/cmd/migration/seed"
	"waiverdesk/config"
	"waiverdesk/internal/app"
	"waiverdesk/internal/database"
	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"

	"golang.org/x/term"
)

const usage = `usage: migration <command> [args]

commands:
  up                              apply pending migrations
  down [steps]                    roll back migrations (default 1)
  seed [count]                    load development admins and waivers
  create-admin <username> [pass]  create an admin, prompting for the password when omitted
  import <file.csv>                load historical waivers from a CSV file
  flush-cache                     empty the valkey cache databases
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	cfg, err := config.InitConfig()
	if err != nil {
		return err
	}
	logger.Init(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	log := logger.New("migration").Function("run")

	command, rest := args[0], args[1:]
	if command == "import" {
		return importWaivers(cfg, rest, log)
	}

	db, err := database.New(cfg)
	if err != nil {
		return log.Err("failed to open database", err)
	}
	defer func() { _ = db.Close() }()

	switch command {
	case "up":
		applied, err := db.MigrateUp()
		if err != nil {
			return err
		}
		log.Info("Migrations applied", "count", applied)

	case "down":
		steps, err := intArg(rest, 1)
		if err != nil {
			return err
		}
		reverted, err := db.MigrateDown(steps)
		if err != nil {
			return err
		}
		log.Info("Migrations rolled back", "count", reverted)

	case "seed":
		if cfg.Environment == config.EnvProduction {
			return log.ErrMsg("refusing to seed a production database")
		}
		count, err := intArg(rest, seed.DefaultWaiverCount)
		if err != nil {
			return err
		}
		if _, err := db.MigrateUp(); err != nil {
			return err
		}
		if err := seed.Seed(db.SQL, cfg, log, count, time.Now()); err != nil {
			return err
		}
		if db.Cache.Enabled() {
			return db.FlushAllCaches()
		}

	case "create-admin":
		if len(rest) == 0 {
			return fmt.Errorf("create-admin needs a username")
		}
		request := CreateAdminRequest{Username: rest[0]}
		if len(rest) > 1 {
			request.Password = rest[1]
		} else {
			request.Password, err = promptPassword()
			if err != nil {
				return err
			}
		}
		if _, err := db.MigrateUp(); err != nil {
			return err
		}
		if _, err := initialize.CreateAdmin(context.Background(), db, request, log); err != nil {
			return err
		}

	case "flush-cache":
		if !db.Cache.Enabled() {
			log.Info("No cache configured, nothing to flush")
			return nil
		}
		return db.FlushAllCaches()

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}

	return nil
}

// importWaivers runs through the full application so the import shares the
// server's cache invalidation.
func importWaivers(cfg config.Config, args []string, log logger.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("import needs a csv file")
	}

	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	a, err := app.NewWithConfig(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := a.WaiverController.Import(context.Background(), file)
	if err != nil {
		return err
	}

	for _, rowErr := range result.Errors {
		log.Warn("Row skipped", "line", rowErr.Line, "reason", rowErr.Reason)
	}
	log.Info("Import finished", "imported", result.Imported, "skipped", result.Skipped)
	return nil
}

func intArg(args []string, fallback int) (int, error) {
	if len(args) == 0 {
		return fallback, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("expected a positive number, got %q", args[0])
	}
	return n, nil
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("password argument required when stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

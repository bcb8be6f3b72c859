package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"waiverdesk/internal/client"
	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/tui"
	"waiverdesk/internal/typeahead"
	"waiverdesk/internal/utils"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	baseURL := flag.String("url", envOr("WAIVERDESK_URL", "http://localhost:8280"), "server base url")
	username := flag.String("user", os.Getenv("WAIVERDESK_USER"), "admin username")
	export := flag.Bool("export", false, "write matching waivers as CSV to stdout instead of opening the terminal UI")
	query := flag.String("query", "", "search query for -export; empty exports the recent waivers")
	logFile := flag.String("log-file", "", "write debug logs to this file")
	flag.Parse()

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logger.Init(f, "debug", "text")
	} else {
		logger.Init(io.Discard, "error", "text")
	}

	api, err := client.New(*baseURL)
	if err != nil {
		return err
	}

	if *username == "" {
		return fmt.Errorf("-user is required")
	}
	password, err := readPassword()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	principal, err := api.Login(ctx, *username, password)
	cancel()
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = api.Logout(ctx)
	}()

	if *export {
		return exportCSV(api, *query)
	}

	bridge := tui.NewBridge()
	model := tui.New(api, bridge, tui.Options{
		Username: principal.Username,
		Cache:    typeahead.NewMemoryCache(typeahead.DefaultCacheTTL, nil),
	})
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen())
	bridge.Attach(program)

	_, err = program.Run()
	return err
}

// exportCSV writes the search results for query, or the recent waivers when
// query is blank.
func exportCSV(api *client.Client, query string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		candidates []SearchCandidate
		err        error
	)
	if query = strings.TrimSpace(query); query == "" {
		candidates, err = api.Records(ctx)
	} else {
		candidates, err = api.Search(ctx, query)
	}
	if err != nil {
		return err
	}

	return utils.WriteCandidatesCSV(os.Stdout, candidates)
}

func readPassword() (string, error) {
	if password, ok := os.LookupEnv("WAIVERDESK_PASSWORD"); ok {
		return password, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("set WAIVERDESK_PASSWORD when stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

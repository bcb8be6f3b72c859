package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"waiverdesk/internal/app"
	"waiverdesk/internal/handlers"
	"waiverdesk/internal/logger"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(runMain())
}

func runMain() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func run(ctx context.Context) error {
	app, err := app.New()
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	log := logger.New("main").Function("run")
	server := handlers.NewServer(app)
	address := fmt.Sprintf("%s:%d", app.Config.ServerHost, app.Config.ServerPort)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("Starting server", "address", address, "environment", app.Config.Environment, "strategy", app.Config.SearchStrategy)
		return server.Listen(address)
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server")

		// Live typeahead sessions hold connections open; end them first.
		app.Websocket.Close()
		return server.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := group.Wait(); err != nil {
		return log.Err("server stopped with error", err)
	}

	log.Info("Server stopped")
	return nil
}

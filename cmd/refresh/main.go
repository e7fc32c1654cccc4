// Command refresh runs one refresh pass against the configured stores and
// prints the outcome as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"clientpulse/internal/app"
	"clientpulse/internal/platform/config"
	"clientpulse/internal/platform/logger"
	"clientpulse/internal/platform/postgres"
	redisclient "clientpulse/internal/platform/redis"
	"clientpulse/internal/refresh/models"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	req, err := parseFlags(args)
	if err != nil {
		return err
	}
	scope := req.ToScope()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("CLIENTPULSE_DATABASE_URL is required")
	}
	defer db.Close()

	deps := app.Deps{DB: db, Logger: log}
	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		deps.Redis = rc.Client
	}

	a, err := app.Build(cfg, deps)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.Load(ctx); err != nil {
		return err
	}

	outcome, err := a.Refresh.Refresh(ctx, scope)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(outcome)
}

// parseFlags maps -scope, -client and -year onto a refresh request.
func parseFlags(args []string) (*models.RefreshRequest, error) {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	req := &models.RefreshRequest{}
	fs.StringVar(&req.Scope, "scope", "all", "refresh scope: all or client")
	fs.StringVar(&req.ClientID, "client", "", "client id for -scope client")
	fs.IntVar(&req.Year, "year", 0, "compliance year, defaults to the current year")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

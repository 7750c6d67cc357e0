package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/vigil/adapter/cli"
	cliBilling "github.com/felixgeelhaar/vigil/adapter/cli/billing"
	cliConsent "github.com/felixgeelhaar/vigil/adapter/cli/consent"
	"github.com/felixgeelhaar/vigil/adapter/cli/employee"
	"github.com/felixgeelhaar/vigil/adapter/cli/session"
	"github.com/felixgeelhaar/vigil/internal/app"
	"github.com/felixgeelhaar/vigil/pkg/config"
	"github.com/felixgeelhaar/vigil/pkg/observability"
)

func main() {
	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.LogLevel == "debug" {
		logger = observability.LoggerFor(cfg.LogLevel, cfg.LogFormat)
	}
	cli.SetLogger(logger)

	var cliApp *cli.App
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()
		// Loops started by `sessions start` belong to the worker; stop ours on exit.
		defer func() { _ = container.Coordinator.Shutdown(context.Background()) }()

		cliApp = &cli.App{
			EmployeeRepo:     container.EmployeeRepo,
			AgreementRepo:    container.AgreementRepo,
			SubscriptionRepo: container.SubscriptionRepo,
			BillingService:   container.BillingService,
			ConsentGate:      container.ConsentGate,
			AuditReader:      container.AuditRepo,
			TrackingService:  container.TrackingService,
			Coordinator:      container.Coordinator,
			Health:           container.Health,
		}
	}

	// Set the CLI app
	cli.SetApp(cliApp)

	// Register commands
	cli.AddCommand(employee.Cmd)
	cli.AddCommand(cliBilling.Cmd)
	cli.AddCommand(cliConsent.Cmd)
	cli.AddCommand(session.Cmd)

	// Execute CLI
	cli.Execute()
}

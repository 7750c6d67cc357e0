package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/vigil/internal/app"
	captureApp "github.com/felixgeelhaar/vigil/internal/capture/application"
	"github.com/felixgeelhaar/vigil/pkg/config"
	"github.com/felixgeelhaar/vigil/pkg/observability"
)

func main() {
	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("starting vigil capture worker")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = observability.LoggerFor(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	restored, err := container.Coordinator.Restore(ctx)
	if err != nil {
		logger.Error("failed to restore capture sessions", "error", err)
	}
	logger.Info("capture worker ready",
		"restored_sessions", restored,
		"screenshot_interval", fmt.Sprintf("%s-%s", cfg.ScreenshotMinInterval, cfg.ScreenshotMaxInterval),
		"recording_interval", fmt.Sprintf("%s-%s", cfg.RecordingMinInterval, cfg.RecordingMaxInterval),
		"local_mode", cfg.LocalMode(),
	)

	if err := container.Jobs.Start(ctx); err != nil {
		logger.Error("failed to start jobs", "error", err)
		os.Exit(1)
	}

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := container.Consumer.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("event consumer stopped", "error", err)
			cancel()
		}
	}()

	if cfg.WorkerHealthAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			response := map[string]any{
				"status":     "ok",
				"screenshot": container.ScreenshotTasks.Stats(),
				"recording":  container.RecordingTasks.Stats(),
				"dispatch":   container.CaptureDispatch.State(),
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(response)
		})

		mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
			checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			status, checks := container.Health.Check(checkCtx)
			w.Header().Set("Content-Type", "application/json")
			if status != observability.HealthStatusHealthy {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status": "not_ready",
					"checks": checks,
				})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ready", "checks": checks})
		})

		healthSrv := &http.Server{
			Addr:              cfg.WorkerHealthAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logger.Info("health server starting", "addr", cfg.WorkerHealthAddr)
			if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", "error", err)
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", "error", err)
			}
		}()
	}

	if cfg.StatsInterval > 0 {
		statsTicker := time.NewTicker(cfg.StatsInterval)
		defer statsTicker.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-statsTicker.C:
					for _, s := range []*captureApp.Scheduler{container.ScreenshotTasks, container.RecordingTasks} {
						stats := s.Stats()
						logger.Info("capture stats",
							"kind", stats.Kind,
							"active", stats.Active,
							"fired", stats.Fired,
							"failed", stats.Failed,
							"skipped", stats.Skipped,
							"dispatch", container.CaptureDispatch.State(),
						)
					}
				}
			}
		}()
	}

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("shutting down worker")

	container.Jobs.Stop()
	if err := container.Consumer.Close(); err != nil {
		logger.Warn("error closing event consumer", "error", err)
	}
	<-consumerDone

	// Root ctx is already canceled; give loops their own stop budget.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.CaptureStopTimeout+time.Second)
	defer stopCancel()
	if err := container.Coordinator.Shutdown(stopCtx); err != nil {
		logger.Warn("capture loops did not stop cleanly", "error", err)
	}
	logger.Info("worker stopped")
}

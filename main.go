package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/rug-formats/config"
	"github.com/giygas/rug-formats/data"
	"github.com/giygas/rug-formats/health"
	"github.com/giygas/rug-formats/logging"
	"github.com/giygas/rug-formats/metrics"
	"github.com/giygas/rug-formats/pipeline"
	"github.com/giygas/rug-formats/scheduler"
	"github.com/giygas/rug-formats/server"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine, the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("Failed to load .env file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer logging.Close()

	if err := run(cfg); err != nil {
		logging.Error("Publisher failed", "error", err)
		logging.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	p, closeStore, err := pipeline.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logging.Warn("Failed to close format store", "error", err)
		}
	}()

	if !cfg.Scheduled() {
		return runOnce(ctx, cfg, p)
	}
	return serve(cfg, p)
}

// runOnce publishes a single time, the way a cron job or batch step invokes it
func runOnce(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, runErr := p.Run(ctx)

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logging.Warn("Failed to write metrics", "error", err)
		}
	}
	return runErr
}

// serve publishes on the REFRESH_AT schedule and runs the status server
func serve(cfg *config.Config, p *pipeline.Pipeline) error {
	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())

	sched := scheduler.NewScheduler(dataContainer, p, cfg.RefreshAt)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	srv := server.NewServer(cfg, dataContainer, health.NewHealthChecker(dataContainer, cfg.RefreshAt))

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logging.Info("Received signal", "signal", sig.String())
	case err, ok := <-serverErr:
		if ok {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

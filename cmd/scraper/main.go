package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vodeneev/smartbet/internal/app"
	pkgconfig "github.com/Vodeneev/smartbet/internal/pkg/config"
	"github.com/Vodeneev/smartbet/internal/pkg/health"
	"github.com/Vodeneev/smartbet/internal/pkg/logging"
	"github.com/Vodeneev/smartbet/internal/pkg/scheduler"
)

const (
	defaultConfigPath = "configs/production.yaml"
	serviceName       = "scraper"
)

type config struct {
	configPath string
	runFor     time.Duration
	runOnStart bool
}

func main() {
	if err := run(); err != nil {
		slog.Error("Scraper failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()
	slog.Info("Loading config", "path", cfg.configPath)

	appConfig, err := pkgconfig.Load(cfg.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	_, logCloser, err := logging.SetupLogger(&appConfig.Logging, serviceName)
	if err != nil {
		slog.Warn("Failed to setup logging, continuing with default logger", "error", err)
	} else {
		defer logCloser.Close()
	}

	ctx, cancel := createContext(cfg.runFor)
	defer cancel()
	setupSignalHandler(ctx, cancel)

	a, err := app.Build(ctx, appConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Failed to release resources", "error", err)
		}
		slog.Info("Scraper stopped gracefully")
	}()

	addr, err := health.AddrFor(appConfig.HTTP.Port)
	if err != nil {
		return err
	}
	router := health.NewRouter(serviceName, a.Pipeline, a.Tracker, appConfig.HTTP.AllowedOrigins)
	stopped, err := health.Run(ctx, addr, serviceName, router, appConfig.HTTP.ReadHeaderTimeout)
	if err != nil {
		return err
	}

	if !appConfig.Scheduler.Disabled {
		sched, err := scheduler.New(appConfig.Scheduler, a.Pipeline)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	} else {
		slog.Info("Scheduler disabled, runs only start over HTTP")
	}

	if cfg.runOnStart {
		go func() {
			res := a.Pipeline.RunAcquisition(ctx)
			slog.Info("Startup acquisition finished", "success", res.Success, "predictions", res.PredictionsCount, "error", res.Error)
		}()
	}

	<-ctx.Done()
	slog.Info("Shutting down...")
	<-stopped
	return nil
}

func parseFlags() config {
	var cfg config

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&cfg.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.DurationVar(&cfg.runFor, "run-for", 0, "Auto-stop after duration (e.g. 10s, 1m). 0 = run until SIGINT/SIGTERM")
	flag.BoolVar(&cfg.runOnStart, "run-on-start", false, "Run one prediction scrape right after startup")
	flag.Parse()
	return cfg
}

func createContext(runFor time.Duration) (context.Context, context.CancelFunc) {
	if runFor > 0 {
		return context.WithTimeout(context.Background(), runFor)
	}
	return context.WithCancel(context.Background())
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal, stopping scraper...", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
}

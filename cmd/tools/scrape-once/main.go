// Command scrape-once runs a single pipeline operation and prints its result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vodeneev/smartbet/internal/app"
	pkgconfig "github.com/Vodeneev/smartbet/internal/pkg/config"
	"github.com/Vodeneev/smartbet/internal/pkg/logging"
	"github.com/Vodeneev/smartbet/internal/pkg/storage"
)

func main() {
	var (
		configPath = flag.String("config", envOr("CONFIG_PATH", "configs/production.yaml"), "Path to config file")
		mode       = flag.String("mode", "acquire", "acquire | verify | results | migrate")
		league     = flag.String("league", "", "League path segment for -mode results")
		timeout    = flag.Duration("timeout", 10*time.Minute, "Give up after this long")
	)
	flag.Parse()

	if err := run(*configPath, *mode, *league, *timeout); err != nil {
		slog.Error("scrape-once failed", "mode", *mode, "error", err)
		os.Exit(1)
	}
}

func run(configPath, mode, league string, timeout time.Duration) error {
	cfg, err := pkgconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if _, closer, err := logging.SetupLogger(&cfg.Logging, "scrape-once"); err == nil {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if mode == "migrate" {
		s, err := storage.Open(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		slog.Info("Schema is up to date", "driver", cfg.Database.Driver)
		return s.Close()
	}

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		out any
		ok  bool
	)
	switch mode {
	case "acquire":
		res := a.Pipeline.RunAcquisition(ctx)
		out, ok = res, res.Success
	case "verify":
		res := a.Pipeline.RunVerification(ctx)
		out, ok = res, res.Error == ""
	case "results":
		res := a.Pipeline.RunResultScrape(ctx, league)
		out, ok = res, res.Success
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s run did not succeed", mode)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

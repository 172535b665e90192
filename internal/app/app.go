// Package app builds the scraper service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vodeneev/smartbet/internal/pipeline"
	"github.com/Vodeneev/smartbet/internal/pkg/browser"
	"github.com/Vodeneev/smartbet/internal/pkg/config"
	"github.com/Vodeneev/smartbet/internal/pkg/fetch"
	"github.com/Vodeneev/smartbet/internal/pkg/ledger"
	"github.com/Vodeneev/smartbet/internal/pkg/notify"
	"github.com/Vodeneev/smartbet/internal/pkg/performance"
	"github.com/Vodeneev/smartbet/internal/pkg/runlock"
	"github.com/Vodeneev/smartbet/internal/pkg/storage"
	"github.com/Vodeneev/smartbet/internal/scraper/extract"
	"github.com/Vodeneev/smartbet/internal/scraper/gate"
	"github.com/Vodeneev/smartbet/internal/scraper/sources"
	"github.com/Vodeneev/smartbet/internal/settlement"
)

// App owns every long-lived resource of the service.
type App struct {
	Config   *config.Config
	Store    *storage.SQLStore
	Pages    browser.PageSource
	Pipeline *pipeline.Service
	Tracker  *performance.Tracker

	closers []func() error
}

// Build opens storage, recovers abandoned jobs and assembles the pipeline.
// Nothing is launched: the browser starts on the first scrape.
func Build(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg, Tracker: performance.GetTracker()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Store, err = storage.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Store.Close)

	var locker runlock.Locker
	if cfg.Redis.Addr != "" {
		r, err := runlock.NewRedis(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r.Close)
		locker = r
		slog.Info("Using Redis run lock", "addr", cfg.Redis.Addr)
	}
	led := ledger.New(a.Store, locker)
	if _, err := led.RecoverStale(ctx, cfg.Ledger.StaleAfter); err != nil {
		return nil, fmt.Errorf("failed to recover stale jobs: %w", err)
	}

	a.Pages = NewPageSource(&cfg.Browser)
	a.closers = append(a.closers, a.Pages.Release)

	predictions, err := predictionSite(cfg)
	if err != nil {
		return nil, err
	}
	results, err := resultSite(cfg)
	if err != nil {
		return nil, err
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			// Alerts are optional; the service runs without them.
			slog.Warn("Telegram notifier disabled", "error", err)
		} else {
			notifier = tg
			a.closers = append(a.closers, func() error { tg.Stop(); return nil })
		}
	}

	a.Pipeline = pipeline.New(pipeline.Deps{
		Pages:       a.Pages,
		Gate:        gate.NewHandler(cfg.Gate),
		Store:       a.Store,
		Ledger:      led,
		Predictions: predictions,
		Results:     results,
		Settlement: settlement.Config{
			CandidateLimit: cfg.Settlement.CandidateLimit,
			HomeWinMarkets: cfg.Settlement.HomeWinMarkets,
		},
		Notifier: notifier,
		Tracker:  a.Tracker,
	})
	return a, nil
}

// NewPageSource returns a Chrome manager, or a plain HTTP client in http mode.
func NewPageSource(cfg *config.BrowserConfig) browser.PageSource {
	if cfg.Mode == "http" {
		id := browser.NewIdentity(nil, cfg.UserAgents, cfg.Locales)
		slog.Info("Using HTTP page source", "user_agent", id.UserAgent)
		return fetch.NewClient(cfg.HTTPTimeout, id)
	}
	return browser.NewManager(browser.Options{
		Headless:      !cfg.Headful,
		ExecPath:      cfg.ExecPath,
		WindowWidth:   cfg.WindowWidth,
		WindowHeight:  cfg.WindowHeight,
		LaunchTimeout: cfg.LaunchTimeout,
		UserAgents:    cfg.UserAgents,
		Locales:       cfg.Locales,
	})
}

func predictionSite(cfg *config.Config) (pipeline.PredictionSite, error) {
	p := cfg.Predictions
	profile, err := sources.MustLookup(p.Source)
	if err != nil {
		return pipeline.PredictionSite{}, fmt.Errorf("predictions: %w", err)
	}
	sel := p.Selectors.Merge(profile.Predictions)
	if len(sel.Rows) == 0 {
		return pipeline.PredictionSite{}, fmt.Errorf("predictions: source %q has no prediction selectors", profile.Key)
	}
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return pipeline.PredictionSite{}, err
	}

	return pipeline.PredictionSite{
		Site:           site(profile, p.SourceConfig),
		Engine:         extract.NewPredictionEngine(sel, extract.WithLocation(loc)),
		ScrollCount:    p.ScrollCount,
		ScrollDelayMin: p.ScrollDelayMin,
		ScrollDelayMax: p.ScrollDelayMax,
	}, nil
}

func resultSite(cfg *config.Config) (pipeline.ResultSite, error) {
	r := cfg.Results
	profile, err := sources.MustLookup(r.Source)
	if err != nil {
		return pipeline.ResultSite{}, fmt.Errorf("results: %w", err)
	}
	sel := r.Selectors.Merge(profile.Results)
	if len(sel.Containers) == 0 && len(sel.ScoreBlocks) == 0 {
		return pipeline.ResultSite{}, fmt.Errorf("results: source %q has no result selectors", profile.Key)
	}

	return pipeline.ResultSite{
		Site:   site(profile, r.SourceConfig),
		Engine: extract.NewResultEngine(sel),
	}, nil
}

func site(profile sources.Profile, sc config.SourceConfig) pipeline.Site {
	url := profile.URL
	if sc.URL != "" {
		url = sc.URL
	}
	return pipeline.Site{
		Label:             profile.Label,
		URL:               url,
		NavigationTimeout: sc.NavigationTimeout,
		DelayMin:          sc.DelayMin,
		DelayMax:          sc.DelayMax,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

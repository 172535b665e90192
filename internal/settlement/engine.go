// Package settlement reconciles scraped match results with pending bets.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vodeneev/smartbet/internal/pkg/models"
	"github.com/Vodeneev/smartbet/internal/pkg/storage"
	"github.com/Vodeneev/smartbet/internal/scraper/extract"
)

// ResultSource scrapes current results.
type ResultSource interface {
	ScrapeResults(ctx context.Context, league string) ([]extract.ResultRecord, error)
}

type Store interface {
	MatchesWithPendingBets(ctx context.Context, limit int) ([]models.Match, error)
	FindScheduledMatch(ctx context.Context, homeTeam, awayTeam string) (*models.Match, error)
	PendingBets(ctx context.Context, matchID int64) ([]models.Bet, error)
	SettleMatch(ctx context.Context, ms storage.MatchSettlement) (int, error)
}

// LookupError means a scraped result matched no scheduled match.
type LookupError struct {
	HomeTeam string
	AwayTeam string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no scheduled match for %s vs %s", e.HomeTeam, e.AwayTeam)
}

type Config struct {
	CandidateLimit int
	HomeWinMarkets []string
}

// Report summarizes one reconciliation pass. Pending is the number of
// candidate matches considered; Verified is how many were settled.
type Report struct {
	Verified  int `json:"verified"`
	Pending   int `json:"pending"`
	BetsWon   int `json:"betsWon"`
	BetsLost  int `json:"betsLost"`
	Unmatched int `json:"unmatched"`
}

type Engine struct {
	store   Store
	results ResultSource
	cfg     Config
	now     func() time.Time
}

func NewEngine(store Store, results ResultSource, cfg Config) *Engine {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 50
	}
	if len(cfg.HomeWinMarkets) == 0 {
		cfg.HomeWinMarkets = []string{"Home", "1X2", "HomeWin"}
	}
	return &Engine{store: store, results: results, cfg: cfg, now: time.Now}
}

// Reconcile settles every scheduled match with pending bets whose result is
// finished. A result scrape failure returns the report so far with the error;
// per-match failures are logged and skipped.
func (e *Engine) Reconcile(ctx context.Context) (Report, error) {
	var report Report

	candidates, err := e.store.MatchesWithPendingBets(ctx, e.cfg.CandidateLimit)
	if err != nil {
		return report, fmt.Errorf("failed to load candidates: %w", err)
	}
	report.Pending = len(candidates)
	if len(candidates) == 0 {
		slog.Info("No matches awaiting results")
		return report, nil
	}

	results, err := e.results.ScrapeResults(ctx, "")
	if err != nil {
		return report, fmt.Errorf("failed to scrape results: %w", err)
	}

	for _, r := range results {
		if !r.Finished {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		won, lost, err := e.settle(ctx, r)
		var lookup *LookupError
		switch {
		case errors.As(err, &lookup):
			report.Unmatched++
			slog.Debug("Result has no scheduled match", "home", r.HomeTeam, "away", r.AwayTeam)
			continue
		case err != nil:
			slog.Error("Failed to settle match", "home", r.HomeTeam, "away", r.AwayTeam, "error", err)
			continue
		}

		report.Verified++
		report.BetsWon += won
		report.BetsLost += lost
	}

	slog.Info("Reconciliation finished",
		"verified", report.Verified, "pending", report.Pending,
		"bets_won", report.BetsWon, "bets_lost", report.BetsLost, "unmatched", report.Unmatched)
	return report, nil
}

func (e *Engine) settle(ctx context.Context, r extract.ResultRecord) (won, lost int, err error) {
	match, err := e.store.FindScheduledMatch(ctx, r.HomeTeam, r.AwayTeam)
	if err != nil {
		return 0, 0, err
	}
	if match == nil {
		return 0, 0, &LookupError{HomeTeam: r.HomeTeam, AwayTeam: r.AwayTeam}
	}

	bets, err := e.store.PendingBets(ctx, match.ID)
	if err != nil {
		return 0, 0, err
	}

	decisions := Decide(match.HomeTeam, r.HomeScore, r.AwayScore, bets, e.cfg.HomeWinMarkets)
	if _, err := e.store.SettleMatch(ctx, storage.MatchSettlement{
		MatchID:   match.ID,
		HomeScore: r.HomeScore,
		AwayScore: r.AwayScore,
		Bets:      decisions,
		SettledAt: e.now(),
	}); err != nil {
		return 0, 0, err
	}

	for _, d := range decisions {
		if d.Status == models.BetWon {
			won++
		} else {
			lost++
		}
	}
	slog.Info("Match settled", "match_id", match.ID, "home", match.HomeTeam, "away", match.AwayTeam,
		"score", fmt.Sprintf("%d-%d", r.HomeScore, r.AwayScore), "won", won, "lost", lost)
	return won, lost, nil
}

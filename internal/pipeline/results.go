package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Vodeneev/smartbet/internal/pkg/ledger"
	"github.com/Vodeneev/smartbet/internal/pkg/notify"
	"github.com/Vodeneev/smartbet/internal/pkg/performance"
	"github.com/Vodeneev/smartbet/internal/scraper/extract"
	"github.com/Vodeneev/smartbet/internal/scraper/sources"
	"github.com/Vodeneev/smartbet/internal/settlement"
)

var _ settlement.ResultSource = (*Service)(nil)

// ResultScrapeResult is returned by a standalone result scrape.
type ResultScrapeResult struct {
	Success      bool                   `json:"success"`
	ResultsCount int                    `json:"resultsCount"`
	Results      []extract.ResultRecord `json:"results"`
	Error        string                 `json:"error,omitempty"`
}

// VerificationResult is returned by a verification run.
type VerificationResult struct {
	settlement.Report
	Error string `json:"error,omitempty"`
	JobID int64  `json:"jobId,omitempty"`
	Busy  bool   `json:"busy,omitempty"`
}

// ScrapeResults reads the results page, optionally for one league.
func (s *Service) ScrapeResults(ctx context.Context, league string) ([]extract.ResultRecord, error) {
	site := s.results
	log := slog.With("source", site.Label, "league", league)
	run := performance.Run{Source: site.Label, Kind: "results", Started: time.Now()}

	records, err := s.scrapeResults(ctx, log, league, &run)

	run.Total = time.Since(run.Started)
	run.Records = len(records)
	if err != nil {
		run.Err = err.Error()
	}
	s.tracker.RecordRun(run)
	return records, err
}

func (s *Service) scrapeResults(ctx context.Context, log *slog.Logger, league string, run *performance.Run) ([]extract.ResultRecord, error) {
	site := s.results

	navStart := time.Now()
	html, err := s.loadPage(ctx, log, site.Site, sources.LeagueURL(site.URL, league), nil)
	run.Navigate = time.Since(navStart)
	if err != nil {
		return nil, err
	}

	extractStart := time.Now()
	out, err := site.Engine.Extract(html)
	run.Extract = time.Since(extractStart)
	if err != nil {
		return nil, err
	}
	run.Strategy = out.Strategy
	log.Info("Results extracted", "count", len(out.Records), "strategy", out.Strategy, "skipped", out.Skipped)
	return out.Records, nil
}

// RunResultScrape scrapes results without touching bets.
func (s *Service) RunResultScrape(ctx context.Context, league string) ResultScrapeResult {
	records, err := s.ScrapeResults(ctx, league)
	if err != nil {
		slog.Error("Result scrape failed", "league", league, "error", err)
		return ResultScrapeResult{Error: err.Error(), Results: []extract.ResultRecord{}}
	}
	if records == nil {
		records = []extract.ResultRecord{}
	}
	return ResultScrapeResult{Success: true, ResultsCount: len(records), Results: records}
}

// RunVerification settles pending bets against freshly scraped results.
func (s *Service) RunVerification(ctx context.Context) VerificationResult {
	log := slog.With("run_id", uuid.NewString(), "source", VerificationSource)

	jobID, err := s.ledger.Begin(ctx, VerificationSource)
	if err != nil {
		busy := errors.Is(err, ledger.ErrRunInProgress)
		if busy {
			log.Warn("Verification already running, skipping")
		} else {
			log.Error("Failed to start verification job", "error", err)
		}
		return VerificationResult{Error: err.Error(), Busy: busy}
	}
	log = log.With("job_id", jobID)

	report, err := s.settler.Reconcile(ctx)
	res := VerificationResult{Report: report, JobID: jobID}
	settled := report.BetsWon + report.BetsLost

	if err != nil {
		res.Error = err.Error()
		log.Error("Verification failed", "error", err)
		s.finish(ctx, log, jobID, ledger.Failed(res.Error, report.Verified, settled))
		s.notify(ctx, log, notify.VerificationFailed(res.Error, report.Pending))
		return res
	}

	s.finish(ctx, log, jobID, ledger.Completed(report.Verified, settled))
	if report.Verified > 0 {
		s.notify(ctx, log, notify.MatchesSettled(report.Verified, report.Pending, report.BetsWon, report.BetsLost))
	}
	return res
}

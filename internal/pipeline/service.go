// Package pipeline wires the browser, gate, extraction, storage and ledger
// into the entry points the scheduler and the HTTP surface call.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vodeneev/smartbet/internal/pkg/browser"
	"github.com/Vodeneev/smartbet/internal/pkg/ledger"
	"github.com/Vodeneev/smartbet/internal/pkg/models"
	"github.com/Vodeneev/smartbet/internal/pkg/notify"
	"github.com/Vodeneev/smartbet/internal/pkg/performance"
	"github.com/Vodeneev/smartbet/internal/pkg/storage"
	"github.com/Vodeneev/smartbet/internal/scraper/extract"
	"github.com/Vodeneev/smartbet/internal/scraper/gate"
	"github.com/Vodeneev/smartbet/internal/settlement"
)

// VerificationSource is the ledger source name of result verification runs.
const VerificationSource = "verification"

// Store is everything the pipeline persists or reads.
type Store interface {
	settlement.Store
	ledger.Store
	SavePredictions(ctx context.Context, records []storage.PredictionInput) storage.BatchResult
	LastJob(ctx context.Context, source string) (*models.ScrapingJob, error)
	CountPendingBets(ctx context.Context) (int, error)
}

// Site is where and how politely one source is read.
type Site struct {
	Label             string // ledger and metrics name
	URL               string
	NavigationTimeout time.Duration
	DelayMin          time.Duration
	DelayMax          time.Duration
}

type PredictionSite struct {
	Site
	Engine         *extract.Engine[extract.PredictionRecord]
	ScrollCount    int
	ScrollDelayMin time.Duration
	ScrollDelayMax time.Duration
}

type ResultSite struct {
	Site
	Engine *extract.Engine[extract.ResultRecord]
}

type Deps struct {
	Pages       browser.PageSource
	Gate        *gate.Handler
	Store       Store
	Ledger      *ledger.Ledger // optional, defaults to an in-process ledger over Store
	Predictions PredictionSite
	Results     ResultSite
	Settlement  settlement.Config
	Notifier    notify.Notifier      // optional
	Tracker     *performance.Tracker // optional, defaults to the global tracker
}

type Service struct {
	pages       browser.PageSource
	gate        *gate.Handler
	store       Store
	ledger      *ledger.Ledger
	predictions PredictionSite
	results     ResultSite
	settler     *settlement.Engine
	notifier    notify.Notifier
	tracker     *performance.Tracker
}

func New(d Deps) *Service {
	s := &Service{
		pages:       d.Pages,
		gate:        d.Gate,
		store:       d.Store,
		ledger:      d.Ledger,
		predictions: d.Predictions,
		results:     d.Results,
		notifier:    d.Notifier,
		tracker:     d.Tracker,
	}
	if s.gate == nil {
		s.gate = gate.NewHandler(gate.DefaultConfig)
	}
	if s.ledger == nil {
		s.ledger = ledger.New(d.Store, nil)
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.tracker == nil {
		s.tracker = performance.GetTracker()
	}
	s.settler = settlement.NewEngine(d.Store, s, d.Settlement)
	return s
}

// StatusReport describes the prediction scraper as seen from the job ledger.
type StatusReport struct {
	ScraperStatus string     `json:"scraperStatus"` // last job status, or IDLE when none ran yet
	Source        string     `json:"source"`
	LastRun       *time.Time `json:"lastRun"`
	LastSuccess   bool       `json:"lastSuccess"`
	LastError     string     `json:"lastError,omitempty"`
	PendingBets   int        `json:"pendingBets"`
	BrowserReady  bool       `json:"browserReady"`
}

func (s *Service) Status(ctx context.Context) (StatusReport, error) {
	report := StatusReport{
		ScraperStatus: "IDLE",
		Source:        s.predictions.Label,
		BrowserReady:  s.pages.Ready(),
	}

	job, err := s.store.LastJob(ctx, s.predictions.Label)
	if err != nil {
		return report, err
	}
	if job != nil {
		started := job.StartedAt
		report.ScraperStatus = string(job.Status)
		report.LastRun = &started
		report.LastSuccess = job.Status == models.JobCompleted
		report.LastError = job.ErrorMessage
	}

	pending, err := s.store.CountPendingBets(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to count pending bets: %w", err)
	}
	report.PendingBets = pending
	return report, nil
}

// finish records the outcome with a context that survives caller cancellation,
// so a run is never left RUNNING because its trigger went away.
func (s *Service) finish(ctx context.Context, log *slog.Logger, jobID int64, o ledger.Outcome) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.ledger.Finish(fctx, jobID, o); err != nil {
		log.Error("Failed to finish job", "job_id", jobID, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, log *slog.Logger, text string) {
	if err := s.notifier.Notify(context.WithoutCancel(ctx), text); err != nil {
		log.Warn("Failed to send notification", "error", err)
	}
}

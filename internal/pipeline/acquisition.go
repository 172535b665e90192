package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Vodeneev/smartbet/internal/pkg/browser"
	"github.com/Vodeneev/smartbet/internal/pkg/ledger"
	"github.com/Vodeneev/smartbet/internal/pkg/models"
	"github.com/Vodeneev/smartbet/internal/pkg/notify"
	"github.com/Vodeneev/smartbet/internal/pkg/performance"
	"github.com/Vodeneev/smartbet/internal/pkg/storage"
	"github.com/Vodeneev/smartbet/internal/scraper/extract"
)

var errNoPredictions = errors.New("no predictions extracted")

// AcquisitionResult is returned to whoever triggered a prediction scrape.
type AcquisitionResult struct {
	Success          bool   `json:"success"`
	MatchesFound     int    `json:"matchesFound"`
	PredictionsCount int    `json:"predictionsCount"`
	Errors           int    `json:"errors"`
	Error            string `json:"error,omitempty"`
	JobID            int64  `json:"jobId,omitempty"`
	Busy             bool   `json:"busy,omitempty"` // another run of the source was in flight
}

// RunAcquisition scrapes the prediction source once and stores what it finds.
// It fails fast with ledger.ErrRunInProgress when a run of the same source is
// already in flight.
func (s *Service) RunAcquisition(ctx context.Context) AcquisitionResult {
	site := s.predictions
	log := slog.With("run_id", uuid.NewString(), "source", site.Label)

	jobID, err := s.ledger.Begin(ctx, site.Label)
	if err != nil {
		busy := errors.Is(err, ledger.ErrRunInProgress)
		if busy {
			log.Warn("Acquisition already running, skipping")
		} else {
			log.Error("Failed to start acquisition job", "error", err)
		}
		return AcquisitionResult{Error: err.Error(), Busy: busy}
	}
	log = log.With("job_id", jobID)

	run := performance.Run{Source: site.Label, Kind: "predictions", Started: time.Now()}
	res := AcquisitionResult{JobID: jobID}

	records, err := s.scrapePredictions(ctx, log, &run)
	if err == nil && len(records) == 0 {
		err = errNoPredictions
	}
	if err == nil {
		storeStart := time.Now()
		batch := s.store.SavePredictions(ctx, toInputs(records))
		run.Store = time.Since(storeStart)

		for _, rerr := range batch.Errors {
			log.Error("Failed to save prediction", "external_id", rerr.ExternalID, "market", rerr.Market, "error", rerr.Err)
		}
		res.MatchesFound = batch.Saved
		res.PredictionsCount = len(records)
		res.Errors = len(batch.Errors)
		res.Success = true
	}

	run.Total = time.Since(run.Started)
	run.Records = len(records)
	run.Saved = res.MatchesFound
	run.Errors = res.Errors

	if err != nil {
		res.Error = err.Error()
		run.Err = res.Error
		log.Error("Acquisition failed", "error", err, "duration", run.Total)
		s.finish(ctx, log, jobID, ledger.Failed(res.Error, res.MatchesFound, res.PredictionsCount))
		s.notify(ctx, log, notify.AcquisitionFailed(site.Label, jobID, res.Error))
	} else {
		log.Info("Acquisition completed",
			"matches_found", res.MatchesFound,
			"predictions", res.PredictionsCount,
			"errors", res.Errors,
			"strategy", run.Strategy,
			"duration", run.Total)
		s.finish(ctx, log, jobID, ledger.Completed(res.MatchesFound, res.PredictionsCount))
	}
	s.tracker.RecordRun(run)
	return res
}

func (s *Service) scrapePredictions(ctx context.Context, log *slog.Logger, run *performance.Run) ([]extract.PredictionRecord, error) {
	site := s.predictions

	navStart := time.Now()
	html, err := s.loadPage(ctx, log, site.Site, site.URL, func(page browser.Page) error {
		for i := 0; i < site.ScrollCount; i++ {
			if err := page.Scroll(ctx); err != nil {
				return err
			}
			if err := browser.Delay(ctx, site.ScrollDelayMin, site.ScrollDelayMax); err != nil {
				return err
			}
		}
		return nil
	})
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
	log.Info("Predictions extracted", "count", len(out.Records), "strategy", out.Strategy, "skipped", out.Skipped)
	return out.Records, nil
}

func toInputs(records []extract.PredictionRecord) []storage.PredictionInput {
	inputs := make([]storage.PredictionInput, 0, len(records))
	for _, r := range records {
		inputs = append(inputs, storage.PredictionInput{
			Match: models.Match{
				ExternalID: r.ExternalID,
				HomeTeam:   r.HomeTeam,
				AwayTeam:   r.AwayTeam,
				League:     r.League,
				MatchDate:  r.MatchDate,
				MatchTime:  r.MatchTime,
				Status:     models.MatchScheduled,
			},
			Prediction: models.Prediction{
				Market:          r.Market,
				Odds:            r.Odds,
				Probability:     r.Probability,
				Stake:           r.Stake,
				ConfidenceLevel: r.ConfidenceLevel,
				HomeOdds:        r.HomeOdds,
				DrawOdds:        r.DrawOdds,
				AwayOdds:        r.AwayOdds,
			},
		})
	}
	return inputs
}

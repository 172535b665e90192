// Package scheduler triggers the acquisition and verification pipelines on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Vodeneev/smartbet/internal/pipeline"
	"github.com/Vodeneev/smartbet/internal/pkg/config"
)

// Runner is the part of *pipeline.Service the scheduler triggers.
type Runner interface {
	RunAcquisition(ctx context.Context) pipeline.AcquisitionResult
	RunVerification(ctx context.Context) pipeline.VerificationResult
}

type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	baseCtx context.Context
	cancel  context.CancelFunc

	acquisitionID  cron.EntryID
	verificationID cron.EntryID
}

// New registers both jobs. Specs use the standard five-field cron format
// evaluated in cfg.Timezone.
func New(cfg config.SchedulerConfig, runner Runner) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
	}

	logger := slogLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		runner:  runner,
		baseCtx: ctx,
		cancel:  cancel,
	}

	if s.acquisitionID, err = s.cron.AddFunc(cfg.AcquisitionSpec, s.acquire); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid acquisition spec %q: %w", cfg.AcquisitionSpec, err)
	}
	if s.verificationID, err = s.cron.AddFunc(cfg.VerificationSpec, s.verify); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid verification spec %q: %w", cfg.VerificationSpec, err)
	}
	return s, nil
}

func (s *Scheduler) acquire() {
	slog.Info("Scheduled acquisition starting")
	res := s.runner.RunAcquisition(s.baseCtx)
	slog.Info("Scheduled acquisition done", "success", res.Success, "predictions", res.PredictionsCount, "error", res.Error)
}

func (s *Scheduler) verify() {
	slog.Info("Scheduled verification starting")
	res := s.runner.RunVerification(s.baseCtx)
	slog.Info("Scheduled verification done", "verified", res.Verified, "pending", res.Pending, "error", res.Error)
}

// Next returns the next fire times of the acquisition and verification jobs.
// Both are zero until Start.
func (s *Scheduler) Next() (acquisition, verification time.Time) {
	return s.cron.Entry(s.acquisitionID).Next, s.cron.Entry(s.verificationID).Next
}

func (s *Scheduler) Start() {
	s.cron.Start()
	acq, ver := s.Next()
	slog.Info("Scheduler started", "next_acquisition", acq, "next_verification", ver)
}

// Stop cancels in-flight runs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	slog.Info("Scheduler stopped")
}

// slogLogger adapts cron's logger interface to slog.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}

// Package ledger records the lifecycle of every scraping run. A run is begun
// once, finished once, and a source never has two runs in flight.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Vodeneev/smartbet/internal/pkg/models"
	"github.com/Vodeneev/smartbet/internal/pkg/runlock"
	"github.com/Vodeneev/smartbet/internal/pkg/storage"
)

var (
	ErrRunInProgress = storage.ErrRunInProgress
	// ErrUnknownJob is returned by Finish for an id this ledger did not begin
	// or has already finished.
	ErrUnknownJob = errors.New("job was not begun by this ledger")
)

// Store is the persistence the ledger needs.
type Store interface {
	BeginJob(ctx context.Context, source string) (int64, error)
	FinishJob(ctx context.Context, id int64, f storage.JobFinish) error
	FailStaleJobs(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

// Outcome is the terminal state of a run.
type Outcome struct {
	Status           models.JobStatus
	MatchesFound     int
	PredictionsFound int
	Err              string
}

func Completed(matches, predictions int) Outcome {
	return Outcome{Status: models.JobCompleted, MatchesFound: matches, PredictionsFound: predictions}
}

func Failed(reason string, matches, predictions int) Outcome {
	return Outcome{Status: models.JobFailed, MatchesFound: matches, PredictionsFound: predictions, Err: reason}
}

type Ledger struct {
	store  Store
	locker runlock.Locker

	mu       sync.Mutex
	releases map[int64]func()
}

func New(store Store, locker runlock.Locker) *Ledger {
	if locker == nil {
		locker = runlock.NewLocal()
	}
	return &Ledger{store: store, locker: locker, releases: make(map[int64]func())}
}

// Begin takes the source lock and records a RUNNING job. It returns
// ErrRunInProgress when another run of source holds the lock or the row.
func (l *Ledger) Begin(ctx context.Context, source string) (int64, error) {
	release, ok, err := l.locker.TryAcquire(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("failed to lock %s: %w", source, err)
	}
	if !ok {
		return 0, ErrRunInProgress
	}

	id, err := l.store.BeginJob(ctx, source)
	if err != nil {
		release()
		return 0, err
	}

	l.mu.Lock()
	l.releases[id] = release
	l.mu.Unlock()

	slog.Info("Job started", "job_id", id, "source", source)
	return id, nil
}

// Finish records the outcome and frees the source.
func (l *Ledger) Finish(ctx context.Context, id int64, o Outcome) error {
	l.mu.Lock()
	release, ok := l.releases[id]
	delete(l.releases, id)
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %d: %w", id, ErrUnknownJob)
	}
	defer release()

	err := l.store.FinishJob(ctx, id, storage.JobFinish{
		Status:           o.Status,
		MatchesFound:     o.MatchesFound,
		PredictionsFound: o.PredictionsFound,
		ErrorMessage:     o.Err,
	})
	if err != nil {
		return err
	}

	slog.Info("Job finished", "job_id", id, "status", o.Status,
		"matches_found", o.MatchesFound, "predictions_found", o.PredictionsFound, "error", o.Err)
	return nil
}

// RecoverStale fails RUNNING jobs older than staleAfter. It runs once at
// startup, before any new run is begun.
func (l *Ledger) RecoverStale(ctx context.Context, staleAfter time.Duration) (int64, error) {
	n, err := l.store.FailStaleJobs(ctx, time.Now().Add(-staleAfter), "abandoned: process stopped before the run finished")
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Warn("Recovered abandoned jobs", "count", n)
	}
	return n, nil
}

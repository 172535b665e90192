package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Vodeneev/smartbet/internal/pkg/models"
)

// JobFinish is the terminal state written by FinishJob.
type JobFinish struct {
	Status           models.JobStatus
	MatchesFound     int
	PredictionsFound int
	ErrorMessage     string
}

// BeginJob inserts a RUNNING job for source. At most one RUNNING job may exist
// per source; a second concurrent begin gets ErrRunInProgress.
func (s *SQLStore) BeginJob(ctx context.Context, source string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
	INSERT INTO scraping_jobs (source, status, started_at)
	VALUES ($1, $2, $3)
	RETURNING id
	`, source, string(models.JobRunning), s.timestamp()).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrRunInProgress
	}
	if err != nil {
		return 0, fmt.Errorf("failed to begin job for %s: %w", source, err)
	}
	return id, nil
}

// FinishJob moves a RUNNING job to its terminal state exactly once.
func (s *SQLStore) FinishJob(ctx context.Context, id int64, f JobFinish) error {
	if f.Status != models.JobCompleted && f.Status != models.JobFailed {
		return fmt.Errorf("invalid terminal job status %q", f.Status)
	}

	res, err := s.db.ExecContext(ctx, `
	UPDATE scraping_jobs
	SET status = $1, matches_found = $2, predictions_found = $3, error_message = $4, completed_at = $5
	WHERE id = $6 AND status = $7
	`, string(f.Status), f.MatchesFound, f.PredictionsFound, nullString(f.ErrorMessage), s.timestamp(),
		id, string(models.JobRunning))
	if err != nil {
		return fmt.Errorf("failed to finish job %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish job %d: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM scraping_jobs WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("job %d: %w", id, ErrJobNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read job %d: %w", id, err)
	}
	return fmt.Errorf("job %d is %s: %w", id, status, ErrJobNotRunning)
}

// LastJob returns the most recently started job for source, or nil.
func (s *SQLStore) LastJob(ctx context.Context, source string) (*models.ScrapingJob, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, source, status, matches_found, predictions_found, error_message, started_at, completed_at
	FROM scraping_jobs
	WHERE source = $1
	ORDER BY id DESC
	LIMIT 1
	`, source)

	var (
		j           models.ScrapingJob
		status      string
		errMsg      sql.NullString
		completedAt sql.NullTime
	)
	err := row.Scan(&j.ID, &j.Source, &status, &j.MatchesFound, &j.PredictionsFound, &errMsg, &j.StartedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last job for %s: %w", source, err)
	}
	j.Status = models.JobStatus(status)
	j.ErrorMessage = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}

// FailStaleJobs finalizes RUNNING jobs started before cutoff as FAILED.
// A process that died mid-run leaves such rows behind.
func (s *SQLStore) FailStaleJobs(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
	UPDATE scraping_jobs
	SET status = $1, error_message = $2, completed_at = $3
	WHERE status = $4 AND started_at < $5
	`, string(models.JobFailed), reason, s.timestamp(), string(models.JobRunning), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale jobs: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Vodeneev/smartbet/internal/pkg/models"
)

// PredictionInput is one scraped match plus its prediction.
type PredictionInput struct {
	Match      models.Match
	Prediction models.Prediction
}

// RecordError reports a record that could not be persisted.
type RecordError struct {
	ExternalID string
	Market     string
	Err        error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s/%s: %v", e.ExternalID, e.Market, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// BatchResult summarizes SavePredictions. Saved counts records whose match and
// prediction were both written.
type BatchResult struct {
	Saved  int
	Errors []*RecordError
}

const matchColumns = `id, external_id, home_team, away_team, league, match_date, match_time, status, home_score, away_score, created_at, updated_at`

// SaveMatch inserts or updates a match by external id and returns its row id.
// Status and scores are never touched here: a re-scrape must not reopen a settled match.
func (s *SQLStore) SaveMatch(ctx context.Context, m *models.Match) (int64, error) {
	return s.saveMatch(ctx, s.db, m)
}

func (s *SQLStore) saveMatch(ctx context.Context, q querier, m *models.Match) (int64, error) {
	query := `
	INSERT INTO matches (external_id, home_team, away_team, league, match_date, match_time, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (external_id) DO UPDATE SET
		home_team = EXCLUDED.home_team,
		away_team = EXCLUDED.away_team,
		league = EXCLUDED.league,
		match_date = EXCLUDED.match_date,
		match_time = EXCLUDED.match_time,
		updated_at = EXCLUDED.updated_at
	RETURNING id
	`
	now := s.timestamp()
	var id int64
	err := q.QueryRowContext(ctx, query,
		m.ExternalID, m.HomeTeam, m.AwayTeam, m.League, nullTime(m.MatchDate), m.MatchTime,
		string(models.MatchScheduled), now, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save match %s: %w", m.ExternalID, err)
	}
	m.ID = id
	return id, nil
}

// SavePrediction inserts or refreshes the prediction for (match, market).
func (s *SQLStore) SavePrediction(ctx context.Context, p *models.Prediction) (int64, error) {
	return s.savePrediction(ctx, s.db, p)
}

func (s *SQLStore) savePrediction(ctx context.Context, q querier, p *models.Prediction) (int64, error) {
	query := `
	INSERT INTO predictions (match_id, market, odds, probability, stake, confidence_level, home_odds, draw_odds, away_odds, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (match_id, market) DO UPDATE SET
		odds = EXCLUDED.odds,
		probability = EXCLUDED.probability,
		stake = EXCLUDED.stake,
		confidence_level = EXCLUDED.confidence_level,
		home_odds = EXCLUDED.home_odds,
		draw_odds = EXCLUDED.draw_odds,
		away_odds = EXCLUDED.away_odds,
		updated_at = EXCLUDED.updated_at
	RETURNING id
	`
	now := s.timestamp()
	var id int64
	err := q.QueryRowContext(ctx, query,
		p.MatchID, p.Market, p.Odds, p.Probability, p.Stake, string(p.ConfidenceLevel),
		p.HomeOdds, p.DrawOdds, p.AwayOdds, now, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save prediction %d/%s: %w", p.MatchID, p.Market, err)
	}
	p.ID = id
	return id, nil
}

// SavePredictions writes each record in its own transaction. A failing record
// is reported in the result and does not stop the batch.
func (s *SQLStore) SavePredictions(ctx context.Context, records []PredictionInput) BatchResult {
	var res BatchResult
	for i := range records {
		rec := &records[i]
		err := s.inTx(ctx, func(q querier) error {
			matchID, err := s.saveMatch(ctx, q, &rec.Match)
			if err != nil {
				return err
			}
			rec.Prediction.MatchID = matchID
			_, err = s.savePrediction(ctx, q, &rec.Prediction)
			return err
		})
		if err != nil {
			res.Errors = append(res.Errors, &RecordError{
				ExternalID: rec.Match.ExternalID,
				Market:     rec.Prediction.Market,
				Err:        err,
			})
			continue
		}
		res.Saved++
	}
	return res
}

// GetMatchByExternalID returns nil when no match has that external id.
func (s *SQLStore) GetMatchByExternalID(ctx context.Context, externalID string) (*models.Match, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE external_id = $1`, externalID)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", externalID, err)
	}
	return m, nil
}

func (s *SQLStore) CountMatches(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}

// ListPredictions returns the predictions of a match ordered by market.
func (s *SQLStore) ListPredictions(ctx context.Context, matchID int64) ([]models.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, match_id, market, odds, probability, stake, confidence_level, home_odds, draw_odds, away_odds, created_at, updated_at
	FROM predictions WHERE match_id = $1 ORDER BY market
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	var out []models.Prediction
	for rows.Next() {
		var (
			p                models.Prediction
			confidence       string
			home, draw, away sql.NullFloat64
		)
		if err := rows.Scan(&p.ID, &p.MatchID, &p.Market, &p.Odds, &p.Probability, &p.Stake, &confidence,
			&home, &draw, &away, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		p.ConfidenceLevel = models.ConfidenceLevel(confidence)
		p.HomeOdds, p.DrawOdds, p.AwayOdds = floatPtr(home), floatPtr(draw), floatPtr(away)
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (*models.Match, error) {
	var (
		m                    models.Match
		status               string
		matchDate            sql.NullTime
		homeScore, awayScore sql.NullInt64
	)
	if err := row.Scan(&m.ID, &m.ExternalID, &m.HomeTeam, &m.AwayTeam, &m.League, &matchDate, &m.MatchTime,
		&status, &homeScore, &awayScore, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Status = models.MatchStatus(status)
	if matchDate.Valid {
		m.MatchDate = matchDate.Time
	}
	m.HomeScore, m.AwayScore = intPtr(homeScore), intPtr(awayScore)
	return &m, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/smartbet/internal/pkg/models"
)

// BetSettlement is the resolution of one pending bet.
type BetSettlement struct {
	BetID      int64
	Status     models.BetStatus
	ProfitLoss decimal.Decimal
}

// MatchSettlement finishes a match and resolves its bets in one transaction.
type MatchSettlement struct {
	MatchID   int64
	HomeScore int
	AwayScore int
	Bets      []BetSettlement
	SettledAt time.Time
}

const betColumns = `id, prediction_id, match_id, amount, odds_taken, market, selection, status, profit_loss, placed_at, settled_at`

// CreateBet records a new PENDING bet.
func (s *SQLStore) CreateBet(ctx context.Context, b *models.Bet) (int64, error) {
	if b.PlacedAt.IsZero() {
		b.PlacedAt = s.timestamp()
	}
	b.Status = models.BetPending

	var id int64
	err := s.db.QueryRowContext(ctx, `
	INSERT INTO bets (prediction_id, match_id, amount, odds_taken, market, selection, status, placed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id
	`, b.PredictionID, b.MatchID, b.Amount, b.OddsTaken, b.Market, b.Selection, string(b.Status), b.PlacedAt.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create bet: %w", err)
	}
	b.ID = id
	return id, nil
}

// GetBet returns nil when the bet does not exist.
func (s *SQLStore) GetBet(ctx context.Context, id int64) (*models.Bet, error) {
	b, err := scanBet(s.db.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %d: %w", id, err)
	}
	return b, nil
}

// PendingBets returns the PENDING bets on a match.
func (s *SQLStore) PendingBets(ctx context.Context, matchID int64) ([]models.Bet, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+betColumns+` FROM bets
	WHERE match_id = $1 AND status = $2
	ORDER BY id
	`, matchID, string(models.BetPending))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending bets: %w", err)
	}
	defer rows.Close()

	var out []models.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountPendingBets(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bets WHERE status = $1`, string(models.BetPending)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending bets: %w", err)
	}
	return n, nil
}

// MatchesWithPendingBets returns up to limit SCHEDULED matches that have at
// least one PENDING bet.
func (s *SQLStore) MatchesWithPendingBets(ctx context.Context, limit int) ([]models.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+prefixed("m.", matchColumns)+`
	FROM matches m
	WHERE m.status = $1
	  AND EXISTS (SELECT 1 FROM bets b WHERE b.match_id = m.id AND b.status = $2)
	ORDER BY m.id
	LIMIT $3
	`, string(models.MatchScheduled), string(models.BetPending), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches with pending bets: %w", err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// FindScheduledMatch returns the first SCHEDULED match whose stored team names
// contain the given names, case-insensitively, or nil.
func (s *SQLStore) FindScheduledMatch(ctx context.Context, homeTeam, awayTeam string) (*models.Match, error) {
	home, away := strings.TrimSpace(homeTeam), strings.TrimSpace(awayTeam)
	if home == "" || away == "" {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, `
	SELECT `+matchColumns+`
	FROM matches
	WHERE status = $1
	  AND LOWER(home_team) LIKE $2 ESCAPE '\'
	  AND LOWER(away_team) LIKE $3 ESCAPE '\'
	ORDER BY id
	LIMIT 1
	`, string(models.MatchScheduled), containsPattern(home), containsPattern(away))
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find match %s vs %s: %w", home, away, err)
	}
	return m, nil
}

// SettleMatch marks the match FINISHED with its score and applies every bet
// resolution atomically. It returns how many bets changed state.
func (s *SQLStore) SettleMatch(ctx context.Context, ms MatchSettlement) (int, error) {
	settledAt := ms.SettledAt.UTC()
	if ms.SettledAt.IsZero() {
		settledAt = s.timestamp()
	}

	settled := 0
	err := s.inTx(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `
		UPDATE matches
		SET status = $1, home_score = $2, away_score = $3, updated_at = $4
		WHERE id = $5 AND status = $6
		`, string(models.MatchFinished), ms.HomeScore, ms.AwayScore, settledAt, ms.MatchID, string(models.MatchScheduled))
		if err != nil {
			return fmt.Errorf("failed to finish match %d: %w", ms.MatchID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("match %d: %w", ms.MatchID, ErrMatchNotScheduled)
		}

		for _, b := range ms.Bets {
			res, err := q.ExecContext(ctx, `
			UPDATE bets
			SET status = $1, profit_loss = $2, settled_at = $3
			WHERE id = $4 AND status = $5
			`, string(b.Status), b.ProfitLoss, settledAt, b.BetID, string(models.BetPending))
			if err != nil {
				return fmt.Errorf("failed to settle bet %d: %w", b.BetID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			settled += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return settled, nil
}

func scanBet(row scanner) (*models.Bet, error) {
	var (
		b                     models.Bet
		predictionID, matchID sql.NullInt64
		status                string
		settledAt             sql.NullTime
	)
	if err := row.Scan(&b.ID, &predictionID, &matchID, &b.Amount, &b.OddsTaken, &b.Market, &b.Selection,
		&status, &b.ProfitLoss, &b.PlacedAt, &settledAt); err != nil {
		return nil, err
	}
	b.Status = models.BetStatus(status)
	if predictionID.Valid {
		b.PredictionID = &predictionID.Int64
	}
	if matchID.Valid {
		b.MatchID = &matchID.Int64
	}
	if settledAt.Valid {
		t := settledAt.Time
		b.SettledAt = &t
	}
	return &b, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = prefix + p
	}
	return strings.Join(parts, ", ")
}

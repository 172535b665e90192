package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus is the lifecycle state of a fixture.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "SCHEDULED"
	MatchLive      MatchStatus = "LIVE"
	MatchFinished  MatchStatus = "FINISHED"
)

// BetStatus is the settlement state of a wager.
type BetStatus string

const (
	BetPending BetStatus = "PENDING"
	BetWon     BetStatus = "WON"
	BetLost    BetStatus = "LOST"
	BetVoid    BetStatus = "VOID"
)

// JobStatus is the state of a scraping run in the job ledger.
type JobStatus string

const (
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// ConfidenceLevel is the bucket derived from a prediction probability.
type ConfidenceLevel string

const (
	ConfidenceExcellent ConfidenceLevel = "EXCELLENT"
	ConfidenceHigh      ConfidenceLevel = "HIGH"
	ConfidenceGood      ConfidenceLevel = "GOOD"
	ConfidenceModerate  ConfidenceLevel = "MODERATE"
	ConfidenceLow       ConfidenceLevel = "LOW"
	ConfidenceVeryLow   ConfidenceLevel = "VERY_LOW"
)

// Match is a single fixture, keyed externally by ExternalID.
type Match struct {
	ID         int64       `json:"id"`
	ExternalID string      `json:"externalId"`
	HomeTeam   string      `json:"homeTeam"`
	AwayTeam   string      `json:"awayTeam"`
	League     string      `json:"league"`
	MatchDate  time.Time   `json:"matchDate"`
	MatchTime  string      `json:"matchTime,omitempty"` // "HH:MM" when the source shows one
	Status     MatchStatus `json:"status"`
	HomeScore  *int        `json:"homeScore,omitempty"`
	AwayScore  *int        `json:"awayScore,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Prediction is a market-level forecast for a match. One per (MatchID, Market).
type Prediction struct {
	ID              int64           `json:"id"`
	MatchID         int64           `json:"matchId"`
	Market          string          `json:"market"`
	Odds            float64         `json:"odds"`
	Probability     float64         `json:"probability"` // percent, 0..100
	Stake           int             `json:"stake"`       // 1..10
	ConfidenceLevel ConfidenceLevel `json:"confidenceLevel"`
	HomeOdds        *float64        `json:"homeOdds,omitempty"`
	DrawOdds        *float64        `json:"drawOdds,omitempty"`
	AwayOdds        *float64        `json:"awayOdds,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Bet is a wager placed against a prediction. Money fields are fixed-point.
type Bet struct {
	ID           int64               `json:"id"`
	PredictionID *int64              `json:"predictionId,omitempty"`
	MatchID      *int64              `json:"matchId,omitempty"`
	Amount       decimal.Decimal     `json:"amount"`
	OddsTaken    decimal.Decimal     `json:"oddsTaken"`
	Market       string              `json:"market"`
	Selection    string              `json:"selection"`
	Status       BetStatus           `json:"status"`
	ProfitLoss   decimal.NullDecimal `json:"profitLoss"`
	PlacedAt     time.Time           `json:"placedAt"`
	SettledAt    *time.Time          `json:"settledAt,omitempty"`
}

// ScrapingJob is one row of the job ledger.
type ScrapingJob struct {
	ID               int64      `json:"id"`
	Source           string     `json:"source"`
	Status           JobStatus  `json:"status"`
	MatchesFound     int        `json:"matchesFound"`
	PredictionsFound int        `json:"predictionsFound"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
	StartedAt        time.Time  `json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

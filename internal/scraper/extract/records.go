package extract

import (
	"time"

	"github.com/Vodeneev/smartbet/internal/pkg/models"
)

// PredictionRecord is one fixture plus a market forecast read from a listing page.
type PredictionRecord struct {
	ExternalID      string                 `json:"externalId"`
	HomeTeam        string                 `json:"homeTeam"`
	AwayTeam        string                 `json:"awayTeam"`
	League          string                 `json:"league"`
	MatchDate       time.Time              `json:"matchDate"`
	MatchTime       string                 `json:"matchTime,omitempty"`
	Market          string                 `json:"market"`
	Odds            float64                `json:"odds"`
	Probability     float64                `json:"probability"`
	Stake           int                    `json:"stake"`
	ConfidenceLevel models.ConfidenceLevel `json:"confidenceLevel"`
	HomeOdds        *float64               `json:"homeOdds,omitempty"`
	DrawOdds        *float64               `json:"drawOdds,omitempty"`
	AwayOdds        *float64               `json:"awayOdds,omitempty"`
}

// ResultRecord is one fixture outcome read from a results page.
type ResultRecord struct {
	ExternalID string `json:"externalId"`
	HomeTeam   string `json:"homeTeam"`
	AwayTeam   string `json:"awayTeam"`
	HomeScore  int    `json:"homeScore"`
	AwayScore  int    `json:"awayScore"`
	Status     string `json:"status"`
	Finished   bool   `json:"finished"`
}

func predictionKey(r PredictionRecord) string { return r.ExternalID + "|" + r.Market }

func resultKey(r ResultRecord) string { return r.ExternalID }

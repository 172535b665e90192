package extract

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/Vodeneev/smartbet/internal/pkg/models"
)

const (
	// GenericMarket is used when a row carries no recognizable market.
	GenericMarket = "1X2"
	// StubStake is assigned to records recovered by text-pattern fallback.
	StubStake = 5

	maxMarketLen  = 50
	externalIDLen = 16
	resultIDLen   = 12
	resultPrefix  = "sofascore_"
)

// StakeFromProbability maps a probability percentage onto the stake scale (2..10).
func StakeFromProbability(p float64) int {
	switch {
	case p >= 85:
		return 10
	case p >= 75:
		return 8
	case p >= 65:
		return 6
	case p >= 55:
		return 4
	case p >= 45:
		return 3
	default:
		return 2
	}
}

// ConfidenceFromProbability buckets a probability percentage. The thresholds
// match StakeFromProbability.
func ConfidenceFromProbability(p float64) models.ConfidenceLevel {
	switch {
	case p >= 85:
		return models.ConfidenceExcellent
	case p >= 75:
		return models.ConfidenceHigh
	case p >= 65:
		return models.ConfidenceGood
	case p >= 55:
		return models.ConfidenceModerate
	case p >= 45:
		return models.ConfidenceLow
	default:
		return models.ConfidenceVeryLow
	}
}

// NormalizeMarket maps free-form market text onto the canonical vocabulary.
// Unrecognized text is passed through, trimmed and capped at 50 characters.
func NormalizeMarket(raw string) string {
	text := strings.TrimSpace(raw)
	m := strings.ToLower(text)

	switch {
	case m == "":
		return GenericMarket
	case strings.Contains(m, "btts") || strings.Contains(m, "both"):
		return "BTTS"
	case strings.Contains(m, "over") && strings.Contains(m, "2.5"):
		return "Over 2.5"
	case strings.Contains(m, "under") && strings.Contains(m, "2.5"):
		return "Under 2.5"
	case strings.Contains(m, "over") && strings.Contains(m, "1.5"):
		return "Over 1.5"
	case strings.Contains(m, "under") && strings.Contains(m, "1.5"):
		return "Under 1.5"
	case strings.Contains(m, "home") || m == "1":
		return "Home"
	case strings.Contains(m, "away") || m == "2":
		return "Away"
	case strings.Contains(m, "draw") || m == "x":
		return "Draw"
	case strings.Contains(m, "1x2") || strings.Contains(m, "result"):
		return GenericMarket
	}

	if utf8.RuneCountInString(text) > maxMarketLen {
		text = string([]rune(text)[:maxMarketLen])
	}
	return text
}

// ExternalID derives the stable identity of a fixture from the raw text it was
// scraped from. The same inputs always produce the same 16 hex characters.
func ExternalID(parts ...string) string {
	return shortHash(strings.Join(parts, ""), externalIDLen)
}

// ResultID derives the identity of a scraped result from its team names.
func ResultID(home, away string) string {
	return resultPrefix + shortHash(strings.ToLower(home)+strings.ToLower(away), resultIDLen)
}

func shortHash(s string, n int) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:n]
}

func clampStake(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

package settlement

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/smartbet/internal/pkg/models"
	"github.com/Vodeneev/smartbet/internal/pkg/storage"
)

var one = decimal.NewFromInt(1)

// Decide resolves the pending bets of a finished match.
//
// Only a home win is recognized: a bet wins when the home side won, its market
// is one of homeWinMarkets and its selection names the home team. Bets that do
// not qualify stay pending if any bet won. If none won, every bet is lost.
// Draws and away wins therefore settle everything as lost.
func Decide(homeTeam string, homeScore, awayScore int, bets []models.Bet, homeWinMarkets []string) []storage.BetSettlement {
	var won []storage.BetSettlement
	if homeScore > awayScore {
		for _, b := range bets {
			if !isHomeWinMarket(b.Market, homeWinMarkets) || !namesTeam(b.Selection, homeTeam) {
				continue
			}
			won = append(won, storage.BetSettlement{
				BetID:      b.ID,
				Status:     models.BetWon,
				ProfitLoss: b.Amount.Mul(b.OddsTaken.Sub(one)).Round(2),
			})
		}
	}
	if len(won) > 0 {
		return won
	}

	lost := make([]storage.BetSettlement, 0, len(bets))
	for _, b := range bets {
		lost = append(lost, storage.BetSettlement{
			BetID:      b.ID,
			Status:     models.BetLost,
			ProfitLoss: b.Amount.Neg().Round(2),
		})
	}
	return lost
}

func isHomeWinMarket(market string, markets []string) bool {
	for _, m := range markets {
		if strings.EqualFold(strings.TrimSpace(market), m) {
			return true
		}
	}
	return false
}

// namesTeam reports whether a bet selection and a stored team name contain
// one another, ignoring case.
func namesTeam(selection, team string) bool {
	sel := strings.ToLower(strings.TrimSpace(selection))
	t := strings.ToLower(strings.TrimSpace(team))
	if sel == "" || t == "" {
		return false
	}
	return strings.Contains(t, sel) || strings.Contains(sel, t)
}

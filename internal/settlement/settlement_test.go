package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/smartbet/internal/pkg/config"
	"github.com/Vodeneev/smartbet/internal/pkg/models"
	"github.com/Vodeneev/smartbet/internal/pkg/storage"
	"github.com/Vodeneev/smartbet/internal/scraper/extract"
)

var homeWin = []string{"Home", "1X2", "HomeWin"}

func bet(id int64, market, selection, amount, odds string) models.Bet {
	return models.Bet{
		ID:        id,
		Market:    market,
		Selection: selection,
		Amount:    decimal.RequireFromString(amount),
		OddsTaken: decimal.RequireFromString(odds),
		Status:    models.BetPending,
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		home      string
		homeScore int
		awayScore int
		bets      []models.Bet
		want      map[int64]models.BetStatus
		profit    map[int64]string
	}{
		{
			name:      "home win pays the home selection",
			home:      "Arsenal",
			homeScore: 2,
			awayScore: 1,
			bets:      []models.Bet{bet(1, "Home", "Arsenal", "10", "2.5")},
			want:      map[int64]models.BetStatus{1: models.BetWon},
			profit:    map[int64]string{1: "15.00"},
		},
		{
			name:      "no qualifying bet loses everything",
			home:      "Arsenal",
			homeScore: 2,
			awayScore: 1,
			bets:      []models.Bet{bet(1, "Home", "Chelsea", "10", "2.5"), bet(2, "BTTS", "Yes", "4.50", "1.9")},
			want:      map[int64]models.BetStatus{1: models.BetLost, 2: models.BetLost},
			profit:    map[int64]string{1: "-10.00", 2: "-4.50"},
		},
		{
			name:      "winner found leaves others untouched",
			home:      "Arsenal FC",
			homeScore: 1,
			awayScore: 0,
			bets:      []models.Bet{bet(1, "1X2", "arsenal", "20", "1.75"), bet(2, "Over 2.5", "Over", "5", "2")},
			want:      map[int64]models.BetStatus{1: models.BetWon},
			profit:    map[int64]string{1: "15.00"},
		},
		{
			name:      "draw settles everything as lost",
			home:      "Arsenal",
			homeScore: 1,
			awayScore: 1,
			bets:      []models.Bet{bet(1, "Home", "Arsenal", "10", "2.5")},
			want:      map[int64]models.BetStatus{1: models.BetLost},
			profit:    map[int64]string{1: "-10.00"},
		},
		{
			name:      "away win settles everything as lost",
			home:      "Arsenal",
			homeScore: 0,
			awayScore: 3,
			bets:      []models.Bet{bet(1, "Away", "Chelsea", "10", "3.1")},
			want:      map[int64]models.BetStatus{1: models.BetLost},
			profit:    map[int64]string{1: "-10.00"},
		},
		{
			name:      "empty selection never wins",
			home:      "Arsenal",
			homeScore: 3,
			awayScore: 0,
			bets:      []models.Bet{bet(1, "Home", "", "10", "2.5")},
			want:      map[int64]models.BetStatus{1: models.BetLost},
			profit:    map[int64]string{1: "-10.00"},
		},
		{
			name:      "profit rounds to cents",
			home:      "Arsenal",
			homeScore: 2,
			awayScore: 0,
			bets:      []models.Bet{bet(1, "HomeWin", "Arsenal", "3.33", "1.333")},
			want:      map[int64]models.BetStatus{1: models.BetWon},
			profit:    map[int64]string{1: "1.11"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.home, tt.homeScore, tt.awayScore, tt.bets, homeWin)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d decisions, want %d: %+v", len(got), len(tt.want), got)
			}
			for _, d := range got {
				if d.Status != tt.want[d.BetID] {
					t.Errorf("bet %d status = %s, want %s", d.BetID, d.Status, tt.want[d.BetID])
				}
				if want := decimal.RequireFromString(tt.profit[d.BetID]); !d.ProfitLoss.Equal(want) {
					t.Errorf("bet %d profit = %s, want %s", d.BetID, d.ProfitLoss, want)
				}
			}
		})
	}
}

type fakeResults struct {
	results []extract.ResultRecord
	err     error
	calls   int
}

func (f *fakeResults) ScrapeResults(context.Context, string) ([]extract.ResultRecord, error) {
	f.calls++
	return f.results, f.err
}

func newStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	s, err := storage.Open(context.Background(), &config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *storage.SQLStore, externalID, home, away string, bets ...models.Bet) []int64 {
	t.Helper()
	ctx := context.Background()
	res := s.SavePredictions(ctx, []storage.PredictionInput{{
		Match: models.Match{ExternalID: externalID, HomeTeam: home, AwayTeam: away, MatchDate: time.Now()},
		Prediction: models.Prediction{
			Market: "Home", Probability: 60, Stake: 4, ConfidenceLevel: models.ConfidenceModerate,
		},
	}})
	if res.Saved != 1 {
		t.Fatalf("seed: %+v", res.Errors)
	}
	m, _ := s.GetMatchByExternalID(ctx, externalID)

	var ids []int64
	for _, b := range bets {
		b.MatchID = &m.ID
		id, err := s.CreateBet(ctx, &b)
		if err != nil {
			t.Fatalf("CreateBet: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func finished(home, away string, hs, as int) extract.ResultRecord {
	return extract.ResultRecord{
		ExternalID: extract.ResultID(home, away),
		HomeTeam:   home,
		AwayTeam:   away,
		HomeScore:  hs,
		AwayScore:  as,
		Status:     "FT",
		Finished:   true,
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	wonIDs := seed(t, s, "m1", "Arsenal", "Chelsea", bet(0, "Home", "Arsenal", "10", "2.5"))
	lostIDs := seed(t, s, "m2", "Leeds United", "Fulham", bet(0, "Home", "Fulham", "10", "2.0"))
	openIDs := seed(t, s, "m3", "Real Madrid", "Barcelona", bet(0, "Home", "Real Madrid", "10", "1.8"))

	results := &fakeResults{results: []extract.ResultRecord{
		finished("arsenal", "chelsea", 2, 1),
		finished("Leeds", "Fulham", 1, 0),
		{HomeTeam: "Real Madrid", AwayTeam: "Barcelona", HomeScore: 1, AwayScore: 0, Status: "67'"},
		finished("Napoli", "Roma", 0, 0),
	}}

	report, err := NewEngine(s, results, Config{}).Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.Pending != 3 || report.Verified != 2 || report.BetsWon != 1 || report.BetsLost != 1 || report.Unmatched != 1 {
		t.Errorf("report = %+v", report)
	}

	won, _ := s.GetBet(ctx, wonIDs[0])
	if won.Status != models.BetWon || !won.ProfitLoss.Decimal.Equal(decimal.NewFromInt(15)) || won.SettledAt == nil {
		t.Errorf("won bet = %+v", won)
	}
	lost, _ := s.GetBet(ctx, lostIDs[0])
	if lost.Status != models.BetLost || !lost.ProfitLoss.Decimal.Equal(decimal.NewFromInt(-10)) {
		t.Errorf("lost bet = %+v", lost)
	}
	open, _ := s.GetBet(ctx, openIDs[0])
	if open.Status != models.BetPending || open.ProfitLoss.Valid || open.SettledAt != nil {
		t.Errorf("unfinished match bet changed: %+v", open)
	}
	m3, _ := s.GetMatchByExternalID(ctx, "m3")
	if m3.Status != models.MatchScheduled {
		t.Errorf("unfinished match status = %s", m3.Status)
	}
	m1, _ := s.GetMatchByExternalID(ctx, "m1")
	if m1.Status != models.MatchFinished || *m1.HomeScore != 2 || *m1.AwayScore != 1 {
		t.Errorf("settled match = %+v", m1)
	}

	// a second pass finds nothing left to settle for m1 and m2
	report, err = NewEngine(s, results, Config{}).Reconcile(ctx)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if report.Pending != 1 || report.Verified != 0 {
		t.Errorf("second report = %+v", report)
	}
}

func TestReconcile_ScrapeFailure(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ids := seed(t, s, "m1", "Arsenal", "Chelsea", bet(0, "Home", "Arsenal", "10", "2.5"))

	scrapeErr := errors.New("browser session unavailable")
	report, err := NewEngine(s, &fakeResults{err: scrapeErr}, Config{}).Reconcile(ctx)
	if !errors.Is(err, scrapeErr) {
		t.Fatalf("Reconcile error = %v, want scrape error", err)
	}
	if report.Verified != 0 || report.Pending != 1 {
		t.Errorf("report = %+v, want verified 0 pending 1", report)
	}
	b, _ := s.GetBet(ctx, ids[0])
	if b.Status != models.BetPending {
		t.Errorf("bet settled despite scrape failure: %s", b.Status)
	}
}

func TestReconcile_NothingPendingSkipsScrape(t *testing.T) {
	results := &fakeResults{}
	report, err := NewEngine(newStore(t), results, Config{}).Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.Pending != 0 || results.calls != 0 {
		t.Errorf("report = %+v, scrape calls = %d", report, results.calls)
	}
}

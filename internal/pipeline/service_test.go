package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/smartbet/internal/pkg/browser"
	"github.com/Vodeneev/smartbet/internal/pkg/config"
	"github.com/Vodeneev/smartbet/internal/pkg/ledger"
	"github.com/Vodeneev/smartbet/internal/pkg/models"
	"github.com/Vodeneev/smartbet/internal/pkg/performance"
	"github.com/Vodeneev/smartbet/internal/pkg/storage"
	"github.com/Vodeneev/smartbet/internal/scraper/extract"
	"github.com/Vodeneev/smartbet/internal/scraper/gate"
	"github.com/Vodeneev/smartbet/internal/scraper/sources"
	"github.com/Vodeneev/smartbet/internal/settlement"
)

const (
	predictionsURL = "https://predictions.test/today"
	resultsURL     = "https://results.test/"
)

const predictionsHTML = `<html><body><table>
<tr class="match-row">
  <td class="teams">Arsenal vs Chelsea</td>
  <td class="date">19/10/2026 20:45</td>
  <td class="league">Premier League</td>
  <td class="odds"><span class="odd">2.10</span><span class="odd">3.40</span><span class="odd">3.50</span></td>
  <td class="prob">72%</td>
  <td class="tip">Home Win</td>
</tr>
<tr class="match-row">
  <td class="teams">Leeds United vs Fulham</td>
  <td class="date">20/10/2026 15:00</td>
  <td class="prob">58%</td>
  <td class="tip">Both Teams To Score</td>
</tr>
</table></body></html>`

const resultsHTML = `<html><body>
<div class="event-row"><span class="team-home">Arsenal</span><span class="team-away">Chelsea</span><span class="score-home">2</span><span class="score-away">0</span><span class="status">FT</span></div>
<div class="event-row"><span class="team-home">Leeds United</span><span class="team-away">Fulham</span><span class="score-home">0</span><span class="score-away">0</span><span class="status">60'</span></div>
</body></html>`

var testResultSelectors = extract.ResultSelectors{
	Containers: []string{`[class*="event"]`},
	HomeTeam:   []string{`[class*="team-home"]`},
	AwayTeam:   []string{`[class*="team-away"]`},
	HomeScore:  []string{`[class*="score-home"]`},
	AwayScore:  []string{`[class*="score-away"]`},
	Status:     []string{`[class*="status"]`},
}

type fakePage struct {
	src       *fakePages
	html      string
	challenge bool
}

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.src.mu.Lock()
	defer p.src.mu.Unlock()
	p.src.visited = append(p.src.visited, url)
	html, ok := p.src.pages[url]
	if !ok {
		return errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	p.html = html
	return nil
}

func (p *fakePage) WaitIdle(context.Context, time.Duration) error { return nil }

func (p *fakePage) Exists(context.Context, string) (bool, error) { return p.challenge, nil }

func (p *fakePage) HTML(context.Context) (string, error) { return p.html, nil }

func (p *fakePage) Scroll(context.Context) error {
	p.src.mu.Lock()
	p.src.scrolls++
	p.src.mu.Unlock()
	return nil
}

func (p *fakePage) Close() error { return nil }

type fakePages struct {
	mu        sync.Mutex
	pages     map[string]string
	challenge bool
	visited   []string
	scrolls   int
}

func (f *fakePages) NewPage(context.Context) (browser.Page, error) {
	return &fakePage{src: f, challenge: f.challenge}, nil
}

func (f *fakePages) Ready() bool { return true }

func (f *fakePages) Release() error { return nil }

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return nil
}

type fixture struct {
	svc      *Service
	store    *storage.SQLStore
	pages    *fakePages
	notifier *recordingNotifier
	tracker  *performance.Tracker
	ledger   *ledger.Ledger
}

func newFixture(t *testing.T, pages map[string]string) *fixture {
	t.Helper()
	store, err := storage.Open(context.Background(), &config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	footy, ok := sources.Lookup("footystats")
	if !ok {
		t.Fatal("footystats profile missing")
	}
	clock := func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }

	f := &fixture{
		store:    store,
		pages:    &fakePages{pages: pages},
		notifier: &recordingNotifier{},
		tracker:  performance.NewTracker(),
		ledger:   ledger.New(store, nil),
	}
	f.svc = New(Deps{
		Pages:  f.pages,
		Gate:   gate.NewHandler(gate.Config{Ceiling: 20 * time.Millisecond, PollInterval: 5 * time.Millisecond}),
		Store:  store,
		Ledger: f.ledger,
		Predictions: PredictionSite{
			Site:        Site{Label: "FootyStats", URL: predictionsURL},
			Engine:      extract.NewPredictionEngine(footy.Predictions, extract.WithClock(clock)),
			ScrollCount: 3,
		},
		Results: ResultSite{
			Site:   Site{Label: "SofaScore", URL: resultsURL},
			Engine: extract.NewResultEngine(testResultSelectors),
		},
		Notifier: f.notifier,
		Tracker:  f.tracker,
	})
	return f
}

func TestRunAcquisition_StoresPredictions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{predictionsURL: predictionsHTML})

	res := f.svc.RunAcquisition(ctx)
	if !res.Success || res.Error != "" {
		t.Fatalf("RunAcquisition = %+v", res)
	}
	if res.MatchesFound != 2 || res.PredictionsCount != 2 || res.Errors != 0 {
		t.Errorf("counts = %+v", res)
	}
	if f.pages.scrolls != 3 {
		t.Errorf("scrolls = %d, want 3", f.pages.scrolls)
	}

	n, err := f.store.CountMatches(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountMatches = %d, %v", n, err)
	}

	job, err := f.store.LastJob(ctx, "FootyStats")
	if err != nil || job == nil {
		t.Fatalf("LastJob = %v, %v", job, err)
	}
	if job.ID != res.JobID || job.Status != models.JobCompleted || job.MatchesFound != 2 || job.PredictionsFound != 2 {
		t.Errorf("job = %+v", job)
	}

	// A second run refreshes the same rows.
	if again := f.svc.RunAcquisition(ctx); !again.Success {
		t.Fatalf("second run = %+v", again)
	}
	if n, _ := f.store.CountMatches(ctx); n != 2 {
		t.Errorf("matches after re-scrape = %d, want 2", n)
	}

	m := f.tracker.GetMetrics()
	if m.Overall.TotalRuns != 2 || m.Sources[0].Source != "FootyStats" {
		t.Errorf("metrics = %+v", m.Overall)
	}
	if len(f.notifier.texts) != 0 {
		t.Errorf("unexpected notifications: %v", f.notifier.texts)
	}
}

func TestRunAcquisition_Failures(t *testing.T) {
	tests := []struct {
		name      string
		pages     map[string]string
		challenge bool
		wantErr   string
	}{
		{
			name:    "nothing extracted",
			pages:   map[string]string{predictionsURL: "<html><body><p>No fixtures today</p></body></html>"},
			wantErr: "no predictions extracted",
		},
		{
			name:    "navigation error",
			pages:   map[string]string{},
			wantErr: "ERR_NAME_NOT_RESOLVED",
		},
		{
			name:      "denied after challenge",
			pages:     map[string]string{predictionsURL: "<html><body><h1>Access Denied</h1></body></html>"},
			challenge: true,
			wantErr:   "access denied",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, tt.pages)
			f.pages.challenge = tt.challenge

			res := f.svc.RunAcquisition(ctx)
			if res.Success {
				t.Fatalf("RunAcquisition succeeded: %+v", res)
			}
			if !strings.Contains(res.Error, tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", res.Error, tt.wantErr)
			}

			job, err := f.store.LastJob(ctx, "FootyStats")
			if err != nil || job == nil {
				t.Fatalf("LastJob = %v, %v", job, err)
			}
			if job.Status != models.JobFailed || job.ErrorMessage != res.Error {
				t.Errorf("job = %+v", job)
			}
			if len(f.notifier.texts) != 1 || !strings.Contains(f.notifier.texts[0], "FootyStats") {
				t.Errorf("notifications = %v", f.notifier.texts)
			}
		})
	}
}

func TestRunAcquisition_ChallengeTimeoutContinues(t *testing.T) {
	f := newFixture(t, map[string]string{predictionsURL: predictionsHTML})
	f.pages.challenge = true

	res := f.svc.RunAcquisition(context.Background())
	if !res.Success || res.PredictionsCount != 2 {
		t.Errorf("RunAcquisition = %+v, want success despite uncleared challenge", res)
	}
}

func TestRunAcquisition_AlreadyRunning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{predictionsURL: predictionsHTML})

	id, err := f.ledger.Begin(ctx, "FootyStats")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	res := f.svc.RunAcquisition(ctx)
	if res.Success || !res.Busy || res.Error != ledger.ErrRunInProgress.Error() {
		t.Errorf("RunAcquisition = %+v, want run in progress", res)
	}
	if len(f.pages.visited) != 0 {
		t.Errorf("pages opened while another run held the source: %v", f.pages.visited)
	}

	if err := f.ledger.Finish(ctx, id, ledger.Completed(0, 0)); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if res := f.svc.RunAcquisition(ctx); !res.Success {
		t.Errorf("RunAcquisition after finish = %+v", res)
	}
}

func TestRunVerification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{
		predictionsURL: predictionsHTML,
		resultsURL:     resultsHTML,
	})
	if res := f.svc.RunAcquisition(ctx); !res.Success {
		t.Fatalf("RunAcquisition = %+v", res)
	}

	arsenal := placeBet(t, f.store, "Arsenal", "Chelsea", "Home", "Arsenal", "10", "2.5")
	leeds := placeBet(t, f.store, "Leeds United", "Fulham", "Home", "Leeds", "10", "1.9")

	res := f.svc.RunVerification(ctx)
	if res.Error != "" {
		t.Fatalf("RunVerification = %+v", res)
	}
	want := settlement.Report{Verified: 1, Pending: 2, BetsWon: 1}
	if res.Report != want {
		t.Errorf("report = %+v, want %+v", res.Report, want)
	}

	won, _ := f.store.GetBet(ctx, arsenal)
	if won.Status != models.BetWon || !won.ProfitLoss.Decimal.Equal(decimal.RequireFromString("15")) {
		t.Errorf("arsenal bet = %s %v", won.Status, won.ProfitLoss)
	}
	open, _ := f.store.GetBet(ctx, leeds)
	if open.Status != models.BetPending {
		t.Errorf("leeds bet = %s, want PENDING while the match is in play", open.Status)
	}

	job, _ := f.store.LastJob(ctx, VerificationSource)
	if job == nil || job.Status != models.JobCompleted || job.MatchesFound != 1 || job.PredictionsFound != 1 {
		t.Errorf("verification job = %+v", job)
	}
	if len(f.notifier.texts) != 1 || !strings.Contains(f.notifier.texts[0], "Settled 1 of 2") {
		t.Errorf("notifications = %v", f.notifier.texts)
	}
}

func TestRunVerification_ScrapeFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{predictionsURL: predictionsHTML})
	f.svc.RunAcquisition(ctx)
	placeBet(t, f.store, "Arsenal", "Chelsea", "Home", "Arsenal", "10", "2.5")

	res := f.svc.RunVerification(ctx)
	if res.Error == "" || res.Pending != 1 {
		t.Fatalf("RunVerification = %+v, want scrape error with 1 pending", res)
	}
	job, _ := f.store.LastJob(ctx, VerificationSource)
	if job == nil || job.Status != models.JobFailed {
		t.Errorf("verification job = %+v", job)
	}
}

func TestRunResultScrape(t *testing.T) {
	f := newFixture(t, map[string]string{
		resultsURL + "premier-league": resultsHTML,
	})

	res := f.svc.RunResultScrape(context.Background(), "premier-league")
	if !res.Success || res.ResultsCount != 2 {
		t.Fatalf("RunResultScrape = %+v", res)
	}
	if !res.Results[0].Finished || res.Results[1].Finished {
		t.Errorf("finished flags = %v, %v", res.Results[0].Finished, res.Results[1].Finished)
	}

	miss := f.svc.RunResultScrape(context.Background(), "")
	if miss.Success || miss.Error == "" || miss.Results == nil {
		t.Errorf("RunResultScrape without page = %+v", miss)
	}
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{predictionsURL: predictionsHTML})

	st, err := f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.ScraperStatus != "IDLE" || st.LastRun != nil || !st.BrowserReady {
		t.Errorf("initial status = %+v", st)
	}

	f.svc.RunAcquisition(ctx)
	placeBet(t, f.store, "Arsenal", "Chelsea", "Home", "Arsenal", "10", "2.5")

	st, err = f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.ScraperStatus != string(models.JobCompleted) || !st.LastSuccess || st.LastRun == nil || st.PendingBets != 1 {
		t.Errorf("status = %+v", st)
	}
}

func placeBet(t *testing.T, s *storage.SQLStore, home, away, market, selection, amount, odds string) int64 {
	t.Helper()
	ctx := context.Background()
	m, err := s.FindScheduledMatch(ctx, home, away)
	if err != nil || m == nil {
		t.Fatalf("FindScheduledMatch(%q) = %v, %v", home, m, err)
	}
	id, err := s.CreateBet(ctx, &models.Bet{
		MatchID:   &m.ID,
		Amount:    decimal.RequireFromString(amount),
		OddsTaken: decimal.RequireFromString(odds),
		Market:    market,
		Selection: selection,
	})
	if err != nil {
		t.Fatalf("CreateBet: %v", err)
	}
	return id
}

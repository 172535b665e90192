package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Vodeneev/smartbet/internal/pipeline"
	"github.com/Vodeneev/smartbet/internal/pkg/performance"
	"github.com/Vodeneev/smartbet/internal/scraper/extract"
	"github.com/Vodeneev/smartbet/internal/settlement"
)

type stubPipeline struct {
	acquisition  pipeline.AcquisitionResult
	verification pipeline.VerificationResult
	statusErr    error
	league       string
	ctxErr       error
}

func (s *stubPipeline) RunAcquisition(ctx context.Context) pipeline.AcquisitionResult {
	s.ctxErr = ctx.Err()
	return s.acquisition
}

func (s *stubPipeline) RunVerification(context.Context) pipeline.VerificationResult {
	return s.verification
}

func (s *stubPipeline) RunResultScrape(_ context.Context, league string) pipeline.ResultScrapeResult {
	s.league = league
	return pipeline.ResultScrapeResult{
		Success:      true,
		ResultsCount: 1,
		Results:      []extract.ResultRecord{{HomeTeam: "Real Madrid", AwayTeam: "Barcelona", HomeScore: 2, AwayScore: 1, Finished: true}},
	}
}

func (s *stubPipeline) Status(context.Context) (pipeline.StatusReport, error) {
	if s.statusErr != nil {
		return pipeline.StatusReport{}, s.statusErr
	}
	return pipeline.StatusReport{ScraperStatus: "COMPLETED", Source: "FootyStats", PendingBets: 3}, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Liveness(t *testing.T) {
	h := NewRouter("scraper", &stubPipeline{}, performance.NewTracker(), nil)

	if rec := do(t, h, http.MethodGet, "/ping", ""); rec.Code != http.StatusOK || rec.Body.String() != "pong\n" {
		t.Errorf("/ping = %d %q", rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodGet, "/health", "")
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("/health body: %v", err)
	}
	if rec.Code != http.StatusOK || body["status"] != "ok" || body["service"] != "scraper" {
		t.Errorf("/health = %d %v", rec.Code, body)
	}

	if rec := do(t, h, http.MethodPost, "/ping", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /ping = %d, want 405", rec.Code)
	}
}

func TestRouter_Metrics(t *testing.T) {
	tracker := performance.NewTracker()
	tracker.RecordRun(performance.Run{Source: "FootyStats", Kind: "predictions", Total: time.Second, Records: 4})
	h := NewRouter("scraper", &stubPipeline{}, tracker, nil)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	var m performance.MetricsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("/metrics body: %v", err)
	}
	if m.Overall.TotalRuns != 1 || m.Overall.TotalRecords != 4 {
		t.Errorf("/metrics = %+v", m.Overall)
	}
}

func TestRouter_Status(t *testing.T) {
	p := &stubPipeline{}
	h := NewRouter("scraper", p, performance.NewTracker(), nil)

	rec := do(t, h, http.MethodGet, "/api/scrapers/status", "")
	var st pipeline.StatusReport
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("status body: %v", err)
	}
	if rec.Code != http.StatusOK || st.ScraperStatus != "COMPLETED" || st.PendingBets != 3 {
		t.Errorf("status = %d %+v", rec.Code, st)
	}

	p.statusErr = errors.New("database is closed")
	if rec := do(t, h, http.MethodGet, "/api/scrapers/status", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("status with store error = %d, want 500", rec.Code)
	}
}

func TestRouter_Trigger(t *testing.T) {
	tests := []struct {
		name     string
		result   pipeline.AcquisitionResult
		wantCode int
	}{
		{"success", pipeline.AcquisitionResult{Success: true, MatchesFound: 12, PredictionsCount: 12, JobID: 7}, http.StatusOK},
		{"failure", pipeline.AcquisitionResult{Error: "no predictions extracted", JobID: 8}, http.StatusBadGateway},
		{"busy", pipeline.AcquisitionResult{Error: "a run for this source is already in progress", Busy: true}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubPipeline{acquisition: tt.result}
			h := NewRouter("scraper", p, performance.NewTracker(), nil)

			rec := do(t, h, http.MethodPost, "/api/scrapers/trigger", "")
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var got pipeline.AcquisitionResult
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("body: %v", err)
			}
			if got != tt.result {
				t.Errorf("body = %+v, want %+v", got, tt.result)
			}
			if p.ctxErr != nil {
				t.Errorf("run context already done: %v", p.ctxErr)
			}
		})
	}
}

func TestRouter_ResultScrape(t *testing.T) {
	p := &stubPipeline{}
	h := NewRouter("scraper", p, performance.NewTracker(), nil)

	rec := do(t, h, http.MethodPost, "/api/scrapers/sofascore", `{"league":"laliga"}`)
	if rec.Code != http.StatusOK || p.league != "laliga" {
		t.Errorf("code = %d league = %q", rec.Code, p.league)
	}

	p.league = "unset"
	if rec := do(t, h, http.MethodPost, "/api/scrapers/sofascore", ""); rec.Code != http.StatusOK || p.league != "" {
		t.Errorf("empty body: code = %d league = %q", rec.Code, p.league)
	}

	if rec := do(t, h, http.MethodPost, "/api/scrapers/sofascore", `{"league":`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rec.Code)
	}
}

func TestRouter_VerifyResults(t *testing.T) {
	p := &stubPipeline{verification: pipeline.VerificationResult{Report: settlement.Report{Verified: 2, Pending: 5, BetsWon: 1, BetsLost: 2}}}
	h := NewRouter("scraper", p, performance.NewTracker(), nil)

	rec := do(t, h, http.MethodPost, "/api/scrapers/verify-results", "")
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if rec.Code != http.StatusOK || body["verified"] != float64(2) || body["pending"] != float64(5) {
		t.Errorf("verify = %d %v", rec.Code, body)
	}
}

func TestRouter_CORS(t *testing.T) {
	h := NewRouter("scraper", &stubPipeline{}, performance.NewTracker(), []string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodOptions, "/api/scrapers/trigger", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestAddrFor(t *testing.T) {
	if addr, err := AddrFor(8080); err != nil || addr != ":8080" {
		t.Errorf("AddrFor(8080) = %q, %v", addr, err)
	}
	if _, err := AddrFor(0); err == nil {
		t.Error("AddrFor(0) should fail")
	}
}

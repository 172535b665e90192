package performance

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Tracker accumulates timing and volume metrics for scraper runs, keyed by source.
type Tracker struct {
	mu sync.RWMutex

	sources map[string]*sourceStats
	recent  []Run
}

// Run describes one finished scraper run.
type Run struct {
	Source   string
	Kind     string // "predictions", "results" or "verification"
	Started  time.Time
	Navigate time.Duration
	Extract  time.Duration
	Store    time.Duration
	Total    time.Duration
	Records  int
	Saved    int
	Errors   int
	Strategy string
	Err      string
}

type sourceStats struct {
	runs      int
	failures  int
	records   int
	saved     int
	errors    int
	navigate  time.Duration
	extract   time.Duration
	store     time.Duration
	total     time.Duration
	lastRun   time.Time
	lastError string
}

const recentRuns = 20

var globalTracker = NewTracker()

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{sources: make(map[string]*sourceStats)}
}

// GetTracker returns the global performance tracker
func GetTracker() *Tracker {
	return globalTracker
}

// Reset resets all metrics
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sources = make(map[string]*sourceStats)
	t.recent = t.recent[:0]
}

// RecordRun records a complete scraper run
func (t *Tracker) RecordRun(r Run) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.sources[r.Source]
	if !ok {
		st = &sourceStats{}
		t.sources[r.Source] = st
	}
	st.runs++
	st.records += r.Records
	st.saved += r.Saved
	st.errors += r.Errors
	st.navigate += r.Navigate
	st.extract += r.Extract
	st.store += r.Store
	st.total += r.Total
	st.lastRun = r.Started
	if r.Err != "" {
		st.failures++
		st.lastError = r.Err
	}

	t.recent = append(t.recent, r)
	if len(t.recent) > recentRuns {
		t.recent = t.recent[len(t.recent)-recentRuns:]
	}
}

// PrintSummary logs the per-source averages.
func (t *Tracker) PrintSummary() {
	m := t.GetMetrics()
	if m.Overall.TotalRuns == 0 {
		slog.Info("No performance data collected yet")
		return
	}

	slog.Info("PERFORMANCE SUMMARY",
		"total_runs", m.Overall.TotalRuns,
		"failed_runs", m.Overall.FailedRuns,
		"total_records", m.Overall.TotalRecords,
		"total_saved", m.Overall.TotalSaved)
	for _, s := range m.Sources {
		slog.Info("Source statistics",
			"source", s.Source,
			"runs", s.Runs,
			"success_rate", s.SuccessRate,
			"avg_records", s.AvgRecords,
			"avg_navigate", s.AvgNavigate,
			"avg_extract", s.AvgExtract,
			"avg_store", s.AvgStore,
			"avg_total", s.AvgTotal)
	}
}

// MetricsResponse represents the JSON response structure for /metrics endpoint
type MetricsResponse struct {
	Overall struct {
		TotalRuns    int `json:"total_runs"`
		FailedRuns   int `json:"failed_runs"`
		TotalRecords int `json:"total_records"`
		TotalSaved   int `json:"total_saved"`
		TotalErrors  int `json:"total_errors"`
	} `json:"overall"`

	Sources []SourceMetrics `json:"sources"`

	Recent []RecentRun `json:"recent_runs"`
}

type SourceMetrics struct {
	Source      string    `json:"source"`
	Runs        int       `json:"runs"`
	SuccessRate float64   `json:"success_rate"`
	AvgRecords  float64   `json:"avg_records"`
	AvgNavigate string    `json:"avg_navigate"`
	AvgExtract  string    `json:"avg_extract"`
	AvgStore    string    `json:"avg_store"`
	AvgTotal    string    `json:"avg_total"`
	LastRun     time.Time `json:"last_run"`
	LastError   string    `json:"last_error,omitempty"`
}

type RecentRun struct {
	Source   string    `json:"source"`
	Kind     string    `json:"kind"`
	Started  time.Time `json:"started"`
	Duration string    `json:"duration"`
	Records  int       `json:"records"`
	Saved    int       `json:"saved"`
	Strategy string    `json:"strategy,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// GetMetrics returns structured metrics for JSON API
func (t *Tracker) GetMetrics() MetricsResponse {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var resp MetricsResponse
	resp.Sources = make([]SourceMetrics, 0, len(t.sources))

	for name, st := range t.sources {
		resp.Overall.TotalRuns += st.runs
		resp.Overall.FailedRuns += st.failures
		resp.Overall.TotalRecords += st.records
		resp.Overall.TotalSaved += st.saved
		resp.Overall.TotalErrors += st.errors

		n := time.Duration(st.runs)
		resp.Sources = append(resp.Sources, SourceMetrics{
			Source:      name,
			Runs:        st.runs,
			SuccessRate: float64(st.runs-st.failures) / float64(st.runs) * 100,
			AvgRecords:  float64(st.records) / float64(st.runs),
			AvgNavigate: (st.navigate / n).String(),
			AvgExtract:  (st.extract / n).String(),
			AvgStore:    (st.store / n).String(),
			AvgTotal:    (st.total / n).String(),
			LastRun:     st.lastRun,
			LastError:   st.lastError,
		})
	}
	sort.Slice(resp.Sources, func(i, j int) bool { return resp.Sources[i].Source < resp.Sources[j].Source })

	resp.Recent = make([]RecentRun, 0, len(t.recent))
	for i := len(t.recent) - 1; i >= 0; i-- {
		r := t.recent[i]
		resp.Recent = append(resp.Recent, RecentRun{
			Source:   r.Source,
			Kind:     r.Kind,
			Started:  r.Started,
			Duration: r.Total.String(),
			Records:  r.Records,
			Saved:    r.Saved,
			Strategy: r.Strategy,
			Error:    r.Err,
		})
	}

	return resp
}

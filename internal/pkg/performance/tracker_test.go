package performance

import (
	"testing"
	"time"
)

func TestTracker_GetMetrics(t *testing.T) {
	tr := NewTracker()
	start := time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)

	tr.RecordRun(Run{Source: "footystats", Kind: "predictions", Started: start, Total: 4 * time.Second, Navigate: 2 * time.Second, Records: 10, Saved: 9, Errors: 1, Strategy: "structured"})
	tr.RecordRun(Run{Source: "footystats", Kind: "predictions", Started: start.Add(time.Hour), Total: 2 * time.Second, Err: "access denied by site"})
	tr.RecordRun(Run{Source: "sofascore", Kind: "results", Started: start, Total: time.Second, Records: 3})

	m := tr.GetMetrics()
	if m.Overall.TotalRuns != 3 || m.Overall.FailedRuns != 1 {
		t.Fatalf("overall = %+v", m.Overall)
	}
	if m.Overall.TotalRecords != 13 || m.Overall.TotalSaved != 9 || m.Overall.TotalErrors != 1 {
		t.Errorf("overall counts = %+v", m.Overall)
	}
	if len(m.Sources) != 2 || m.Sources[0].Source != "footystats" {
		t.Fatalf("sources = %+v", m.Sources)
	}

	fs := m.Sources[0]
	if fs.SuccessRate != 50 {
		t.Errorf("success rate = %v, want 50", fs.SuccessRate)
	}
	if fs.AvgTotal != "3s" || fs.AvgNavigate != "1s" {
		t.Errorf("averages = %s / %s", fs.AvgTotal, fs.AvgNavigate)
	}
	if fs.LastError != "access denied by site" || !fs.LastRun.Equal(start.Add(time.Hour)) {
		t.Errorf("last = %v %q", fs.LastRun, fs.LastError)
	}

	if len(m.Recent) != 3 || m.Recent[0].Source != "sofascore" {
		t.Errorf("recent should be newest first, got %+v", m.Recent)
	}
}

func TestTracker_RecentIsBounded(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < recentRuns+5; i++ {
		tr.RecordRun(Run{Source: "footystats", Records: i})
	}
	m := tr.GetMetrics()
	if len(m.Recent) != recentRuns {
		t.Fatalf("recent = %d, want %d", len(m.Recent), recentRuns)
	}
	if m.Recent[0].Records != recentRuns+4 {
		t.Errorf("newest records = %d", m.Recent[0].Records)
	}

	tr.Reset()
	if got := tr.GetMetrics(); got.Overall.TotalRuns != 0 || len(got.Recent) != 0 {
		t.Errorf("after Reset = %+v", got)
	}
}

package handlers

import (
	"net/http"

	"github.com/Vodeneev/smartbet/internal/pkg/performance"
)

// HandleMetrics serves the run metrics collected by tracker.
func HandleMetrics(tracker *performance.Tracker) http.HandlerFunc {
	if tracker == nil {
		tracker = performance.GetTracker()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tracker.GetMetrics())
	}
}

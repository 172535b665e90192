// Package handlers implements the HTTP handlers of the health server.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Vodeneev/smartbet/internal/pipeline"
)

// runTimeout bounds a run started over HTTP. The run does not end when the
// client disconnects.
const runTimeout = 10 * time.Minute

// Pipeline is the trigger boundary the handlers call.
type Pipeline interface {
	RunAcquisition(ctx context.Context) pipeline.AcquisitionResult
	RunVerification(ctx context.Context) pipeline.VerificationResult
	RunResultScrape(ctx context.Context, league string) pipeline.ResultScrapeResult
	Status(ctx context.Context) (pipeline.StatusReport, error)
}

type Scrapers struct {
	p Pipeline
}

func NewScrapers(p Pipeline) *Scrapers {
	return &Scrapers{p: p}
}

// Status handles GET /api/scrapers/status
func (h *Scrapers) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.p.Status(r.Context())
	if err != nil {
		slog.Error("Failed to get scraper status", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Trigger handles POST /api/scrapers/trigger
func (h *Scrapers) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := detach(r)
	defer cancel()

	res := h.p.RunAcquisition(ctx)
	writeJSON(w, runStatus(res.Success, res.Busy), res)
}

type resultScrapeRequest struct {
	League string `json:"league"`
}

// ScrapeResults handles POST /api/scrapers/sofascore. The body is optional.
func (h *Scrapers) ScrapeResults(w http.ResponseWriter, r *http.Request) {
	var req resultScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	ctx, cancel := detach(r)
	defer cancel()

	res := h.p.RunResultScrape(ctx, req.League)
	writeJSON(w, runStatus(res.Success, false), res)
}

// VerifyResults handles POST /api/scrapers/verify-results
func (h *Scrapers) VerifyResults(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := detach(r)
	defer cancel()

	res := h.p.RunVerification(ctx)
	writeJSON(w, runStatus(res.Error == "", res.Busy), res)
}

func detach(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), runTimeout)
}

func runStatus(success, busy bool) int {
	switch {
	case busy:
		return http.StatusConflict
	case !success:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

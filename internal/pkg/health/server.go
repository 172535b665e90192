// Package health serves liveness, metrics and the scraper control endpoints.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Vodeneev/smartbet/internal/pkg/health/handlers"
	"github.com/Vodeneev/smartbet/internal/pkg/performance"
)

// NewRouter builds the HTTP surface. Trigger endpoints run the pipeline
// synchronously and are exempt from the request timeout.
func NewRouter(service string, p handlers.Pipeline, tracker *performance.Tracker, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	scrapers := handlers.NewScrapers(p)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	timeout := middleware.Timeout(30 * time.Second)
	r.With(timeout).Get("/ping", handlers.HandlePing)
	r.With(timeout).Get("/health", handlers.HandleHealth(service, time.Now()))
	r.With(timeout).Get("/metrics", handlers.HandleMetrics(tracker))

	r.Route("/api/scrapers", func(r chi.Router) {
		r.With(timeout).Get("/status", scrapers.Status)
		r.Post("/trigger", scrapers.Trigger)
		r.Post("/sofascore", scrapers.ScrapeResults)
		r.Post("/verify-results", scrapers.VerifyResults)
	})

	return r
}

// Run serves handler on addr until ctx is done, then shuts down gracefully.
// The returned channel is closed once the server has stopped.
func Run(ctx context.Context, addr, service string, handler http.Handler, readHeaderTimeout time.Duration) (<-chan struct{}, error) {
	if readHeaderTimeout <= 0 {
		return nil, fmt.Errorf("read_header_timeout must be specified in config")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	stopped := make(chan struct{})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		defer close(stopped)
		slog.Info("Health server listening", "service", service, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health server error", "service", service, "error", err)
		}
	}()
	return stopped, nil
}

func AddrFor(port int) (string, error) {
	if port <= 0 {
		return "", fmt.Errorf("port must be greater than 0, got %d", port)
	}
	return fmt.Sprintf(":%d", port), nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

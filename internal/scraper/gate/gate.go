// Package gate opens pages and gets past anti-bot interstitials.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Vodeneev/smartbet/internal/pkg/browser"
)

// Config controls challenge detection.
type Config struct {
	ChallengeSelectors []string      `yaml:"challenge_selectors"`
	DenialMarkers      []string      `yaml:"denial_markers"`
	Ceiling            time.Duration `yaml:"ceiling"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	SettleTimeout      time.Duration `yaml:"settle_timeout"`
}

var DefaultConfig = Config{
	ChallengeSelectors: []string{"#cf-challenge-running", ".challenge-running"},
	DenialMarkers:      []string{"404", "Access Denied"},
	Ceiling:            60 * time.Second,
	PollInterval:       time.Second,
	SettleTimeout:      30 * time.Second,
}

// Handler opens pages and waits out challenges.
type Handler struct {
	cfg Config
}

func NewHandler(cfg Config) *Handler {
	if len(cfg.ChallengeSelectors) == 0 {
		cfg.ChallengeSelectors = DefaultConfig.ChallengeSelectors
	}
	if len(cfg.DenialMarkers) == 0 {
		cfg.DenialMarkers = DefaultConfig.DenialMarkers
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = DefaultConfig.Ceiling
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig.PollInterval
	}
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = DefaultConfig.SettleTimeout
	}
	return &Handler{cfg: cfg}
}

// Open navigates to url and waits for the network to settle. Failing to
// settle is not an error: scraping proceeds on what has loaded.
func (h *Handler) Open(ctx context.Context, page browser.Page, url string, timeout time.Duration) error {
	if err := page.Navigate(ctx, url, timeout); err != nil {
		return err
	}

	if err := page.WaitIdle(ctx, h.cfg.SettleTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("Page did not settle, continuing", "url", url, "error", err)
	}
	return nil
}

// PassChallenge returns nil right away when no challenge is showing. Otherwise
// it polls until the challenge clears or the ceiling runs out, then checks the
// page for denial markers. A denial is *DeniedError; running out of time is
// *TimeoutError, which is not fatal.
func (h *Handler) PassChallenge(ctx context.Context, page browser.Page) error {
	selector := strings.Join(h.cfg.ChallengeSelectors, ", ")

	present, err := page.Exists(ctx, selector)
	if err != nil {
		return fmt.Errorf("failed to check for challenge: %w", err)
	}
	if !present {
		return nil
	}

	slog.Warn("Bot challenge detected, waiting for it to clear", "selector", selector, "ceiling", h.cfg.Ceiling)
	start := time.Now()
	waitErr := h.waitCleared(ctx, page, selector)
	if waitErr != nil && !isTimeout(waitErr) {
		return waitErr
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return fmt.Errorf("failed to read page after challenge: %w", err)
	}
	for _, marker := range h.cfg.DenialMarkers {
		if strings.Contains(html, marker) {
			return &DeniedError{Marker: marker}
		}
	}

	if waitErr != nil {
		return waitErr
	}
	slog.Info("Bot challenge cleared", "waited", time.Since(start).Round(time.Millisecond))
	return nil
}

func (h *Handler) waitCleared(ctx context.Context, page browser.Page, selector string) error {
	start := time.Now()
	deadline := time.NewTimer(h.cfg.Ceiling)
	defer deadline.Stop()
	tick := time.NewTicker(h.cfg.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &TimeoutError{Selector: selector, Waited: time.Since(start)}
		case <-tick.C:
		}

		present, err := page.Exists(ctx, selector)
		if err != nil {
			return fmt.Errorf("failed to check for challenge: %w", err)
		}
		if !present {
			return nil
		}
	}
}

func isTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Vodeneev/smartbet/internal/pkg/browser"
	"github.com/Vodeneev/smartbet/internal/scraper/gate"
)

// loadPage opens url on a fresh page, gets through any challenge, waits the
// site's pacing delay, runs prepare and returns the final document.
// A challenge that never clears is logged and scraping continues.
func (s *Service) loadPage(ctx context.Context, log *slog.Logger, site Site, url string, prepare func(browser.Page) error) (string, error) {
	page, err := s.pages.NewPage(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Debug("Failed to close page", "error", cerr)
		}
	}()

	log.Info("Opening page", "url", url)
	if err := s.gate.Open(ctx, page, url, site.NavigationTimeout); err != nil {
		return "", fmt.Errorf("failed to open %s: %w", url, err)
	}

	if err := s.gate.PassChallenge(ctx, page); err != nil {
		if gate.IsFatal(err) {
			return "", err
		}
		var te *gate.TimeoutError
		if errors.As(err, &te) {
			log.Warn("Challenge did not clear, continuing with current content", "error", err)
		}
	}

	if err := browser.Delay(ctx, site.DelayMin, site.DelayMax); err != nil {
		return "", err
	}
	if prepare != nil {
		if err := prepare(page); err != nil {
			return "", err
		}
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	return html, nil
}

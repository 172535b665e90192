// Package browser owns the shared headless Chrome session and the pages opened on it.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNotIdle is returned by WaitIdle when network activity did not settle in time.
var ErrNotIdle = errors.New("network did not become idle")

// Page is one open tab (or one fetched document) that scrapers drive.
type Page interface {
	// Navigate loads url and waits for the document to load.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitIdle waits until no requests are in flight for a short quiet period.
	WaitIdle(ctx context.Context, timeout time.Duration) error
	// Exists reports whether selector matches a rendered, visible element.
	Exists(ctx context.Context, selector string) (bool, error)
	// HTML returns the current serialized document.
	HTML(ctx context.Context) (string, error)
	// Scroll scrolls to the bottom of the document to trigger lazy content.
	Scroll(ctx context.Context) error
	Close() error
}

// PageSource hands out pages. *Manager opens Chrome tabs; the fetch package
// provides a plain HTTP implementation.
type PageSource interface {
	NewPage(ctx context.Context) (Page, error)
	Ready() bool
	Release() error
}

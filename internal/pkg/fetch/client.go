// Package fetch is a browserless page source: it downloads documents over
// plain HTTP and evaluates selectors against the static markup.
package fetch

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"

	"github.com/Vodeneev/smartbet/internal/pkg/browser"
)

// Client hands out static pages that share one HTTP client and one identity.
type Client struct {
	httpClient *http.Client
	identity   browser.Identity
}

var _ browser.PageSource = (*Client)(nil)

func NewClient(timeout time.Duration, identity browser.Identity) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			// Content-Encoding is handled by readBodyDecode so that br and zstd work too.
			Transport: &http.Transport{
				Proxy:              http.ProxyFromEnvironment,
				DisableCompression: true,
				MaxIdleConns:       10,
				IdleConnTimeout:    90 * time.Second,
			},
		},
		identity: identity,
	}
}

func (c *Client) NewPage(context.Context) (browser.Page, error) {
	return &page{client: c}, nil
}

// Ready is always true; there is no process to start.
func (c *Client) Ready() bool { return true }

func (c *Client) Release() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.identity.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", c.identity.UserAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br, zstd")
	req.Header.Set("Connection", "keep-alive")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBodyDecode(resp)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// Error pages are still returned: denial detection works on their content.
		slog.Warn("Page request returned non-200 status", "url", url, "status", resp.StatusCode)
	}
	return string(body), nil
}

// readBodyDecode reads response body and decompresses it based on Content-Encoding (gzip, br, zstd).
func readBodyDecode(resp *http.Response) ([]byte, error) {
	enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch {
	case strings.Contains(enc, "br"):
		return io.ReadAll(brotli.NewReader(resp.Body))
	case strings.Contains(enc, "zstd"):
		r, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case strings.Contains(enc, "gzip"):
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return io.ReadAll(resp.Body)
	}
}

// page is a fetched document. It never changes after Navigate, so WaitIdle
// and Scroll have nothing to do.
type page struct {
	client *Client

	mu   sync.Mutex
	html string
	doc  *goquery.Document
}

func (p *page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	html, err := p.client.get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	p.mu.Lock()
	p.html, p.doc = html, nil
	p.mu.Unlock()
	return nil
}

func (p *page) WaitIdle(context.Context, time.Duration) error { return nil }

func (p *page) Exists(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.html))
		if err != nil {
			return false, fmt.Errorf("parse page: %w", err)
		}
		p.doc = doc
	}
	return p.doc.Find(selector).Length() > 0, nil
}

func (p *page) HTML(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *page) Scroll(context.Context) error { return nil }

func (p *page) Close() error { return nil }

package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const idleQuietPeriod = 500 * time.Millisecond

func launchChrome(ctx context.Context, opts Options, id Identity) (context.Context, func() error, error) {
	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("lang", id.Locale.Locale),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		chromedp.UserAgent(id.UserAgent),
	)
	if opts.ExecPath != "" {
		flags = append(flags, chromedp.ExecPath(opts.ExecPath))
	}

	// The session outlives the request that started it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), flags...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...interface{}) {
		slog.Debug("chromedp", "message", fmt.Sprintf(format, v...))
	}))

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()

	timer := time.NewTimer(opts.LaunchTimeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-started:
	case <-timer.C:
		err = fmt.Errorf("chrome did not start within %s", opts.LaunchTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	closeFn := func() error {
		defer allocCancel()
		defer browserCancel()
		if err := chromedp.Cancel(browserCtx); err != nil {
			return fmt.Errorf("failed to close chrome: %w", err)
		}
		return nil
	}
	return browserCtx, closeFn, nil
}

func openChromeTab(_ context.Context, s *Session) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(s.ctx)

	p := &chromePage{ctx: tabCtx, cancel: cancel, lastActivity: time.Now()}
	chromedp.ListenTarget(tabCtx, p.onEvent)

	headers := make(network.Headers, len(s.Identity.Headers))
	for k, v := range s.Identity.Headers {
		headers[k] = v
	}

	// The first Run on a tab context creates the target and binds its lifetime
	// to that context, so it must not run on a derived one.
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		emulation.SetLocaleOverride().WithLocale(s.Identity.Locale.Locale),
		emulation.SetTimezoneOverride(s.Identity.Locale.Timezone),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to prepare tab: %w", err)
	}
	return p, nil
}

// chromePage is a single Chrome tab. Every call is bounded by both the caller
// context and the optional per-call timeout.
type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	inflight     int
	lastActivity time.Time
}

func (p *chromePage) onEvent(ev interface{}) {
	switch ev.(type) {
	case *network.EventRequestWillBeSent:
		p.mu.Lock()
		p.inflight++
		p.lastActivity = time.Now()
		p.mu.Unlock()
	case *network.EventLoadingFinished, *network.EventLoadingFailed:
		p.mu.Lock()
		if p.inflight > 0 {
			p.inflight--
		}
		p.lastActivity = time.Now()
		p.mu.Unlock()
	}
}

func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) WaitIdle(ctx context.Context, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		p.mu.Lock()
		idle := p.inflight == 0 && time.Since(p.lastActivity) >= idleQuietPeriod
		p.mu.Unlock()
		if idle {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.ctx.Done():
			return p.ctx.Err()
		case <-deadline.C:
			return ErrNotIdle
		case <-tick.C:
		}
	}
}

func (p *chromePage) Exists(ctx context.Context, selector string) (bool, error) {
	sel, err := json.Marshal(selector)
	if err != nil {
		return false, err
	}
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		return !!el && !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
	})()`, sel)

	var visible bool
	if err := p.run(ctx, 10*time.Second, chromedp.Evaluate(expr, &visible)); err != nil {
		return false, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	return visible, nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, 30*time.Second, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

func (p *chromePage) Scroll(ctx context.Context) error {
	var ok bool
	return p.run(ctx, 10*time.Second,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight); true`, &ok))
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}

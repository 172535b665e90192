package browser

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Options configures the Chrome session.
type Options struct {
	Headless      bool
	ExecPath      string
	WindowWidth   int
	WindowHeight  int
	LaunchTimeout time.Duration
	UserAgents    []string
	Locales       []Locale
}

func (o Options) withDefaults() Options {
	if o.WindowWidth <= 0 {
		o.WindowWidth = 1920
	}
	if o.WindowHeight <= 0 {
		o.WindowHeight = 1080
	}
	if o.LaunchTimeout <= 0 {
		o.LaunchTimeout = 30 * time.Second
	}
	return o
}

// Session is a running browser bound to one identity.
type Session struct {
	Identity  Identity
	StartedAt time.Time

	ctx   context.Context
	close func() error
}

// launcher starts a browser process and returns its root context.
type launcher func(ctx context.Context, opts Options, id Identity) (context.Context, func() error, error)

// tabOpener opens a new tab in a running session.
type tabOpener func(ctx context.Context, s *Session) (Page, error)

// Manager lazily starts one shared browser session and hands out tabs on it.
// It is safe for concurrent use; concurrent first callers start one process.
type Manager struct {
	opts    Options
	launch  launcher
	openTab tabOpener
	pick    func(n int) int

	mu      sync.Mutex
	session *Session
}

var _ PageSource = (*Manager)(nil)

// NewManager returns a manager that starts Chrome on first use.
func NewManager(opts Options) *Manager {
	return &Manager{
		opts:    opts.withDefaults(),
		launch:  launchChrome,
		openTab: openChromeTab,
	}
}

// Acquire returns the running session, starting it if needed. A failed start
// is reported as *SessionError and is not retried here.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return m.session, nil
	}

	id := NewIdentity(m.pick, m.opts.UserAgents, m.opts.Locales)
	bctx, closeFn, err := m.launch(ctx, m.opts, id)
	if err != nil {
		return nil, &SessionError{Err: err}
	}

	m.session = &Session{
		Identity:  id,
		StartedAt: time.Now(),
		ctx:       bctx,
		close:     closeFn,
	}
	slog.Info("Browser session started",
		"user_agent", id.UserAgent,
		"locale", id.Locale.Locale,
		"timezone", id.Locale.Timezone)
	return m.session, nil
}

// NewPage opens a fresh tab carrying the session identity.
func (m *Manager) NewPage(ctx context.Context) (Page, error) {
	s, err := m.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return m.openTab(ctx, s)
}

// Identity returns the identity of the running session, if any.
func (m *Manager) Identity() (Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Identity{}, false
	}
	return m.session.Identity, true
}

// Ready reports whether a session is running.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Release shuts the session down. The next Acquire starts a new one with a
// new identity. Calling Release without a session is a no-op.
func (m *Manager) Release() error {
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.mu.Unlock()

	if s == nil {
		return nil
	}
	slog.Info("Browser session closed", "uptime", time.Since(s.StartedAt).Round(time.Second))
	return s.close()
}

package extract

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one way of reading records out of a parsed page.
type Strategy[R any] interface {
	Name() string
	Extract(doc *goquery.Document) ([]R, []error)
}

// Outcome reports what an engine produced for one page.
type Outcome[R any] struct {
	Records  []R
	Strategy string // name of the strategy that produced Records, empty if none did
	Skipped  int    // rows discarded by that strategy
}

// Engine runs its strategies in order and returns the first non-empty result,
// deduplicated by key.
type Engine[R any] struct {
	strategies []Strategy[R]
	key        func(R) string
}

// NewEngine builds an engine from an ordered strategy list.
func NewEngine[R any](key func(R) string, strategies ...Strategy[R]) *Engine[R] {
	return &Engine[R]{strategies: strategies, key: key}
}

// Extract parses html and returns the records of the first strategy that found any.
func (e *Engine[R]) Extract(html string) (Outcome[R], error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Outcome[R]{}, fmt.Errorf("failed to parse page: %w", err)
	}

	for _, s := range e.strategies {
		records, skipped := s.Extract(doc)
		for _, rowErr := range skipped {
			slog.Debug("Skipped row", "strategy", s.Name(), "error", rowErr)
		}
		if len(records) == 0 {
			slog.Debug("Strategy found nothing", "strategy", s.Name(), "skipped", len(skipped))
			continue
		}
		return Outcome[R]{
			Records:  e.dedupe(records),
			Strategy: s.Name(),
			Skipped:  len(skipped),
		}, nil
	}

	return Outcome[R]{}, nil
}

func (e *Engine[R]) dedupe(records []R) []R {
	seen := make(map[string]struct{}, len(records))
	out := records[:0:0]
	for _, r := range records {
		k := e.key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Option configures the built-in engines.
type Option func(*options)

type options struct {
	now func() time.Time
	loc *time.Location
}

// WithClock overrides the clock used for "today" defaults.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocation sets the time zone scraped dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewPredictionEngine returns the structured-then-fallback prediction engine.
func NewPredictionEngine(sel PredictionSelectors, opts ...Option) *Engine[PredictionRecord] {
	o := buildOptions(opts)
	return NewEngine(predictionKey,
		Strategy[PredictionRecord](&structuredPredictions{sel: sel, opts: o}),
		Strategy[PredictionRecord](&patternPredictions{opts: o}),
	)
}

// NewResultEngine returns the structured-then-fallback result engine.
func NewResultEngine(sel ResultSelectors) *Engine[ResultRecord] {
	return NewEngine(resultKey,
		Strategy[ResultRecord](&structuredResults{sel: sel}),
		Strategy[ResultRecord](&scoreBlockResults{sel: sel}),
	)
}

func firstText(s *goquery.Selection, alternatives []string) (string, bool) {
	if len(alternatives) == 0 {
		return "", false
	}
	found := s.Find(join(alternatives)).First()
	if found.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(found.Text()), true
}

// Package sources holds the built-in site profiles: default URLs and selector
// sets for the sites the scraper knows how to read.
package sources

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Vodeneev/smartbet/internal/scraper/extract"
)

// Profile describes one site. A profile carries prediction selectors,
// result selectors, or both.
type Profile struct {
	Key         string // registry key, lower case
	Label       string // source name recorded in the job ledger
	URL         string
	Predictions extract.PredictionSelectors
	Results     extract.ResultSelectors
}

// LeagueURL appends a league path segment to the profile URL.
func (p Profile) LeagueURL(league string) string { return LeagueURL(p.URL, league) }

// LeagueURL appends league to base as one path segment. An empty league returns base.
func LeagueURL(base, league string) string {
	league = strings.Trim(strings.TrimSpace(league), "/")
	if league == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + league
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Profile{}
)

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Register adds a profile. It panics on an empty or duplicate key.
func Register(p Profile) {
	k := normalize(p.Key)
	if k == "" {
		panic("sources: empty key in Register")
	}
	if p.URL == "" {
		panic("sources: empty url in Register for " + k)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[k]; exists {
		panic("sources: duplicate registration for " + k)
	}
	p.Key = k
	registry[k] = p
}

func Lookup(key string) (Profile, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[normalize(key)]
	return p, ok
}

func AvailableNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MustLookup is Lookup for wiring code where an unknown key is a configuration error.
func MustLookup(key string) (Profile, error) {
	if p, ok := Lookup(key); ok {
		return p, nil
	}
	return Profile{}, fmt.Errorf("unknown source %q (available: %v)", key, AvailableNames())
}

package browser

import "math/rand"

// DefaultUserAgents is the pool client identities are drawn from.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

// Locale pairs a browser locale with a matching time zone and Accept-Language.
type Locale struct {
	Locale         string `yaml:"locale"`
	Timezone       string `yaml:"timezone"`
	AcceptLanguage string `yaml:"accept_language"`
}

var DefaultLocales = []Locale{
	{Locale: "es-ES", Timezone: "Europe/Madrid", AcceptLanguage: "es-ES,es;q=0.9,en;q=0.8"},
}

// Identity is the client fingerprint presented for a whole session.
type Identity struct {
	UserAgent string
	Locale    Locale
	Headers   map[string]string
}

// NewIdentity draws a user agent and a locale from the given pools using pick,
// which must return a value in [0, n). Empty pools fall back to the defaults.
func NewIdentity(pick func(n int) int, userAgents []string, locales []Locale) Identity {
	if pick == nil {
		pick = rand.Intn
	}
	if len(userAgents) == 0 {
		userAgents = DefaultUserAgents
	}
	if len(locales) == 0 {
		locales = DefaultLocales
	}

	ua := userAgents[pick(len(userAgents))]
	loc := locales[pick(len(locales))]
	return Identity{
		UserAgent: ua,
		Locale:    loc,
		Headers:   navigationHeaders(loc),
	}
}

func navigationHeaders(loc Locale) map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           loc.AcceptLanguage,
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Cache-Control":             "max-age=0",
	}
}

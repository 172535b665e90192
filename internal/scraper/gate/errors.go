package gate

import (
	"errors"
	"fmt"
	"time"
)

// DeniedError means the site answered with an explicit denial page.
// The run cannot continue.
type DeniedError struct {
	Marker string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied by site (marker %q)", e.Marker)
}

// TimeoutError means a bot challenge was still showing when the wait ceiling
// ran out. Scraping continues on whatever content is present.
type TimeoutError struct {
	Selector string
	Waited   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("challenge %q still present after %s", e.Selector, e.Waited.Round(time.Millisecond))
}

// IsFatal reports whether err must end the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	return !errors.As(err, &te)
}

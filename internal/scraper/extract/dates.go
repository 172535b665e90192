package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	clockPattern   = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	isoDatePattern = regexp.MustCompile(`\b(\d{4})[/.-](\d{1,2})[/.-](\d{1,2})\b`)
	dmyDatePattern = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})[/.-](\d{2,4})\b`)
)

// parseMatchDate reads a calendar date and an optional HH:MM from free text.
// A missing or unreadable date falls back to today in loc.
func parseMatchDate(text string, now time.Time, loc *time.Location) (time.Time, string) {
	now = now.In(loc)
	y, m, d := now.Date()

	if found, ok := parseCalendarDate(text); ok {
		y, m, d = found.Year(), found.Month(), found.Day()
	}

	var clock string
	hour, minute := 0, 0
	if sm := clockPattern.FindStringSubmatch(text); sm != nil {
		h, _ := strconv.Atoi(sm[1])
		mm, _ := strconv.Atoi(sm[2])
		if h < 24 && mm < 60 {
			hour, minute = h, mm
			clock = fmt.Sprintf("%02d:%02d", h, mm)
		}
	}

	return time.Date(y, m, d, hour, minute, 0, 0, loc), clock
}

func parseCalendarDate(text string) (time.Time, bool) {
	if sm := isoDatePattern.FindStringSubmatch(text); sm != nil {
		return validDate(sm[1], sm[2], sm[3])
	}
	if sm := dmyDatePattern.FindStringSubmatch(text); sm != nil {
		year := sm[3]
		if len(year) == 2 {
			year = "20" + year
		}
		return validDate(year, sm[2], sm[1])
	}
	return time.Time{}, false
}

func validDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 2000 || y > 2100 {
		return time.Time{}, false
	}
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

package extract

import (
	"errors"
	"fmt"
)

var (
	errMissingTeams = errors.New("no team names found")
	errNoScore      = errors.New("no score pattern found")
)

// RowError describes a single candidate row a strategy had to skip.
type RowError struct {
	Strategy string
	Index    int
	Err      error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s: row %d: %v", e.Strategy, e.Index, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

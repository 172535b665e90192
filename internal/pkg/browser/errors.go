package browser

import "fmt"

// SessionError is returned when the browser process cannot be started.
// It is always fatal for the run that needed the session.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("browser session unavailable: %v", e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

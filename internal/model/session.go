package model

import (
	"errors"
	"fmt"
	"time"
)

// SessionState tracks where a session is in its lifecycle.
type SessionState string

// Session lifecycle states.
const (
	SessionEmpty    SessionState = "EMPTY"
	SessionActive   SessionState = "ACTIVE"
	SessionExported SessionState = "EXPORTED"
)

// ErrUnknownState marks a state string that did not come from this package.
var ErrUnknownState = errors.New("unknown session state")

// ParseSessionState converts a stored state string back to a SessionState.
func ParseSessionState(s string) (SessionState, error) {
	switch SessionState(s) {
	case SessionEmpty, SessionActive, SessionExported:
		return SessionState(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownState, s)
	}
}

// Session describes the document currently being scanned. Pages live in the
// session manager; this struct carries identity and defaults.
type Session struct {
	CreatedAt time.Time
	ID        string
	Profile   string
	Format    Format
	State     SessionState
}

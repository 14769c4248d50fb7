package session

import (
	"context"
	"time"
)

// Limits carries the constraints for one search. A fresh value is stamped
// for every think call from the session's current option table; StartTime
// is always wall-clock now at dispatch.
type Limits struct {
	SkillLevel   int
	MinThinkTime time.Duration
	StartTime    time.Time
}

// SearchRequest is a self-contained game-line snapshot handed to the
// worker: the setup position plus every applied move in coordinate
// notation. Workers never hold a reference into session state.
type SearchRequest struct {
	StartFEN string
	Moves    []string
	Limits   Limits
}

// Searcher is the worker context bound to a session. It performs search on
// demand and owns whatever cached knowledge survives between calls. One
// searcher serves exactly one session at a time.
type Searcher interface {
	// SetOption forwards a single engine option assignment. Buttons are
	// pressed by passing an empty value.
	SetOption(name, value string) error

	// Search blocks until the worker produces one best move in coordinate
	// notation, or "(none)" when the position is terminal. The context
	// bounds the wait.
	Search(ctx context.Context, req SearchRequest) (string, error)

	// NewGame discards cached search knowledge between unrelated games.
	NewGame(ctx context.Context) error

	// Close releases the worker. Implementations backed by a process pool
	// may revive on a later call, which is what lets a released session be
	// re-initialized.
	Close() error
}

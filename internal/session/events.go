package session

import "github.com/park285/chess-gateway/internal/engine"

// Event kinds pushed through a session's notifier.
const (
	EventPosition = "position"
	EventMove     = "move"
	EventUndo     = "undo"
)

// Event describes one observable session transition: a position load, an
// applied move, or an undo. MoveText carries the move for move events and
// the popped move for undo events.
type Event struct {
	Kind       string
	MoveText   string
	FEN        string
	Turn       engine.Color
	HistoryLen int
}

// Notifier receives events synchronously on the session's calling
// goroutine, while the session lock is held. Implementations must return
// quickly and must not call back into the session.
type Notifier func(Event)

package gatewaydto

// Event kinds pushed over the websocket stream.
const (
	EventPosition = "position"
	EventMove     = "move"
	EventUndo     = "undo"
)

// Event mirrors one session transition: a position load, an applied move,
// or an undo. MoveText carries the move for move events and the popped move
// for undo events.
type Event struct {
	Kind       string `json:"kind"`
	MoveText   string `json:"move_text,omitempty"`
	FEN        string `json:"fen"`
	Turn       string `json:"turn"`
	HistoryLen int    `json:"history_len"`
}

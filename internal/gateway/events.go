package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-gateway/internal/session"
	"github.com/park285/chess-gateway/pkg/gatewaydto"
)

const eventBufferSize = 16

// eventHub fans one session's notifier out to any number of websocket
// subscribers. The notifier fires on the session's goroutine while its lock
// is held, so delivery must never block: a subscriber whose buffer is full
// is dropped rather than waited on.
type eventHub struct {
	mu     sync.Mutex
	subs   map[chan gatewaydto.Event]struct{}
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan gatewaydto.Event]struct{})}
}

// notify is the session.Notifier for this hub's session.
func (h *eventHub) notify(ev session.Event) {
	out := gatewaydto.Event{
		Kind:       ev.Kind,
		MoveText:   ev.MoveText,
		FEN:        ev.FEN,
		Turn:       string(ev.Turn),
		HistoryLen: ev.HistoryLen,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- out:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// subscribe registers a new listener. The returned cancel is idempotent and
// safe to call after the hub has already dropped or closed the channel.
func (h *eventHub) subscribe() (<-chan gatewaydto.Event, func()) {
	ch := make(chan gatewaydto.Event, eventBufferSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

func (h *eventHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// handleEvents streams session events over a websocket. The stream is
// write-only from the server's side; client frames beyond close are
// discarded. The first frame is always a position snapshot, so a subscriber
// knows the state it is diffing against before any move event arrives.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.manager.Get(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.hubMu.Lock()
	hub, ok := s.hubs[id]
	s.hubMu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, gatewaydto.CodeSessionNotFound, "no event stream for session")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.log.Warn("events_accept_failed", zap.String("session_id", id), zap.Error(err))
		return
	}

	events, cancel := hub.subscribe()
	defer cancel()

	// CloseRead surfaces client disconnects through ctx while we only write.
	ctx := conn.CloseRead(r.Context())

	prime, err := positionEvent(sess)
	if err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
		return
	}
	if err := writeEvent(ctx, conn, prime); err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "write failed")
		return
	}

	s.log.Info("events_subscribed", zap.String("session_id", id))
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "client gone")
			return
		case ev, open := <-events:
			if !open {
				_ = conn.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				_ = conn.Close(websocket.StatusPolicyViolation, "write failed")
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev gatewaydto.Event) error {
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(wctx, conn, ev)
}

// positionEvent snapshots the current game state as a stream opener.
func positionEvent(sess *session.Session) (gatewaydto.Event, error) {
	fen, err := sess.FEN()
	if err != nil {
		return gatewaydto.Event{}, err
	}
	turn, err := sess.Turn()
	if err != nil {
		return gatewaydto.Event{}, err
	}
	moves, err := sess.HistoryText()
	if err != nil {
		return gatewaydto.Event{}, err
	}
	return gatewaydto.Event{
		Kind:       gatewaydto.EventPosition,
		FEN:        fen,
		Turn:       string(turn),
		HistoryLen: len(moves),
	}, nil
}

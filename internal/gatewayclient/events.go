package gatewayclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-gateway/pkg/gatewaydto"
)

// EventStream is one live subscription to a session's event feed. The first
// event is always the position snapshot the server sends on subscribe.
type EventStream struct {
	conn   *websocket.Conn
	events chan gatewaydto.Event
}

// OpenEvents subscribes to the session's websocket event feed. The stream
// reads until the server closes it or ctx is cancelled; the Events channel
// is closed when the stream ends.
func (c *Client) OpenEvents(ctx context.Context, id string) (*EventStream, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/sessions/" + id + "/events"

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("events dial: %w", err)
	}

	s := &EventStream{conn: conn, events: make(chan gatewaydto.Event, 16)}
	go s.readLoop(ctx)
	return s, nil
}

func (s *EventStream) Events() <-chan gatewaydto.Event { return s.events }

func (s *EventStream) readLoop(ctx context.Context) {
	defer close(s.events)
	for {
		var ev gatewaydto.Event
		if err := wsjson.Read(ctx, s.conn, &ev); err != nil {
			return
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (s *EventStream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "client close")
}

package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-gateway/internal/engine"
)

type thinkOutcome struct {
	text string
	err  error
}

// Think runs one blocking search over the current game line and returns
// the worker's best move, or MoveNone when the position is terminal. The
// move is returned, not applied.
//
// Limits are stamped fresh from the option table with the current wall
// clock. The worker deposits exactly one outcome into a one-shot slot; the
// caller blocks on it and the slot is discarded after retrieval, so the
// session can immediately accept the next request. At most one think may be
// outstanding per session: a concurrent call is a precondition violation
// and fails with ErrThinkInProgress. Mutating operations are rejected the
// same way while the search runs; read queries stay available.
//
// A castling result is rewritten to display form before returning: a plain
// encoding from the king's origin to the g- or c-file landing square.
// Callers never see the internal rook-capture destination from this path.
func (s *Session) Think(ctx context.Context) (engine.Move, error) {
	s.mu.Lock()
	if err := s.ensureReady(); err != nil {
		s.mu.Unlock()
		return engine.MoveNone, err
	}

	req := SearchRequest{
		StartFEN: s.startFEN,
		Moves:    s.renderHistoryLocked(),
		Limits: Limits{
			SkillLevel:   s.opts.Int("Skill Level"),
			MinThinkTime: time.Duration(s.opts.Int("Minimum Thinking Time")) * time.Millisecond,
			StartTime:    time.Now(),
		},
	}
	searcher := s.searcher
	s.state = StateThinking
	s.mu.Unlock()

	slot := make(chan thinkOutcome, 1)
	go func() {
		text, err := searcher.Search(ctx, req)
		slot <- thinkOutcome{text: text, err: err}
	}()
	out := <-slot

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateReady

	if out.err != nil {
		return engine.MoveNone, fmt.Errorf("search: %w", out.err)
	}
	m, err := s.resolveBestMoveLocked(out.text)
	if err != nil {
		return engine.MoveNone, err
	}

	s.log.Info("session_think",
		zap.String("best_move", engine.Coordinate(m, s.pos.Chess960())),
		zap.Duration("elapsed", time.Since(req.Limits.StartTime)),
		zap.Int("skill_level", req.Limits.SkillLevel))
	return m, nil
}

// resolveBestMoveLocked maps the worker's coordinate text back to an
// internal move against the current position, then flattens castles to
// display form.
func (s *Session) resolveBestMoveLocked(text string) (engine.Move, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "(none)" || text == "0000" {
		return engine.MoveNone, nil
	}

	m := engine.ToMove(s.pos, text)
	if m == engine.MoveNone {
		return engine.MoveNone, fmt.Errorf("best move %q is not legal in the current position", text)
	}
	return engine.DisplayMove(m), nil
}

func (s *Session) renderHistoryLocked() []string {
	moves := make([]string, 0, len(s.history))
	for _, m := range s.history {
		moves = append(moves, engine.Coordinate(m, s.pos.Chess960()))
	}
	return moves
}

// Package session implements the game-session control layer: exclusive
// ownership of one position and its move history, lifecycle transitions,
// and the blocking bridge to a search worker.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/chess-gateway/internal/engine"
	"github.com/park285/chess-gateway/internal/options"
)

var (
	ErrNotInitialized  = errors.New("session: not initialized")
	ErrSessionReleased = errors.New("session: released")
	ErrThinkInProgress = errors.New("session: think already in progress")
	ErrEmptyHistory    = errors.New("session: move history is empty")
)

// State tracks the session lifecycle. Ready is reentered after every
// completed search, undo, new game, and position load.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateThinking
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateThinking:
		return "thinking"
	case StateReleased:
		return "released"
	default:
		return "uninitialized"
	}
}

// Config seeds the option table defaults for a new session.
type Config struct {
	SkillLevel     int
	MinThinkMillis int
}

// Session owns one game: the position, the move history, the option table,
// and a single worker context. All mutating operations are serialized; a
// second goroutine may only issue read queries, and only one search may be
// outstanding at a time.
type Session struct {
	log      *zap.Logger
	searcher Searcher
	notify   Notifier
	opts     *options.Registry

	mu       sync.Mutex
	state    State
	pos      *engine.Position
	startFEN string
	history  []engine.Move
}

// New builds a session around the given worker context. The notifier may be
// nil. The session is unusable until Init.
func New(searcher Searcher, cfg Config, logger *zap.Logger, notify Notifier) (*Session, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		log:      logger,
		searcher: searcher,
		notify:   notify,
		opts:     options.EngineTable(cfg.SkillLevel, cfg.MinThinkMillis),
		state:    StateUninitialized,
	}
	s.bindOptionHooks()
	return s, nil
}

// bindOptionHooks forwards every option assignment to the worker and keeps
// the position's castling display mode in step with UCI_Chess960.
func (s *Session) bindOptionHooks() {
	for _, o := range s.opts.Options() {
		_ = s.opts.OnChange(o.Name, func(o *options.Option) error {
			return s.searcher.SetOption(o.Name, o.Value())
		})
	}
	_ = s.opts.OnChange("UCI_Chess960", func(o *options.Option) error {
		if s.pos != nil {
			s.pos.SetChess960(o.Bool())
		}
		return nil
	})
}

// Init resets the session to a fresh game line: empty history, a position
// built from fen (the standard start position when fen is empty), and the
// full option table pushed to the worker. Init is also the one operation
// permitted on a released session.
func (s *Session) Init(ctx context.Context, fen string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateThinking {
		return ErrThinkInProgress
	}

	pos, err := engine.NewPosition(fen)
	if err != nil {
		return err
	}
	pos.SetChess960(s.opts.Bool("UCI_Chess960"))

	if err := s.pushOptionsLocked(); err != nil {
		return err
	}

	if fen == "" {
		fen = engine.StartFEN
	}
	s.pos = pos
	s.startFEN = fen
	s.history = nil
	s.state = StateReady

	s.log.Info("session_init",
		zap.String("fen", fen),
		zap.Int("skill_level", s.opts.Int("Skill Level")),
		zap.Int("min_think_ms", s.opts.Int("Minimum Thinking Time")))
	s.dispatchLocked(Event{Kind: EventPosition, FEN: pos.FEN(), Turn: pos.Turn()})
	return nil
}

func (s *Session) pushOptionsLocked() error {
	for _, o := range s.opts.Options() {
		if o.Kind == options.Button {
			continue
		}
		if err := s.searcher.SetOption(o.Name, o.Value()); err != nil {
			return fmt.Errorf("push option %s: %w", o.Name, err)
		}
	}
	return nil
}

// ensureReady gates mutating operations.
func (s *Session) ensureReady() error {
	switch s.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateReleased:
		return ErrSessionReleased
	case StateThinking:
		return ErrThinkInProgress
	default:
		return nil
	}
}

// ensureQueryable gates read-only operations, which stay valid while a
// search is outstanding.
func (s *Session) ensureQueryable() error {
	switch s.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateReleased:
		return ErrSessionReleased
	default:
		return nil
	}
}

// ApplyMove plays an internal move encoding on the position and appends it
// to the history. The move must be legal in its exact encoded form.
func (s *Session) ApplyMove(m engine.Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReady(); err != nil {
		return err
	}
	return s.applyMoveLocked(m)
}

func (s *Session) applyMoveLocked(m engine.Move) error {
	if err := s.pos.Apply(m); err != nil {
		return err
	}
	s.history = append(s.history, m)

	text := engine.Coordinate(m, s.pos.Chess960())
	s.log.Info("session_move",
		zap.String("move", text),
		zap.Int("history_len", len(s.history)))
	s.dispatchLocked(Event{
		Kind:       EventMove,
		MoveText:   text,
		FEN:        s.pos.FEN(),
		Turn:       s.pos.Turn(),
		HistoryLen: len(s.history),
	})
	return nil
}

// ApplyCoordinateMove plays a plain from/to move. Castling, en passant, and
// promotion have their own entry points; their coordinate pairs do not
// resolve through this one.
func (s *Session) ApplyCoordinateMove(from, to engine.Square) error {
	return s.ApplyMove(engine.NewMove(from, to))
}

// ApplyTextMove resolves coordinate text against the current legal moves and
// plays the match. Unlike ApplyCoordinateMove this handles every move type,
// castles in display form included.
func (s *Session) ApplyTextMove(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReady(); err != nil {
		return err
	}
	m := engine.ToMove(s.pos, text)
	if m == engine.MoveNone {
		return fmt.Errorf("%w: %q", engine.ErrIllegalMove, text)
	}
	return s.applyMoveLocked(m)
}

// ApplyCastle plays the legal castle for the side to move, king-side or
// queen-side.
func (s *Session) ApplyCastle(side engine.CastleSide) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReady(); err != nil {
		return err
	}
	m, err := s.pos.CastlingMove(side)
	if err != nil {
		return err
	}
	return s.applyMoveLocked(m)
}

// ApplyEnPassant plays the en passant capture originating from the given
// square.
func (s *Session) ApplyEnPassant(from engine.Square) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReady(); err != nil {
		return err
	}
	m, err := s.pos.EnPassantMove(from)
	if err != nil {
		return err
	}
	return s.applyMoveLocked(m)
}

// ApplyPromotion plays a promotion; kind defaults to queen when NoKind.
func (s *Session) ApplyPromotion(from, to engine.Square, kind engine.PieceKind) error {
	return s.ApplyMove(engine.NewPromotionMove(from, to, kind))
}

// Undo pops the last move and reverts the position to the prior state by
// replaying the trimmed history from the setup position. The setup FEN plus
// the history always reconstructs the current position exactly, so the
// replayed state is FEN-identical to the pre-move state.
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReady(); err != nil {
		return err
	}
	if len(s.history) == 0 {
		return ErrEmptyHistory
	}

	last := s.history[len(s.history)-1]
	trimmed := s.history[:len(s.history)-1]

	pos, err := engine.NewPosition(s.startFEN)
	if err != nil {
		return fmt.Errorf("rebuild setup position: %w", err)
	}
	pos.SetChess960(s.pos.Chess960())
	for _, m := range trimmed {
		if err := pos.Apply(m); err != nil {
			return fmt.Errorf("replay %v: %w", m, err)
		}
	}

	s.pos = pos
	s.history = trimmed

	text := engine.Coordinate(last, pos.Chess960())
	s.log.Info("session_undo",
		zap.String("move", text),
		zap.Int("history_len", len(s.history)))
	s.dispatchLocked(Event{
		Kind:       EventUndo,
		MoveText:   text,
		FEN:        pos.FEN(),
		Turn:       pos.Turn(),
		HistoryLen: len(s.history),
	})
	return nil
}

// NewGame clears the worker's cached search knowledge and resets to the
// standard start position with an empty history. This is the only path
// that resets engine-internal state between unrelated games.
func (s *Session) NewGame(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReady(); err != nil {
		return err
	}
	if err := s.searcher.NewGame(ctx); err != nil {
		return fmt.Errorf("clear search state: %w", err)
	}

	pos, err := engine.NewPosition("")
	if err != nil {
		return err
	}
	pos.SetChess960(s.opts.Bool("UCI_Chess960"))
	s.pos = pos
	s.startFEN = engine.StartFEN
	s.history = nil

	s.log.Info("session_new_game")
	s.dispatchLocked(Event{Kind: EventPosition, FEN: pos.FEN(), Turn: pos.Turn()})
	return nil
}

// SetPosition loads an arbitrary position and resets the history, leaving
// the worker's cached knowledge intact. Use NewGame instead when isolation
// from previously searched lines is required.
func (s *Session) SetPosition(fen string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReady(); err != nil {
		return err
	}

	pos, err := engine.NewPosition(fen)
	if err != nil {
		return err
	}
	pos.SetChess960(s.opts.Bool("UCI_Chess960"))

	if fen == "" {
		fen = engine.StartFEN
	}
	s.pos = pos
	s.startFEN = fen
	s.history = nil

	s.log.Info("session_set_position", zap.String("fen", fen))
	s.dispatchLocked(Event{Kind: EventPosition, FEN: pos.FEN(), Turn: pos.Turn()})
	return nil
}

// Release shuts the worker context down and ends the session. Terminal:
// every later operation except Init fails with ErrSessionReleased.
func (s *Session) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateThinking:
		return ErrThinkInProgress
	case StateReleased:
		return ErrSessionReleased
	}

	s.state = StateReleased
	s.pos = nil
	s.history = nil

	if err := s.searcher.Close(); err != nil {
		return fmt.Errorf("close searcher: %w", err)
	}
	s.log.Info("session_release")
	return nil
}

// IsDraw reports whether the game is drawn by threefold repetition or the
// fifty-move rule. Valid mid-think; the answer tracks the current position.
func (s *Session) IsDraw() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureQueryable(); err != nil {
		return false, err
	}
	return s.pos.IsDraw(), nil
}

// FiftyMoveCount reports the raw halfmove clock.
func (s *Session) FiftyMoveCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureQueryable(); err != nil {
		return 0, err
	}
	return s.pos.HalfMoveClock(), nil
}

// OrderedLegalMoveMatch checks a claimed move list against the legal moves
// in enumeration order. See engine.OrderedMatch for the saturated-clock
// short-circuit.
func (s *Session) OrderedLegalMoveMatch(from, to []engine.Square) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureQueryable(); err != nil {
		return false, err
	}
	return engine.OrderedMatch(s.pos, from, to), nil
}

// UnorderedLegalMoveMatch checks a claimed move list against the legal
// moves regardless of order, preserving multiplicity.
func (s *Session) UnorderedLegalMoveMatch(from, to []engine.Square) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureQueryable(); err != nil {
		return false, err
	}
	return engine.UnorderedMatch(s.pos, from, to), nil
}

// LegalMoves enumerates the legal moves of the current position.
func (s *Session) LegalMoves() ([]engine.Move, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureQueryable(); err != nil {
		return nil, err
	}
	return s.pos.LegalMoves(), nil
}

// LegalMoveText enumerates the legal moves in coordinate notation, honoring
// the session's castle display mode.
func (s *Session) LegalMoveText() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureQueryable(); err != nil {
		return nil, err
	}
	moves := s.pos.LegalMoves()
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = engine.Coordinate(m, s.pos.Chess960())
	}
	return out, nil
}

// FEN renders the current position.
func (s *Session) FEN() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureQueryable(); err != nil {
		return "", err
	}
	return s.pos.FEN(), nil
}

// Turn reports the side to move.
func (s *Session) Turn() (engine.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureQueryable(); err != nil {
		return "", err
	}
	return s.pos.Turn(), nil
}

// History returns a copy of the applied moves since the last reset.
func (s *Session) History() ([]engine.Move, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureQueryable(); err != nil {
		return nil, err
	}
	return append([]engine.Move(nil), s.history...), nil
}

// HistoryText renders the applied moves in coordinate notation.
func (s *Session) HistoryText() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureQueryable(); err != nil {
		return nil, err
	}
	return s.renderHistoryLocked(), nil
}

// State reports the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetOption assigns an engine option: the table validates, then the change
// hooks forward the value to the worker.
func (s *Session) SetOption(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateReleased:
		return ErrSessionReleased
	case StateThinking:
		return ErrThinkInProgress
	}
	return s.opts.Set(name, value)
}

// Options snapshots the option table in insertion order.
func (s *Session) Options() ([]options.Option, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased {
		return nil, ErrSessionReleased
	}
	table := s.opts.Options()
	out := make([]options.Option, 0, len(table))
	for _, o := range table {
		out = append(out, *o)
	}
	return out, nil
}

func (s *Session) dispatchLocked(ev Event) {
	if s.notify == nil {
		return
	}
	s.notify(ev)
}

package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartFEN is the standard chess starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// DrawHalfMoveLimit is the fifty-move rule expressed in half-moves: once the
// halfmove clock reaches this value the game is drawable by rule.
const DrawHalfMoveLimit = 100

var (
	ErrInvalidFEN  = errors.New("engine: invalid fen")
	ErrIllegalMove = errors.New("engine: illegal move")
)

// Position is a single game line with move generation and draw detection.
// Automatic draw adjudication in the underlying game (fivefold, 75-move,
// insufficient material) is disabled so that games never end behind the
// caller's back; draw state is only ever reported through IsDraw.
type Position struct {
	game     *nchess.Game
	chess960 bool
}

// NewPosition builds a position from a FEN record. An empty fen yields the
// standard starting position.
func NewPosition(fen string) (*Position, error) {
	opts := []func(*nchess.Game){
		nchess.IgnoreFivefoldRepetitionDraw(),
		nchess.IgnoreSeventyFiveMoveRuleDraw(),
		nchess.IgnoreInsufficientMaterialDraw(),
	}
	if fen != "" {
		load, err := nchess.FEN(fen)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
		}
		opts = append(opts, load)
	}
	return &Position{game: nchess.NewGame(opts...)}, nil
}

// FEN renders the current position as a FEN record.
func (p *Position) FEN() string {
	return p.game.FEN()
}

// Turn reports the side to move.
func (p *Position) Turn() Color {
	if p.game.Position().Turn() == nchess.White {
		return White
	}
	return Black
}

// Chess960 reports whether castling moves are rendered in Chess960 notation
// (king takes rook) rather than the classical king-destination form.
func (p *Position) Chess960() bool {
	return p.chess960
}

func (p *Position) SetChess960(on bool) {
	p.chess960 = on
}

// LegalMoves enumerates every legal move in generation order.
func (p *Position) LegalMoves() []Move {
	valid := p.game.ValidMoves()
	moves := make([]Move, 0, len(valid))
	for i := range valid {
		moves = append(moves, fromLibMove(&valid[i]))
	}
	return moves
}

// Apply plays m on the position. The move must match a legal move exactly,
// including its special-move type: a plain from/to pair never stands in for
// a castle, promotion, or en passant capture.
func (p *Position) Apply(m Move) error {
	valid := p.game.ValidMoves()
	for i := range valid {
		if fromLibMove(&valid[i]) != m {
			continue
		}
		mv := valid[i]
		if err := p.game.Move(&mv, nil); err != nil {
			return fmt.Errorf("apply %v: %w", m, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrIllegalMove, m)
}

// CastlingMove returns the legal castling move for side, if any.
func (p *Position) CastlingMove(side CastleSide) (Move, error) {
	tag := nchess.KingSideCastle
	if side == QueenSide {
		tag = nchess.QueenSideCastle
	}
	valid := p.game.ValidMoves()
	for i := range valid {
		if valid[i].HasTag(tag) {
			return fromLibMove(&valid[i]), nil
		}
	}
	return MoveNone, fmt.Errorf("%w: no %v castle", ErrIllegalMove, side)
}

// EnPassantMove returns the legal en passant capture from the given origin,
// if any.
func (p *Position) EnPassantMove(from Square) (Move, error) {
	valid := p.game.ValidMoves()
	for i := range valid {
		if valid[i].HasTag(nchess.EnPassant) && fromLibSquare(valid[i].S1()) == from {
			return fromLibMove(&valid[i]), nil
		}
	}
	return MoveNone, fmt.Errorf("%w: no en passant capture from %v", ErrIllegalMove, from)
}

// HalfMoveClock reports the number of half-moves since the last capture or
// pawn advance, as recorded in the FEN halfmove field.
func (p *Position) HalfMoveClock() int {
	fields := strings.Fields(p.game.FEN())
	if len(fields) < 5 {
		return 0
	}
	n, err := strconv.Atoi(fields[4])
	if err != nil {
		return 0
	}
	return n
}

// RepetitionDetected reports whether the current position has occurred at
// least three times over the game line.
func (p *Position) RepetitionDetected() bool {
	for _, method := range p.game.EligibleDraws() {
		if method == nchess.ThreefoldRepetition {
			return true
		}
	}
	return false
}

// IsDraw reports whether the game is drawn by threefold repetition or the
// fifty-move rule.
func (p *Position) IsDraw() bool {
	return p.RepetitionDetected() || p.HalfMoveClock() >= DrawHalfMoveLimit
}

func fromLibSquare(sq nchess.Square) Square {
	return NewSquare(int(sq.File()), int(sq.Rank()))
}

// fromLibMove maps a generated move to the compact encoding. Castles come
// out of the generator as king-to-destination pairs tagged with the castle
// side; they are re-pointed at the rook square to keep the encoding uniform
// between classical and Chess960 play.
func fromLibMove(mv *nchess.Move) Move {
	from := fromLibSquare(mv.S1())
	to := fromLibSquare(mv.S2())
	switch {
	case mv.HasTag(nchess.KingSideCastle):
		return NewCastlingMove(from, NewSquare(fileH, from.Rank()))
	case mv.HasTag(nchess.QueenSideCastle):
		return NewCastlingMove(from, NewSquare(fileA, from.Rank()))
	case mv.HasTag(nchess.EnPassant):
		return NewEnPassantMove(from, to)
	case mv.Promo() != nchess.NoPieceType:
		return NewPromotionMove(from, to, kindFromLib(mv.Promo()))
	default:
		return NewMove(from, to)
	}
}

func kindFromLib(pt nchess.PieceType) PieceKind {
	switch pt {
	case nchess.Pawn:
		return Pawn
	case nchess.Knight:
		return Knight
	case nchess.Bishop:
		return Bishop
	case nchess.Rook:
		return Rook
	case nchess.Queen:
		return Queen
	case nchess.King:
		return King
	default:
		return NoKind
	}
}

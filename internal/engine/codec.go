package engine

import "strings"

// Coordinate renders a move in coordinate notation (g1f3, a7a8q).
// Castling prints as e1g1 in standard display mode and as the raw
// king-captures-rook squares (e1h1) in chess960 mode. The sentinels
// render as "(none)" and "0000"; enumeration never produces either.
func Coordinate(m Move, chess960 bool) string {
	if m == MoveNone {
		return "(none)"
	}
	if m == MoveNull {
		return "0000"
	}

	from := m.From()
	to := m.To()

	if m.Type() == Castling && !chess960 {
		to = castleDisplaySquare(from, to)
	}

	text := from.String() + to.String()

	if m.Type() == Promotion {
		text += string(m.Promo().Letter())
	}
	return text
}

// castleDisplaySquare maps a rook destination to the conventional king
// landing square: file G when castling king-side (rook square beyond
// the king), file C otherwise, on the king's own rank.
func castleDisplaySquare(from, to Square) Square {
	if to > from {
		return NewSquare(fileG, from.Rank())
	}
	return NewSquare(fileC, from.Rank())
}

// DisplayMove flattens a castling move into its display form: a plain
// encoding from the king's origin to the conventional landing square, with
// the castle marker dropped. Every other move passes through unchanged.
func DisplayMove(m Move) Move {
	if m.Type() != Castling {
		return m
	}
	return NewMove(m.From(), castleDisplaySquare(m.From(), m.To()))
}

// ToMove resolves coordinate text against the position's legal moves:
// each legal move is rendered under the position's display mode and
// compared to the case-normalized input. A five-character input has
// its promotion letter lower-cased first. No match yields MoveNone;
// illegal or malformed text is signaled by the sentinel, never by an
// error.
func ToMove(pos *Position, text string) Move {
	if len(text) == 5 {
		text = text[:4] + strings.ToLower(text[4:])
	}

	for _, m := range pos.LegalMoves() {
		if text == Coordinate(m, pos.Chess960()) {
			return m
		}
	}
	return MoveNone
}

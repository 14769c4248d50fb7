package engine

// OrderedMatch reports whether the claimed (from, to) pairs are exactly the
// legal moves of pos, in generation order. The claimed count must equal the
// enumerated count and pair i must equal legal move i.
//
// Once the halfmove clock reaches DrawHalfMoveLimit the claim is accepted
// unconditionally, before the inputs are even length-checked: with a draw
// claimable by rule, any move set is treated as matching. Callers probing a
// position that close to the fifty-move boundary get no validation from
// this function at all, malformed input included.
func OrderedMatch(pos *Position, from, to []Square) bool {
	if pos.HalfMoveClock() >= DrawHalfMoveLimit {
		return true
	}
	if len(from) != len(to) {
		return false
	}
	legal := pos.LegalMoves()
	if len(legal) != len(from) {
		return false
	}
	for i, m := range legal {
		mFrom, mTo := displaySquares(m)
		if mFrom != from[i] || mTo != to[i] {
			return false
		}
	}
	return true
}

// UnorderedMatch reports whether the claimed (from, to) pairs are exactly
// the legal moves of pos, in any order. Matching preserves multiplicity:
// each claimed pair consumes one legal move, so a duplicated claim only
// matches a genuinely duplicated enumeration entry.
//
// The DrawHalfMoveLimit short-circuit applies exactly as in OrderedMatch.
func UnorderedMatch(pos *Position, from, to []Square) bool {
	if pos.HalfMoveClock() >= DrawHalfMoveLimit {
		return true
	}
	if len(from) != len(to) {
		return false
	}
	legal := pos.LegalMoves()
	if len(legal) != len(from) {
		return false
	}
	used := make([]bool, len(legal))
	for i := range from {
		matched := false
		for j, m := range legal {
			if used[j] {
				continue
			}
			mFrom, mTo := displaySquares(m)
			if mFrom == from[i] && mTo == to[i] {
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// displaySquares yields the comparison form of a move: castling destinations
// are folded to the conventional king landing square, so callers supply
// castle targets in display form (g1, c1), never the internal rook square.
func displaySquares(m Move) (Square, Square) {
	from, to := m.From(), m.To()
	if m.Type() == Castling {
		to = castleDisplaySquare(from, to)
	}
	return from, to
}

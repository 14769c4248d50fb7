package engine

import "testing"

func TestCoordinateSentinels(t *testing.T) {
	if got := Coordinate(MoveNone, false); got != "(none)" {
		t.Fatalf("none-move = %q", got)
	}
	if got := Coordinate(MoveNull, false); got != "0000" {
		t.Fatalf("null-move = %q", got)
	}
}

func TestCoordinatePlainAndPromotion(t *testing.T) {
	if got := Coordinate(NewMove(sq(t, "g1"), sq(t, "f3")), false); got != "g1f3" {
		t.Fatalf("plain move = %q", got)
	}
	if got := Coordinate(NewPromotionMove(sq(t, "a7"), sq(t, "a8"), Queen), false); got != "a7a8q" {
		t.Fatalf("queen promotion = %q", got)
	}
	if got := Coordinate(NewPromotionMove(sq(t, "b2"), sq(t, "b1"), Knight), false); got != "b2b1n" {
		t.Fatalf("knight promotion = %q", got)
	}
}

func TestCoordinateCastleDisplay(t *testing.T) {
	kingSide := NewCastlingMove(sq(t, "e1"), sq(t, "h1"))
	if got := Coordinate(kingSide, false); got != "e1g1" {
		t.Fatalf("king-side castle displays %q, want e1g1", got)
	}
	if got := Coordinate(kingSide, true); got != "e1h1" {
		t.Fatalf("king-side castle in chess960 displays %q, want e1h1", got)
	}

	queenSide := NewCastlingMove(sq(t, "e8"), sq(t, "a8"))
	if got := Coordinate(queenSide, false); got != "e8c8" {
		t.Fatalf("queen-side castle displays %q, want e8c8", got)
	}
	if got := Coordinate(queenSide, true); got != "e8a8" {
		t.Fatalf("queen-side castle in chess960 displays %q, want e8a8", got)
	}
}

func TestToMoveStartPosition(t *testing.T) {
	pos := mustPosition(t, "")

	m := ToMove(pos, "e2e4")
	if m == MoveNone {
		t.Fatalf("e2e4 not recognized")
	}
	if m.From() != sq(t, "e2") || m.To() != sq(t, "e4") || m.Type() != Normal {
		t.Fatalf("e2e4 decoded as %v -> %v type=%d", m.From(), m.To(), m.Type())
	}

	// Illegal and malformed text both yield the sentinel, never an error.
	if m := ToMove(pos, "e2e5"); m != MoveNone {
		t.Fatalf("illegal move resolved to %v", m)
	}
	if m := ToMove(pos, "zz"); m != MoveNone {
		t.Fatalf("malformed text resolved to %v", m)
	}
	if m := ToMove(pos, ""); m != MoveNone {
		t.Fatalf("empty text resolved to %v", m)
	}
}

func TestToMoveUppercasePromotionSuffix(t *testing.T) {
	pos := mustPosition(t, "8/P6k/8/8/8/8/8/7K w - - 0 1")

	want := ToMove(pos, "a7a8q")
	if want == MoveNone {
		t.Fatalf("a7a8q not recognized")
	}
	if got := ToMove(pos, "a7a8Q"); got != want {
		t.Fatalf("promotion suffix not case-normalized: %v vs %v", got, want)
	}
	if got := want.Promo(); got != Queen {
		t.Fatalf("promotion kind = %v", got)
	}
}

func TestToMoveCastleByDisplayMode(t *testing.T) {
	pos := mustPosition(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")

	m := ToMove(pos, "e1g1")
	if m == MoveNone || m.Type() != Castling {
		t.Fatalf("e1g1 did not resolve to a castle: %v", m)
	}
	if m.To() != sq(t, "h1") {
		t.Fatalf("castle encoding keeps rook square, got %v", m.To())
	}
	if got := ToMove(pos, "e1h1"); got != MoveNone {
		t.Fatalf("rook-square text resolved in standard mode: %v", got)
	}

	pos.SetChess960(true)
	if got := ToMove(pos, "e1h1"); got == MoveNone || got.Type() != Castling {
		t.Fatalf("e1h1 did not resolve to a castle in chess960 mode: %v", got)
	}
	if got := ToMove(pos, "e1g1"); got != MoveNone {
		t.Fatalf("display text resolved in chess960 mode: %v", got)
	}
}

func TestCoordinateRoundTripAllLegalMoves(t *testing.T) {
	for _, fen := range []string{
		"",
		"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1",
		"8/P6k/8/8/8/8/8/7K w - - 0 1",
		"k7/8/8/3pP3/8/8/8/K7 w - d6 0 1",
	} {
		pos := mustPosition(t, fen)
		for _, m := range pos.LegalMoves() {
			text := Coordinate(m, pos.Chess960())
			if got := ToMove(pos, text); got != m {
				t.Fatalf("fen %q: %q decoded to %v, want %v", fen, text, got, m)
			}
		}
	}
}

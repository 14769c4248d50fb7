package engine

import "fmt"

// Square indexes a board square 0..63, rank-major: a1=0, b1=1, ... h8=63.
// File and rank are recovered as s%8 and s/8.
type Square int

const SquareNone Square = -1

const (
	fileA = 0
	fileC = 2
	fileG = 6
	fileH = 7
)

func NewSquare(file, rank int) Square {
	return Square(rank*8 + file)
}

func (s Square) File() int { return int(s) % 8 }

func (s Square) Rank() int { return int(s) / 8 }

func (s Square) Valid() bool { return s >= 0 && s < 64 }

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

// ParseSquare reads two-character coordinate text such as "e4".
func ParseSquare(text string) (Square, error) {
	if len(text) != 2 {
		return SquareNone, fmt.Errorf("invalid square %q", text)
	}
	file := int(text[0] - 'a')
	rank := int(text[1] - '1')
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return SquareNone, fmt.Errorf("square out of range %q", text)
	}
	return NewSquare(file, rank), nil
}

// PieceKind enumerates piece types in the order that fixes promotion
// letters: " pnbrqk" indexed by kind.
type PieceKind int

const (
	NoKind PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

const pieceLetters = " pnbrqk"

func (k PieceKind) Letter() byte {
	if k <= NoKind || k > King {
		return ' '
	}
	return pieceLetters[k]
}

func (k PieceKind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "none"
	}
}

// ParsePieceKind reads a single piece letter, either case.
func ParsePieceKind(text string) (PieceKind, bool) {
	if len(text) != 1 {
		return NoKind, false
	}
	c := text[0]
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	for k := Pawn; k <= King; k++ {
		if pieceLetters[k] == c {
			return k, true
		}
	}
	return NoKind, false
}

// Color identifies the side to move.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// CastleSide selects king-side or queen-side castling.
type CastleSide int

const (
	KingSide CastleSide = iota
	QueenSide
)

func (c CastleSide) String() string {
	if c == QueenSide {
		return "queen-side"
	}
	return "king-side"
}

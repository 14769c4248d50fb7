package engine

// Move is the engine-internal move encoding, packed into 16 bits:
// bits 0-5 destination square, bits 6-11 origin square, bits 12-13
// promotion piece (offset from knight), bits 14-15 move type.
//
// Castling is always encoded as "king captures rook": the destination
// holds the rook's square, never the king's landing square. Display
// conversion happens in the codec, not here.
type Move uint16

// MoveType occupies the top two bits of a Move.
type MoveType uint16

const (
	Normal    MoveType = 0
	Promotion MoveType = 1 << 14
	EnPassant MoveType = 2 << 14
	Castling  MoveType = 3 << 14
)

// Reserved encodings. Both have origin == destination, which no legal
// move can produce, so they never collide with enumeration output.
const (
	MoveNone Move = 0
	MoveNull Move = 65
)

func NewMove(from, to Square) Move {
	return Move(from)<<6 | Move(to)
}

func NewPromotionMove(from, to Square, kind PieceKind) Move {
	if kind < Knight || kind > Queen {
		kind = Queen
	}
	return Move(Promotion) | Move(kind-Knight)<<12 | NewMove(from, to)
}

func NewEnPassantMove(from, to Square) Move {
	return Move(EnPassant) | NewMove(from, to)
}

// NewCastlingMove takes the king's origin and the rook's square.
func NewCastlingMove(kingFrom, rookSquare Square) Move {
	return Move(Castling) | NewMove(kingFrom, rookSquare)
}

func (m Move) From() Square { return Square(m>>6) & 0x3F }

func (m Move) To() Square { return Square(m) & 0x3F }

func (m Move) Type() MoveType { return MoveType(m) & (3 << 14) }

// Promo returns the promotion piece kind; Queen..Knight only carry
// meaning when Type() == Promotion.
func (m Move) Promo() PieceKind {
	return PieceKind((m>>12)&3) + Knight
}

// IsOK reports whether m is a plausible move encoding, i.e. neither
// sentinel and with distinct origin and destination.
func (m Move) IsOK() bool {
	return m.From() != m.To()
}

func (m Move) String() string {
	return Coordinate(m, false)
}

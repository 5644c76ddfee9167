package features

import (
	"github.com/dylhunn/dragontoothmg"
	"github.com/freeeve/pgn/v3"
)

// Pre-computed attack tables for non-sliding pieces
var (
	knightAttacks = leaperTable([][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}})
	kingAttacks   = leaperTable([][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}})
	pawnAttacks   = [2][64]uint64{
		leaperTable([][2]int{{-1, 1}, {1, 1}}),   // White captures toward rank 8
		leaperTable([][2]int{{-1, -1}, {1, -1}}), // Black captures toward rank 1
	}
)

// leaperTable builds per-square targets for a piece moving by fixed (file, rank) offsets.
func leaperTable(deltas [][2]int) [64]uint64 {
	var table [64]uint64
	for sq := 0; sq < 64; sq++ {
		file, rank := sq%8, sq/8
		for _, d := range deltas {
			f, r := file+d[0], rank+d[1]
			if f < 0 || f > 7 || r < 0 || r > 7 {
				continue
			}
			table[sq] |= 1 << uint(r*8+f)
		}
	}
	return table
}

// Colours and piece types index planes as colour*6 + piece.
const (
	white = iota
	black
)

const (
	pawn = iota
	knight
	bishop
	rook
	queen
	king
)

// board is the bitboard view of a position, a1 = bit 0.
type board struct {
	pieces      [2][6]uint64
	occupied    uint64
	whiteToMove bool
}

func newBoard(pos *pgn.GameState) board {
	b := dragontoothmg.ParseFen(pos.ToFEN())
	var out board
	for c, bb := range [2]*dragontoothmg.Bitboards{&b.White, &b.Black} {
		out.pieces[c] = [6]uint64{bb.Pawns, bb.Knights, bb.Bishops, bb.Rooks, bb.Queens, bb.Kings}
	}
	out.occupied = b.White.All | b.Black.All
	out.whiteToMove = b.Wtomove
	return out
}

// attacks returns the squares a piece of the given colour and type on sq attacks.
// Slider rays stop at, and include, the first occupied square.
func (b *board) attacks(colour, piece int, sq uint8) uint64 {
	switch piece {
	case pawn:
		return pawnAttacks[colour][sq]
	case knight:
		return knightAttacks[sq]
	case bishop:
		return dragontoothmg.CalculateBishopMoveBitboard(sq, b.occupied)
	case rook:
		return dragontoothmg.CalculateRookMoveBitboard(sq, b.occupied)
	case queen:
		return dragontoothmg.CalculateBishopMoveBitboard(sq, b.occupied) |
			dragontoothmg.CalculateRookMoveBitboard(sq, b.occupied)
	case king:
		return kingAttacks[sq]
	}
	return 0
}

// pieceIndex maps a rules-engine piece letter to (colour, piece).
func pieceIndex(p byte) (colour, piece int, ok bool) {
	colour = white
	if p >= 'a' && p <= 'z' {
		colour = black
		p -= 'a' - 'A'
	}
	switch p {
	case 'P':
		return colour, pawn, true
	case 'N':
		return colour, knight, true
	case 'B':
		return colour, bishop, true
	case 'R':
		return colour, rook, true
	case 'Q':
		return colour, queen, true
	case 'K':
		return colour, king, true
	}
	return 0, 0, false
}

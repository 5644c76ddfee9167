// Package features turns chess positions into fixed-size float32 plane tensors.
package features

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/freeeve/pgn/v3"
)

// ErrUnknownEncoding is returned for a feature count no encoder produces.
var ErrUnknownEncoding = errors.New("features: unknown encoding")

// Plane layout shared by both encoders.
const (
	PlanePieces    = 0  // 12 planes: White P,N,B,R,Q,K then Black P..K
	PlaneTurn      = 12 // +1 with White to move, -1 with Black to move
	PlaneAttacks   = 13 // 12 planes: squares attacked by each piece type and colour
	PlaneReachable = 25 // 12 planes: legal move destinations by moving piece type and colour

	FullFeatures   = 37
	LegacyFeatures = 13
)

// Encoder writes one position as an 8x8xF tensor into dst.
// dst must hold at least 64*Features() values; Encode zeroes it first.
// Cell (x, y, f) is at ((x*8)+y)*F + f with x the file and y = 7 - rank.
type Encoder interface {
	Name() string
	Features() int
	Encode(pos *pgn.GameState, dst []float32)
}

// Full encodes pieces, side to move, attacked squares and legal move targets.
type Full struct{}

// Legacy encodes pieces and side to move only.
type Legacy struct{}

// ByFeatures returns the encoder producing n planes.
func ByFeatures(n int) (Encoder, error) {
	switch n {
	case FullFeatures:
		return Full{}, nil
	case LegacyFeatures:
		return Legacy{}, nil
	}
	return nil, fmt.Errorf("%w: %d features", ErrUnknownEncoding, n)
}

func (Full) Name() string  { return "full" }
func (Full) Features() int { return FullFeatures }

func (Full) Encode(pos *pgn.GameState, dst []float32) {
	dst = dst[:64*FullFeatures]
	clear(dst)
	b := newBoard(pos)
	encodeBase(&b, dst, FullFeatures)

	for c := white; c <= black; c++ {
		for p := pawn; p <= king; p++ {
			plane := PlaneAttacks + c*6 + p
			for bb := b.pieces[c][p]; bb != 0; bb &= bb - 1 {
				sq := uint8(bits.TrailingZeros64(bb))
				setBits(dst, FullFeatures, plane, b.attacks(c, p, sq))
			}
		}
	}

	for _, mv := range pgn.GenerateLegalMoves(pos) {
		c, p, ok := pieceIndex(byte(pos.PieceAt(mv.From)))
		if !ok {
			continue
		}
		set(dst, FullFeatures, PlaneReachable+c*6+p, int(mv.To))
	}
}

func (Legacy) Name() string  { return "legacy" }
func (Legacy) Features() int { return LegacyFeatures }

func (Legacy) Encode(pos *pgn.GameState, dst []float32) {
	dst = dst[:64*LegacyFeatures]
	clear(dst)
	b := newBoard(pos)
	encodeBase(&b, dst, LegacyFeatures)
}

// encodeBase fills the piece and turn planes.
func encodeBase(b *board, dst []float32, f int) {
	for c := white; c <= black; c++ {
		for p := pawn; p <= king; p++ {
			setBits(dst, f, PlanePieces+c*6+p, b.pieces[c][p])
		}
	}
	turn := float32(1)
	if !b.whiteToMove {
		turn = -1
	}
	for cell := 0; cell < 64; cell++ {
		dst[cell*f+PlaneTurn] = turn
	}
}

func setBits(dst []float32, f, plane int, bb uint64) {
	for ; bb != 0; bb &= bb - 1 {
		set(dst, f, plane, bits.TrailingZeros64(bb))
	}
}

// set marks square sq (a1 = 0) in plane.
func set(dst []float32, f, plane, sq int) {
	dst[Index(sq%8, 7-sq/8, plane, f)] = 1
}

// Index returns the offset of cell (x, y, plane) in an 8x8xf tensor.
func Index(x, y, plane, f int) int {
	return ((x*8)+y)*f + plane
}

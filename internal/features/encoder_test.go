package features

import (
	"errors"
	"testing"

	"github.com/freeeve/pgn/v3"
)

func planeSum(dst []float32, f, plane int) float32 {
	var sum float32
	for cell := 0; cell < 64; cell++ {
		sum += dst[cell*f+plane]
	}
	return sum
}

func encode(t *testing.T, enc Encoder, sans ...string) []float32 {
	t.Helper()
	pos := pgn.NewStartingPosition()
	for _, san := range sans {
		mv, err := pgn.ParseSAN(pos, san)
		if err != nil {
			t.Fatalf("ParseSAN %s: %v", san, err)
		}
		if err := pgn.ApplyMove(pos, mv); err != nil {
			t.Fatalf("ApplyMove %s: %v", san, err)
		}
	}
	dst := make([]float32, 64*enc.Features())
	for i := range dst {
		dst[i] = 7 // Encode must overwrite stale values
	}
	enc.Encode(pos, dst)
	return dst
}

func TestFull_StartPosition(t *testing.T) {
	const f = FullFeatures
	dst := encode(t, Full{})

	var occupied float32
	for plane := PlanePieces; plane < PlanePieces+12; plane++ {
		occupied += planeSum(dst, f, plane)
	}
	if occupied != 32 {
		t.Errorf("occupancy planes hold %v ones, want 32", occupied)
	}
	for cell := 0; cell < 64; cell++ {
		if got := dst[cell*f+PlaneTurn]; got != 1 {
			t.Fatalf("turn plane cell %d = %v, want 1", cell, got)
		}
	}

	tests := []struct {
		name  string
		plane int
		want  float32
	}{
		{"white pawns", PlanePieces + pawn, 8},
		{"black king", PlanePieces + 6 + king, 1},
		{"white pawn attacks", PlaneAttacks + pawn, 8},
		{"white knight attacks", PlaneAttacks + knight, 6},
		{"white rook attacks", PlaneAttacks + rook, 4},
		{"black pawn attacks", PlaneAttacks + 6 + pawn, 8},
		{"white pawn moves", PlaneReachable + pawn, 16},
		{"white knight moves", PlaneReachable + knight, 4},
		{"white king moves", PlaneReachable + king, 0},
		{"black pawn moves", PlaneReachable + 6 + pawn, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := planeSum(dst, f, tt.plane); got != tt.want {
				t.Errorf("plane %d sum = %v, want %v", tt.plane, got, tt.want)
			}
		})
	}
}

func TestFull_Orientation(t *testing.T) {
	const f = FullFeatures
	dst := encode(t, Full{})

	// a1 white rook: x=0, y=7. h8 black rook: x=7, y=0.
	if dst[Index(0, 7, PlanePieces+rook, f)] != 1 {
		t.Error("white rook missing at a1")
	}
	if dst[Index(7, 0, PlanePieces+6+rook, f)] != 1 {
		t.Error("black rook missing at h8")
	}
	// e2-e4 is reachable, e2-e5 is not.
	if dst[Index(4, 4, PlaneReachable+pawn, f)] != 1 {
		t.Error("e4 not reachable by a white pawn")
	}
	if dst[Index(4, 3, PlaneReachable+pawn, f)] != 0 {
		t.Error("e5 marked reachable by a white pawn")
	}
}

func TestFull_AfterE4(t *testing.T) {
	const f = FullFeatures
	dst := encode(t, Full{}, "e4")

	for cell := 0; cell < 64; cell++ {
		if got := dst[cell*f+PlaneTurn]; got != -1 {
			t.Fatalf("turn plane cell %d = %v, want -1", cell, got)
		}
	}
	if got := planeSum(dst, f, PlaneReachable+6+pawn); got != 16 {
		t.Errorf("black pawn moves = %v, want 16", got)
	}
	if got := planeSum(dst, f, PlaneReachable+pawn); got != 0 {
		t.Errorf("white pawn moves with black to move = %v, want 0", got)
	}
	// The bishop on f1 now sees e2, d3, c4, b5, a6 and its blocker g2.
	if got := planeSum(dst, f, PlaneAttacks+bishop); got < 6 {
		t.Errorf("white bishop attacks = %v, want at least 6", got)
	}
	if dst[Index(0, 2, PlaneAttacks+bishop, f)] != 1 {
		t.Error("a6 not attacked by the white bishop")
	}
}

func TestLegacy_MatchesFullBasePlanes(t *testing.T) {
	full := encode(t, Full{}, "d4", "Nf6", "c4")
	legacy := encode(t, Legacy{}, "d4", "Nf6", "c4")

	for cell := 0; cell < 64; cell++ {
		for plane := 0; plane < LegacyFeatures; plane++ {
			if full[cell*FullFeatures+plane] != legacy[cell*LegacyFeatures+plane] {
				t.Fatalf("cell %d plane %d differs", cell, plane)
			}
		}
	}
}

func TestByFeatures(t *testing.T) {
	for _, n := range []int{FullFeatures, LegacyFeatures} {
		enc, err := ByFeatures(n)
		if err != nil {
			t.Fatalf("ByFeatures(%d): %v", n, err)
		}
		if enc.Features() != n {
			t.Errorf("ByFeatures(%d).Features() = %d", n, enc.Features())
		}
	}
	if _, err := ByFeatures(12); !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("ByFeatures(12) = %v, want ErrUnknownEncoding", err)
	}
}

func TestLeaperTables(t *testing.T) {
	tests := []struct {
		name  string
		table [64]uint64
		sq    int
		want  int
	}{
		{"knight corner", knightAttacks, 0, 2},
		{"knight center", knightAttacks, 27, 8},
		{"king corner", kingAttacks, 63, 3},
		{"king center", kingAttacks, 36, 8},
		{"white pawn a-file", pawnAttacks[white], 8, 1},
		{"black pawn center", pawnAttacks[black], 52, 2},
		{"white pawn last rank", pawnAttacks[white], 60, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := 0
			for bb := tt.table[tt.sq]; bb != 0; bb &= bb - 1 {
				got++
			}
			if got != tt.want {
				t.Errorf("targets = %d, want %d", got, tt.want)
			}
		})
	}
}

package game

import (
	"errors"
	"fmt"

	"github.com/freeeve/pgn/v3"
)

// Move encoding (uint16):
//   bit  15:     always 0
//   bits 12-14:  promotion (0=none, 1=P, 2=N, 3=B, 4=R, 5=Q, 6=K)
//   bits 6-11:   from square, file in bits 9-11, rank in bits 6-8
//   bits 0-5:    to square, file in bits 3-5, rank in bits 0-2

const (
	moveToMask     = 0x3F   // bits 0-5
	moveFromMask   = 0xFC0  // bits 6-11
	movePromoMask  = 0x7000 // bits 12-14
	moveFromShift  = 6
	movePromoShift = 12
)

// ErrIllegalMove is returned when a move has no legal counterpart in a position.
var ErrIllegalMove = errors.New("illegal move")

// Move is a from/to/promotion triple packed into 16 bits.
type Move uint16

// Square is a board square index, a1=0, b1=1, ..., h8=63.
type Square uint8

// NewSquare returns the square at the given file and rank (both 0-7).
func NewSquare(file, rank int) Square {
	return Square(rank*8 + file)
}

// File returns the file of the square (0=a).
func (s Square) File() int { return int(s) % 8 }

// Rank returns the rank of the square (0=first rank).
func (s Square) Rank() int { return int(s) / 8 }

func (s Square) String() string {
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

// packed returns the 6-bit wire form of the square: file<<3 | rank.
func (s Square) packed() uint16 {
	return uint16(s.File())<<3 | uint16(s.Rank())
}

func unpackSquare(v uint16) Square {
	return NewSquare(int(v>>3)&7, int(v)&7)
}

// Promotion is the piece a pawn promotes to. The numeric values are the wire codes.
type Promotion uint8

const (
	PromoNone Promotion = iota
	PromoPawn
	PromoKnight
	PromoBishop
	PromoRook
	PromoQueen
	PromoKing
)

var promoLetters = [...]byte{0, 'p', 'n', 'b', 'r', 'q', 'k'}

// NewMove packs a move.
func NewMove(from, to Square, promo Promotion) Move {
	m := from.packed()<<moveFromShift | to.packed() | uint16(promo&7)<<movePromoShift
	return Move(m)
}

// From returns the source square.
func (m Move) From() Square {
	return unpackSquare(uint16(m&moveFromMask) >> moveFromShift)
}

// To returns the destination square.
func (m Move) To() Square {
	return unpackSquare(uint16(m & moveToMask))
}

// Promotion returns the promotion piece.
func (m Move) Promotion() Promotion {
	return Promotion(uint16(m&movePromoMask) >> movePromoShift)
}

// UCI converts the move to UCI notation (e.g., "e2e4", "e7e8q").
func (m Move) UCI() string {
	uci := m.From().String() + m.To().String()
	if p := m.Promotion(); p != PromoNone && int(p) < len(promoLetters) {
		uci += string(promoLetters[p])
	}
	return uci
}

func (m Move) String() string {
	return m.UCI()
}

// ParseUCI parses a UCI move string into a Move.
// Examples: "e2e4", "e7e8q", "a1h8"
func ParseUCI(uci string) (Move, error) {
	if len(uci) < 4 || len(uci) > 5 {
		return 0, fmt.Errorf("invalid UCI move length: %q", uci)
	}

	fromFile := int(uci[0]) - 'a'
	fromRank := int(uci[1]) - '1'
	toFile := int(uci[2]) - 'a'
	toRank := int(uci[3]) - '1'

	if fromFile < 0 || fromFile > 7 || fromRank < 0 || fromRank > 7 {
		return 0, fmt.Errorf("invalid from square in UCI: %s", uci)
	}
	if toFile < 0 || toFile > 7 || toRank < 0 || toRank > 7 {
		return 0, fmt.Errorf("invalid to square in UCI: %s", uci)
	}

	promo := PromoNone
	if len(uci) == 5 {
		found := false
		for p := PromoPawn; p <= PromoKing; p++ {
			if promoLetters[p] == uci[4] || promoLetters[p]-32 == uci[4] {
				promo, found = p, true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("invalid promotion piece: %c", uci[4])
		}
	}

	return NewMove(NewSquare(fromFile, fromRank), NewSquare(toFile, toRank), promo), nil
}

// FromEngine converts a rules engine move.
func FromEngine(mv pgn.Mv) Move {
	promo := PromoNone
	switch mv.Promo {
	case pgn.PromoQueen:
		promo = PromoQueen
	case pgn.PromoRook:
		promo = PromoRook
	case pgn.PromoBishop:
		promo = PromoBishop
	case pgn.PromoKnight:
		promo = PromoKnight
	}
	return NewMove(Square(mv.From), Square(mv.To), promo)
}

// Resolve finds the legal engine move in pos that matches m.
// Castling and en passant flags come from the engine's move generator.
func (m Move) Resolve(pos *pgn.GameState) (pgn.Mv, error) {
	for _, mv := range pgn.GenerateLegalMoves(pos) {
		if FromEngine(mv) == m {
			return mv, nil
		}
	}
	return pgn.Mv{}, fmt.Errorf("%w: %s", ErrIllegalMove, m.UCI())
}

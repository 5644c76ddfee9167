package game

import (
	"github.com/freeeve/pgn/v3"
)

const (
	flagEnPassant = 2
	flagCastle    = 4
)

// SAN renders an engine move in standard algebraic notation for pos.
// pos is not modified.
func SAN(pos *pgn.GameState, mv pgn.Mv) string {
	if mv.Flags == flagCastle {
		san := "O-O-O"
		if mv.To > mv.From {
			san = "O-O"
		}
		return san + checkSuffix(pos, mv)
	}

	fromSq := Square(mv.From)
	toSq := Square(mv.To)

	// PieceAt returns 'P', 'N', 'B', 'R', 'Q', 'K' for white, lowercase for black
	piece := byte(pos.PieceAt(mv.From))
	isPawn := piece == 'P' || piece == 'p'
	isCapture := byte(pos.PieceAt(mv.To)) != 0 || (isPawn && mv.Flags == flagEnPassant)

	var san string
	if isPawn {
		if isCapture {
			san = string(byte('a'+fromSq.File())) + "x" + toSq.String()
		} else {
			san = toSq.String()
		}
		switch mv.Promo {
		case pgn.PromoQueen:
			san += "=Q"
		case pgn.PromoRook:
			san += "=R"
		case pgn.PromoBishop:
			san += "=B"
		case pgn.PromoKnight:
			san += "=N"
		}
	} else {
		pieceChar := upper(piece)
		san = string(pieceChar) + disambiguation(pos, mv, pieceChar)
		if isCapture {
			san += "x"
		}
		san += toSq.String()
	}

	return san + checkSuffix(pos, mv)
}

// disambiguation returns the file, rank or square needed to tell mv apart
// from other legal moves of the same piece type to the same square.
func disambiguation(pos *pgn.GameState, mv pgn.Mv, pieceChar byte) string {
	from := Square(mv.From)
	var sameFile, sameRank, ambiguous bool
	for _, other := range pgn.GenerateLegalMoves(pos) {
		if other.To != mv.To || other.From == mv.From {
			continue
		}
		if upper(byte(pos.PieceAt(other.From))) != pieceChar {
			continue
		}
		ambiguous = true
		o := Square(other.From)
		if o.File() == from.File() {
			sameFile = true
		}
		if o.Rank() == from.Rank() {
			sameRank = true
		}
	}
	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(byte('a' + from.File()))
	case !sameRank:
		return string(byte('1' + from.Rank()))
	default:
		return from.String()
	}
}

func checkSuffix(pos *pgn.GameState, mv pgn.Mv) string {
	child := pos.Pack().Unpack()
	if child == nil {
		return ""
	}
	if err := pgn.ApplyMove(child, mv); err != nil {
		return ""
	}
	if !child.IsInCheck() {
		return ""
	}
	if len(pgn.GenerateLegalMoves(child)) == 0 {
		return "#"
	}
	return "+"
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 32
	}
	return c
}

package gamedb

import (
	"encoding/binary"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/freeeve/chessgraph/trainer/internal/game"
)

// record is the on-disk document for one game.
type record struct {
	White    string `bson:"white"`
	Black    string `bson:"black"`
	WhiteElo int32  `bson:"white_elo"`
	BlackElo int32  `bson:"black_elo"`
	Outcome  int32  `bson:"outcome"`
	TCSec    int32  `bson:"tc_sec"`
	TCInc    int32  `bson:"tc_inc"`
	Moves    []byte `bson:"moves"`
}

// MarshalGame encodes g as a record body (without the length prefix).
func MarshalGame(g *game.Game) ([]byte, error) {
	moves := make([]byte, 2*len(g.Moves))
	for i, m := range g.Moves {
		binary.LittleEndian.PutUint16(moves[2*i:], uint16(m))
	}
	rec := record{
		White:    g.WhiteName,
		Black:    g.BlackName,
		WhiteElo: g.WhiteElo,
		BlackElo: g.BlackElo,
		Outcome:  int32(g.Outcome),
		TCSec:    g.TimeControlSeconds,
		TCInc:    g.TimeControlIncrement,
		Moves:    moves,
	}
	data, err := bson.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal game: %w", err)
	}
	return data, nil
}

// UnmarshalGame decodes a record body produced by MarshalGame.
func UnmarshalGame(data []byte) (*game.Game, error) {
	var rec record
	if err := bson.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode record: %v", ErrFormat, err)
	}
	if len(rec.Moves)%2 != 0 {
		return nil, fmt.Errorf("%w: odd move blob length %d", ErrFormat, len(rec.Moves))
	}
	if rec.Outcome < int32(game.WhiteWin) || rec.Outcome > int32(game.Draw) {
		return nil, fmt.Errorf("%w: outcome %d", ErrFormat, rec.Outcome)
	}

	g := &game.Game{
		WhiteName:            rec.White,
		BlackName:            rec.Black,
		WhiteElo:             rec.WhiteElo,
		BlackElo:             rec.BlackElo,
		Outcome:              game.Outcome(rec.Outcome),
		TimeControlSeconds:   rec.TCSec,
		TimeControlIncrement: rec.TCInc,
		Moves:                make([]game.Move, len(rec.Moves)/2),
	}
	for i := range g.Moves {
		g.Moves[i] = game.Move(binary.LittleEndian.Uint16(rec.Moves[2*i:]))
	}
	return g, nil
}

package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/freeeve/pgn/v3"

	"github.com/freeeve/chessgraph/trainer/internal/game"
	"github.com/freeeve/chessgraph/trainer/internal/gamedb"
)

// Required fields, tracked as bits of Visitor.have.
const (
	haveWhiteName = 1 << iota
	haveBlackName
	haveWhiteElo
	haveBlackElo
	haveTCSeconds
	haveTCIncrement
	haveOutcome

	haveAll = haveWhiteName | haveBlackName | haveWhiteElo | haveBlackElo |
		haveTCSeconds | haveTCIncrement | haveOutcome
)

var fieldNames = [...]string{
	"White", "Black", "WhiteElo", "BlackElo",
	"TimeControl seconds", "TimeControl increment", "Result",
}

// Visitor turns scanner events into games. It keeps the mainline only and
// replays every move on a rules-engine position.
type Visitor struct {
	pos  *pgn.GameState
	g    game.Game
	have uint8
	skip bool
	err  error
}

// NewVisitor returns a Visitor ready for the first game.
func NewVisitor() *Visitor {
	v := &Visitor{}
	v.BeginGame()
	return v
}

func (v *Visitor) BeginGame() {
	v.pos = pgn.NewStartingPosition()
	v.g = game.Game{}
	v.have = 0
	v.skip = false
	v.err = nil
}

func (v *Visitor) Header(key, value string) {
	switch key {
	case "White":
		v.g.WhiteName = value
		v.have |= haveWhiteName
	case "Black":
		v.g.BlackName = value
		v.have |= haveBlackName
	case "WhiteElo":
		if elo, ok := v.parseElo(key, value); ok {
			v.g.WhiteElo = elo
			v.have |= haveWhiteElo
		}
	case "BlackElo":
		if elo, ok := v.parseElo(key, value); ok {
			v.g.BlackElo = elo
			v.have |= haveBlackElo
		}
	case "TimeControl":
		v.parseTimeControl(value)
	case "Result":
		outcome, ok := game.ParseOutcome(value)
		if !ok {
			v.skip = true
			return
		}
		v.g.Outcome = outcome
		v.have |= haveOutcome
	case "Termination":
		if value != "Normal" {
			v.skip = true
		}
	}
}

func (v *Visitor) parseElo(key, value string) (int32, bool) {
	elo, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		v.fail(fmt.Errorf("%w: %s %q", gamedb.ErrValidation, key, value))
		return 0, false
	}
	return int32(elo), true
}

func (v *Visitor) parseTimeControl(value string) {
	if value == "-" {
		v.g.TimeControlSeconds = game.Untimed
		v.g.TimeControlIncrement = game.Untimed
		v.have |= haveTCSeconds | haveTCIncrement
		return
	}

	secs, inc, hasInc := strings.Cut(value, "+")
	s, err := strconv.ParseInt(secs, 10, 32)
	if err != nil {
		v.fail(fmt.Errorf("%w: TimeControl %q", gamedb.ErrValidation, value))
		return
	}
	var i int64
	if hasInc {
		if i, err = strconv.ParseInt(inc, 10, 32); err != nil {
			v.fail(fmt.Errorf("%w: TimeControl %q", gamedb.ErrValidation, value))
			return
		}
	}
	v.g.TimeControlSeconds = int32(s)
	v.g.TimeControlIncrement = int32(i)
	v.have |= haveTCSeconds | haveTCIncrement
}

// fail keeps the first error seen in the current game.
func (v *Visitor) fail(err error) {
	if v.err == nil {
		v.err = err
	}
}

func (v *Visitor) EndHeaders() bool {
	return v.skip
}

func (v *Visitor) BeginVariation() bool {
	return true
}

func (v *Visitor) SAN(san string) error {
	san = strings.TrimRight(san, "+#")
	mv, err := pgn.ParseSAN(v.pos, san)
	if err != nil {
		return fmt.Errorf("%w: ply %d: san %q: %v", gamedb.ErrValidation, len(v.g.Moves)+1, san, err)
	}
	if err := pgn.ApplyMove(v.pos, mv); err != nil {
		return fmt.Errorf("%w: ply %d: apply %q: %v", gamedb.ErrValidation, len(v.g.Moves)+1, san, err)
	}
	v.g.Moves = append(v.g.Moves, game.FromEngine(mv))
	return nil
}

// EndGame returns nil for skipped games. A game that was not skipped must
// carry every required header.
func (v *Visitor) EndGame() (*game.Game, error) {
	if v.skip {
		return nil, nil
	}
	if v.err != nil {
		return nil, v.err
	}
	if v.have != haveAll {
		var missing []string
		for i, name := range fieldNames {
			if v.have&(1<<i) == 0 {
				missing = append(missing, name)
			}
		}
		return nil, fmt.Errorf("%w: missing %s", gamedb.ErrValidation, strings.Join(missing, ", "))
	}
	g := v.g
	return &g, nil
}

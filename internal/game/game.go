package game

import (
	"fmt"
	"math"
)

// Untimed is stored in both time control fields of games played without a clock.
const Untimed int32 = math.MaxInt32

// Outcome is the final result of a game.
type Outcome uint8

const (
	WhiteWin Outcome = iota
	BlackWin
	Draw
)

// ParseOutcome maps a PGN Result tag to an Outcome.
// Unfinished or unknown results ("*") report ok=false.
func ParseOutcome(s string) (o Outcome, ok bool) {
	switch s {
	case "1-0":
		return WhiteWin, true
	case "0-1":
		return BlackWin, true
	case "1/2-1/2":
		return Draw, true
	}
	return 0, false
}

func (o Outcome) String() string {
	switch o {
	case WhiteWin:
		return "1-0"
	case BlackWin:
		return "0-1"
	case Draw:
		return "1/2-1/2"
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// OneHot returns the outcome as [WhiteWin, Draw, BlackWin].
func (o Outcome) OneHot() [3]float32 {
	switch o {
	case WhiteWin:
		return [3]float32{1, 0, 0}
	case Draw:
		return [3]float32{0, 1, 0}
	default:
		return [3]float32{0, 0, 1}
	}
}

// Game is one finished game reduced to what the training pipeline needs.
type Game struct {
	WhiteName            string
	BlackName            string
	WhiteElo             int32
	BlackElo             int32
	Outcome              Outcome
	TimeControlSeconds   int32
	TimeControlIncrement int32
	Moves                []Move
}

// Untimed reports whether the game was played without a time control.
func (g *Game) Untimed() bool {
	return g.TimeControlSeconds == Untimed && g.TimeControlIncrement == Untimed
}

// TimeControl renders the PGN TimeControl tag value.
func (g *Game) TimeControl() string {
	if g.Untimed() {
		return "-"
	}
	return fmt.Sprintf("%d+%d", g.TimeControlSeconds, g.TimeControlIncrement)
}

// Equal reports whether two games have identical fields and moves.
func (g *Game) Equal(o *Game) bool {
	if g.WhiteName != o.WhiteName || g.BlackName != o.BlackName ||
		g.WhiteElo != o.WhiteElo || g.BlackElo != o.BlackElo ||
		g.Outcome != o.Outcome ||
		g.TimeControlSeconds != o.TimeControlSeconds ||
		g.TimeControlIncrement != o.TimeControlIncrement ||
		len(g.Moves) != len(o.Moves) {
		return false
	}
	for i := range g.Moves {
		if g.Moves[i] != o.Moves[i] {
			return false
		}
	}
	return true
}

// Filter selects games by rating.
type Filter struct {
	MinElo     int32 // Both players must be rated strictly above this
	MaxEloDiff int32 // Maximum absolute rating difference
}

// DefaultFilter accepts every rated game.
func DefaultFilter() Filter {
	return Filter{MinElo: 0, MaxEloDiff: 5000}
}

// Accept reports whether g passes the filter.
func (f Filter) Accept(g *Game) bool {
	diff := g.BlackElo - g.WhiteElo
	if diff < 0 {
		diff = -diff
	}
	return diff <= f.MaxEloDiff && g.WhiteElo > f.MinElo && g.BlackElo > f.MinElo
}

package game

import (
	"fmt"
	"io"
	"strings"

	"github.com/freeeve/pgn/v3"
)

// SANMoves replays the game from the starting position and returns its moves in SAN.
func (g *Game) SANMoves() ([]string, error) {
	pos := pgn.NewStartingPosition()
	sans := make([]string, 0, len(g.Moves))
	for i, m := range g.Moves {
		mv, err := m.Resolve(pos)
		if err != nil {
			return nil, fmt.Errorf("ply %d: %w", i+1, err)
		}
		sans = append(sans, SAN(pos, mv))
		if err := pgn.ApplyMove(pos, mv); err != nil {
			return nil, fmt.Errorf("ply %d: apply %s: %w", i+1, m.UCI(), err)
		}
	}
	return sans, nil
}

// WritePGN writes the game as PGN with the tags the ingest path reads back.
func (g *Game) WritePGN(w io.Writer) error {
	sans, err := g.SANMoves()
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[White %q]\n", g.WhiteName)
	fmt.Fprintf(&sb, "[WhiteElo \"%d\"]\n", g.WhiteElo)
	fmt.Fprintf(&sb, "[Black %q]\n", g.BlackName)
	fmt.Fprintf(&sb, "[BlackElo \"%d\"]\n", g.BlackElo)
	fmt.Fprintf(&sb, "[TimeControl %q]\n", g.TimeControl())
	sb.WriteString("[Termination \"Normal\"]\n")
	fmt.Fprintf(&sb, "[Result %q]\n\n", g.Outcome.String())

	for i, san := range sans {
		if i%2 == 0 {
			fmt.Fprintf(&sb, "%d. ", i/2+1)
		}
		sb.WriteString(san)
		sb.WriteByte(' ')
	}
	sb.WriteString(g.Outcome.String())
	sb.WriteString("\n\n")

	_, err = io.WriteString(w, sb.String())
	return err
}

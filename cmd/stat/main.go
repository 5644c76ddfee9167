package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/freeeve/chessgraph/trainer/internal/config"
	"github.com/freeeve/chessgraph/trainer/internal/game"
	"github.com/freeeve/chessgraph/trainer/internal/gamedb"
	"github.com/freeeve/chessgraph/trainer/internal/logx"
	"github.com/freeeve/chessgraph/trainer/internal/traindata"
)

func main() {
	fs := config.NewFlagSet("stat")
	cfg, err := config.Parse(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: stat <games.bin|shard.bin>...")
		os.Exit(1)
	}

	logger, err := logx.New(cfg.LogOptions())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tKIND\tSIZE\tGAMES/ROWS\tDETAIL")
	for _, path := range fs.Args() {
		line, err := describe(path)
		if err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("stat failed")
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()
}

// describe summarises a game database or a training-data shard.
func describe(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	size := humanize.Bytes(uint64(fi.Size()))

	dec, err := gamedb.Open(path)
	if errors.Is(err, gamedb.ErrFormat) {
		b, err := traindata.ReadFile(path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s\tshard\t%s\t%d\tfeatures=%d in=%v out=%v",
			path, size, b.Rows, b.Features, b.InputShape(), b.OutputShape()), nil
	}
	if err != nil {
		return "", err
	}
	defer dec.Close()

	var games, moves int64
	var outcomes [3]int64
	var eloSum int64
	for {
		g, err := dec.ReadGame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		games++
		moves += int64(len(g.Moves))
		outcomes[g.Outcome]++
		eloSum += int64(g.WhiteElo) + int64(g.BlackElo)
	}

	avgElo, avgPlies := 0.0, 0.0
	if games > 0 {
		avgElo = float64(eloSum) / float64(2*games)
		avgPlies = float64(moves) / float64(games)
	}
	return fmt.Sprintf("%s\tgames\t%s\t%s\t%s=%d %s=%d %s=%d avg_elo=%.0f avg_plies=%.1f",
		path, size, humanize.Comma(games),
		game.WhiteWin, outcomes[game.WhiteWin],
		game.Draw, outcomes[game.Draw],
		game.BlackWin, outcomes[game.BlackWin],
		avgElo, avgPlies), nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/freeeve/chessgraph/trainer/internal/config"
	"github.com/freeeve/chessgraph/trainer/internal/ingest"
	"github.com/freeeve/chessgraph/trainer/internal/logx"
)

func main() {
	fs := config.NewFlagSet("convert")
	inputPath := fs.String("in", "", "Input file: .pgn, .pgn.zst or .bin")
	outputPath := fs.String("out", "", "Output file: .bin for PGN input, .pgn for .bin input")
	fs.Int32("min-elo", 0, "Both players must be rated above this")
	fs.Int32("max-elo-diff", 5000, "Maximum rating difference between the players")

	cfg, err := config.Parse(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *inputPath == "" || *outputPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: convert --in <games.pgn[.zst]|games.bin> --out <games.bin|games.pgn> [options]")
		fs.PrintDefaults()
		os.Exit(1)
	}

	logger, err := logx.New(cfg.LogOptions())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	filter := cfg.Filter()
	logger.Info().
		Str("in", *inputPath).
		Str("out", *outputPath).
		Int32("min_elo", filter.MinElo).
		Int32("max_elo_diff", filter.MaxEloDiff).
		Msg("starting convert")

	var stats ingest.Stats
	if strings.HasSuffix(*inputPath, ".bin") {
		stats, err = ingest.ExportPGN(ctx, *inputPath, *outputPath, filter, logger)
	} else {
		stats, err = ingest.ConvertPGN(ctx, *inputPath, *outputPath, filter, logger)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("convert failed")
	}

	logger.Info().
		Int64("games", stats.Games).
		Int64("skipped", stats.Skipped).
		Int64("filtered", stats.Filtered).
		Int64("moves", stats.Moves).
		Dur("elapsed", stats.Elapsed).
		Msg("done")
}

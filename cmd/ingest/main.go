package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/freeeve/chessgraph/trainer/internal/config"
	"github.com/freeeve/chessgraph/trainer/internal/ingest"
	"github.com/freeeve/chessgraph/trainer/internal/logx"
)

func main() {
	fs := config.NewFlagSet("ingest")
	once := fs.Bool("once", false, "Convert the files present now and exit")
	fs.String("watch-dir", "", "Directory to watch for PGN files")
	fs.String("out-dir", "./data", "Directory for converted game databases")
	fs.String("processed-dir", "", "Directory for converted PGN files (default <watch-dir>/processed)")
	fs.Duration("poll-interval", 0, "How often to check for new files (default 10s)")
	fs.Int("ingest-workers", 0, "Files converted in parallel (0 = all CPUs)")
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
	if cfg.WatchDir == "" {
		fmt.Fprintln(os.Stderr, "Usage: ingest --watch-dir <dir> [options]")
		fs.PrintDefaults()
		os.Exit(1)
	}

	logger, err := logx.New(cfg.LogOptions())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	worker, err := ingest.NewWorker(ingest.Config{
		WatchDir:     cfg.WatchDir,
		OutDir:       cfg.OutDir,
		ProcessedDir: cfg.ProcessedDir,
		PollInterval: cfg.PollInterval,
		NumWorkers:   cfg.IngestWorkers,
		Filter:       cfg.Filter(),
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create ingest worker")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		n, err := worker.ProcessNewFiles(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("ingest failed")
		}
		logger.Info().Int("files", n).Msg("ingest complete")
		return
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("ingest worker stopped")
	}
	logger.Info().Msg("ingest worker stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/freeeve/chessgraph/trainer/internal/config"
	"github.com/freeeve/chessgraph/trainer/internal/features"
	"github.com/freeeve/chessgraph/trainer/internal/logx"
	"github.com/freeeve/chessgraph/trainer/internal/traindata"
)

func main() {
	fs := config.NewFlagSet("encode")
	dbPath := fs.String("db", "", "Game database (.bin) to encode")
	name := fs.String("name", "", "Dataset name; shards go to <out-dir>/<name>/NNN.bin (default: database file name)")
	verify := fs.Bool("verify", false, "Stream the written shards back through the loader")
	fs.String("out-dir", "./data", "Output directory")
	fs.Int("games-per-shard", 100_000, "Games per shard")
	fs.Int("threads", 0, "Encoding workers (0 = all CPUs)")
	fs.Int("features", features.FullFeatures, "Feature planes: 37 (full) or 13 (legacy)")
	fs.Int("prefetch", 2, "Shards decoded ahead when verifying")

	cfg, err := config.Parse(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: encode --db <games.bin> [options]")
		fs.PrintDefaults()
		os.Exit(1)
	}

	logger, err := logx.New(cfg.LogOptions())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	enc, err := features.ByFeatures(cfg.Features)
	if err != nil {
		logger.Fatal().Err(err).Msg("select encoder")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info().
		Str("db", *dbPath).
		Str("out_dir", cfg.OutDir).
		Str("encoder", enc.Name()).
		Int("games_per_shard", cfg.GamesPerShard).
		Msg("starting encode")

	paths, err := traindata.WriteShards(ctx, traindata.ShardConfig{
		DBPath:        *dbPath,
		OutDir:        cfg.OutDir,
		Name:          *name,
		GamesPerShard: cfg.GamesPerShard,
		Builder:       &traindata.Builder{Threads: cfg.Threads, Encoder: enc, Logger: logger},
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("encode failed")
	}

	if *verify {
		if err := verifyShards(ctx, paths, cfg, logger); err != nil {
			logger.Fatal().Err(err).Msg("verify failed")
		}
	}
}

// verifyShards reads every shard back through the loader.
func verifyShards(ctx context.Context, paths []string, cfg *config.Config, logger zerolog.Logger) error {
	start := time.Now()
	loader := traindata.NewLoader(ctx, paths, traindata.LoaderConfig{
		Prefetch: cfg.Prefetch,
		Features: cfg.Features,
		Logger:   logger,
	})
	defer loader.Close()

	var batches, rows int
	var size uint64
	for {
		b, err := loader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		batches++
		rows += b.Rows
		size += b.SizeBytes()
	}
	if batches != len(paths) {
		return fmt.Errorf("loaded %d of %d shards", batches, len(paths))
	}

	logger.Info().
		Int("shards", batches).
		Int("positions", rows).
		Str("memory", humanize.Bytes(size)).
		Dur("elapsed", time.Since(start)).
		Msg("verify complete")
	return nil
}

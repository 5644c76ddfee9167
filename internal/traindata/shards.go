package traindata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/chessgraph/trainer/internal/gamedb"
)

// ShardConfig configures WriteShards.
type ShardConfig struct {
	DBPath        string         // Game database to read
	OutDir        string         // Shards go to OutDir/Name/NNN.bin
	Name          string         // Dataset name
	GamesPerShard int            // Games per shard, default 100000
	PendingWrites int            // Shards being written while the next one builds, default 2
	Builder       *Builder       // Defaults to a Builder with Full encoding
	Logger        zerolog.Logger // Logger
}

// WriteShards splits a game database into training-data shards and returns
// their paths in order. Each shard is written while the next one is built.
func WriteShards(ctx context.Context, cfg ShardConfig) ([]string, error) {
	if cfg.GamesPerShard <= 0 {
		cfg.GamesPerShard = 100_000
	}
	if cfg.PendingWrites <= 0 {
		cfg.PendingWrites = 2
	}
	if cfg.Name == "" {
		cfg.Name = filepathStem(cfg.DBPath)
	}
	builder := cfg.Builder
	if builder == nil {
		builder = &Builder{Logger: cfg.Logger}
	}

	dir := filepath.Join(cfg.OutDir, cfg.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dec, err := gamedb.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.PendingWrites)

	var paths []string
	var rows int
	var buildErr error
	for idx := 0; ; idx++ {
		blobs, err := dec.ReadRawBatch(cfg.GamesPerShard)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			buildErr = fmt.Errorf("%s: %w", cfg.DBPath, err)
			break
		}
		batch, err := builder.Build(gctx, blobs)
		if err != nil {
			buildErr = fmt.Errorf("shard %d: %w", idx, err)
			break
		}

		path := filepath.Join(dir, fmt.Sprintf("%03d.bin", idx))
		paths = append(paths, path)
		rows += batch.Rows
		g.Go(func() error {
			if err := WriteFile(path, batch); err != nil {
				return err
			}
			cfg.Logger.Info().
				Str("path", path).
				Int("games", len(blobs)).
				Int("positions", batch.Rows).
				Str("memory", humanize.Bytes(batch.SizeBytes())).
				Msg("shard written")
			return nil
		})
	}

	// A failed write cancels gctx, so its error explains a failed build.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if buildErr != nil {
		return nil, buildErr
	}

	cfg.Logger.Info().
		Str("db", cfg.DBPath).
		Str("dir", dir).
		Int("shards", len(paths)).
		Int("positions", rows).
		Dur("elapsed", time.Since(start)).
		Msg("shards complete")
	return paths, nil
}

// filepathStem returns the file name without directory and extension.
func filepathStem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

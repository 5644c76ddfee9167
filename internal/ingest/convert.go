// Package ingest converts between PGN text and the binary game database.
package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/chessgraph/trainer/internal/game"
	"github.com/freeeve/chessgraph/trainer/internal/gamedb"
	"github.com/freeeve/chessgraph/trainer/internal/pgnscan"
)

const progressInterval = 10 * time.Second

// Stats summarises one conversion.
type Stats struct {
	Games        int64 // Games written
	Skipped      int64 // Unfinished, abandoned or otherwise skipped games
	Filtered     int64 // Games rejected by the rating filter
	Moves        int64 // Plies across written games
	BytesWritten int64
	Elapsed      time.Duration
}

// ConvertPGN reads pgnPath (plain or .zst) and writes the accepted games to binPath.
// The output is written to a temporary file and renamed into place on success.
func ConvertPGN(ctx context.Context, pgnPath, binPath string, filter game.Filter, logger zerolog.Logger) (Stats, error) {
	var stats Stats
	start := time.Now()

	scanner, err := pgnscan.OpenFile(pgnPath, NewVisitor())
	if err != nil {
		return stats, err
	}
	defer scanner.Close()

	tmpPath := binPath + ".tmp"
	enc, err := gamedb.Create(tmpPath)
	if err != nil {
		return stats, err
	}
	abort := func(err error) (Stats, error) {
		enc.Close()
		os.Remove(tmpPath)
		return stats, err
	}

	lastLog := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		g, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return abort(fmt.Errorf("%s: %w", filepath.Base(pgnPath), err))
		}
		switch {
		case g == nil:
			stats.Skipped++
		case !filter.Accept(g):
			stats.Filtered++
		default:
			if err := enc.WriteGame(g); err != nil {
				return abort(fmt.Errorf("write %s: %w", tmpPath, err))
			}
			stats.Games++
			stats.Moves += int64(len(g.Moves))
		}

		if time.Since(lastLog) > progressInterval {
			elapsed := time.Since(start)
			logger.Info().
				Str("file", filepath.Base(pgnPath)).
				Int("line", scanner.Line()).
				Int64("games", stats.Games).
				Int64("skipped", stats.Skipped).
				Int64("filtered", stats.Filtered).
				Int64("moves", stats.Moves).
				Float64("games_per_sec", float64(stats.Games)/elapsed.Seconds()).
				Msg("convert progress")
			lastLog = time.Now()
		}
	}

	stats.BytesWritten = enc.BytesWritten()
	if err := enc.Close(); err != nil {
		os.Remove(tmpPath)
		return stats, fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, binPath); err != nil {
		os.Remove(tmpPath)
		return stats, fmt.Errorf("rename %s: %w", binPath, err)
	}
	stats.Elapsed = time.Since(start)

	logger.Info().
		Str("file", filepath.Base(pgnPath)).
		Str("out", binPath).
		Int64("games", stats.Games).
		Int64("skipped", stats.Skipped).
		Int64("filtered", stats.Filtered).
		Int64("moves", stats.Moves).
		Int64("bytes", stats.BytesWritten).
		Dur("elapsed", stats.Elapsed).
		Msg("convert complete")
	return stats, nil
}

// ExportPGN renders the games of binPath that pass filter as PGN text.
// Like ConvertPGN it writes a temporary file and renames it into place on success.
func ExportPGN(ctx context.Context, binPath, pgnPath string, filter game.Filter, logger zerolog.Logger) (Stats, error) {
	var stats Stats
	start := time.Now()

	dec, err := gamedb.Open(binPath)
	if err != nil {
		return stats, err
	}
	defer dec.Close()

	tmpPath := pgnPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return stats, fmt.Errorf("create %s: %w", tmpPath, err)
	}
	abort := func(err error) (Stats, error) {
		f.Close()
		os.Remove(tmpPath)
		return stats, err
	}
	cw := &countingWriter{w: f}
	w := bufio.NewWriterSize(cw, 1<<20)

	lastLog := time.Now()
	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		g, err := dec.ReadGame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return abort(fmt.Errorf("%s: record %d: %w", filepath.Base(binPath), n, err))
		}
		if !filter.Accept(g) {
			stats.Filtered++
			continue
		}
		if err := g.WritePGN(w); err != nil {
			if errors.Is(err, game.ErrIllegalMove) {
				return abort(fmt.Errorf("%w: record %d: %v", gamedb.ErrInconsistent, n, err))
			}
			return abort(fmt.Errorf("write %s: %w", tmpPath, err))
		}
		stats.Games++
		stats.Moves += int64(len(g.Moves))

		if time.Since(lastLog) > progressInterval {
			logger.Info().
				Str("file", filepath.Base(binPath)).
				Int64("games", stats.Games).
				Int64("filtered", stats.Filtered).
				Msg("export progress")
			lastLog = time.Now()
		}
	}

	if err := w.Flush(); err != nil {
		return abort(fmt.Errorf("flush %s: %w", tmpPath, err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return stats, fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, pgnPath); err != nil {
		os.Remove(tmpPath)
		return stats, fmt.Errorf("rename %s: %w", pgnPath, err)
	}
	stats.BytesWritten = cw.n
	stats.Elapsed = time.Since(start)

	logger.Info().
		Str("file", filepath.Base(binPath)).
		Str("out", pgnPath).
		Int64("games", stats.Games).
		Int64("filtered", stats.Filtered).
		Int64("bytes", stats.BytesWritten).
		Dur("elapsed", stats.Elapsed).
		Msg("export complete")
	return stats, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/chessgraph/trainer/internal/game"
)

// Config configures the watch-folder worker.
type Config struct {
	WatchDir     string         // Directory to watch for PGN files
	OutDir       string         // Directory for converted game databases
	ProcessedDir string         // Directory to move converted PGN files to
	PollInterval time.Duration  // How often to check for new files
	NumWorkers   int            // Files converted in parallel
	Filter       game.Filter    // Rating filter applied to every game, used as given
	Logger       zerolog.Logger // Logger
}

// Worker watches a folder and converts arriving PGN files into game databases.
type Worker struct {
	cfg Config
	log zerolog.Logger
}

// NewWorker creates a new watch-folder worker. A Config without WatchDir disables it.
func NewWorker(cfg Config) (*Worker, error) {
	if cfg.WatchDir == "" {
		return nil, nil // Disabled
	}
	if cfg.OutDir == "" {
		cfg.OutDir = filepath.Join(cfg.WatchDir, "games")
	}
	if cfg.ProcessedDir == "" {
		cfg.ProcessedDir = filepath.Join(cfg.WatchDir, "processed")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.NumCPU()
	}

	for _, dir := range []string{cfg.WatchDir, cfg.OutDir, cfg.ProcessedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	return &Worker{cfg: cfg, log: cfg.Logger}, nil
}

// Run polls the watch folder until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().
		Str("watch_dir", w.cfg.WatchDir).
		Str("out_dir", w.cfg.OutDir).
		Str("processed_dir", w.cfg.ProcessedDir).
		Int32("min_elo", w.cfg.Filter.MinElo).
		Int32("max_elo_diff", w.cfg.Filter.MaxEloDiff).
		Msg("ingest worker started")

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessNewFiles(ctx); err != nil {
			w.log.Warn().Err(err).Msg("process files failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessNewFiles converts the PGN files currently in the watch directory,
// up to NumWorkers in parallel, and returns how many succeeded.
// Failed files are logged and left in place.
func (w *Worker) ProcessNewFiles(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	entries, err := os.ReadDir(w.cfg.WatchDir)
	if err != nil {
		return 0, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); isPGNFile(name) {
			files = append(files, name)
		}
	}
	if len(files) == 0 {
		return 0, nil
	}

	// Sort by name to process in order
	sort.Strings(files)

	numWorkers := min(w.cfg.NumWorkers, len(files))
	w.log.Info().Int("files", len(files)).Int("workers", numWorkers).Msg("found PGN files to convert")

	type fileResult struct {
		name  string
		stats Stats
		err   error
	}

	fileChan := make(chan string, len(files))
	resultChan := make(chan fileResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for name := range fileChan {
				if err := ctx.Err(); err != nil {
					resultChan <- fileResult{name: name, err: err}
					continue
				}
				src := filepath.Join(w.cfg.WatchDir, name)
				dst := filepath.Join(w.cfg.OutDir, databaseName(name))
				log := w.log.With().Int("worker", workerID).Logger()
				stats, err := ConvertPGN(ctx, src, dst, w.cfg.Filter, log)
				resultChan <- fileResult{name: name, stats: stats, err: err}
			}
		}(i)
	}

	for _, name := range files {
		fileChan <- name
	}
	close(fileChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var processed, failed int
	var games int64
	for result := range resultChan {
		if result.err != nil {
			w.log.Error().Err(result.err).Str("file", result.name).Msg("convert failed")
			failed++
			continue
		}

		srcPath := filepath.Join(w.cfg.WatchDir, result.name)
		destPath := filepath.Join(w.cfg.ProcessedDir, result.name)
		if err := os.Rename(srcPath, destPath); err != nil {
			w.log.Warn().Err(err).Str("file", result.name).Msg("move to processed failed")
		} else {
			w.log.Info().Str("file", result.name).Msg("moved to processed")
		}
		processed++
		games += result.stats.Games
	}

	w.log.Info().Int("processed", processed).Int("failed", failed).Int64("games", games).Msg("batch complete")
	return processed, nil
}

func isPGNFile(name string) bool {
	ext := filepath.Ext(name)
	if ext == ".pgn" {
		return true
	}
	if ext == ".zst" {
		// Check for .pgn.zst
		base := name[:len(name)-4]
		return filepath.Ext(base) == ".pgn"
	}
	return false
}

// databaseName maps games.pgn and games.pgn.zst to games.bin.
func databaseName(name string) string {
	name = strings.TrimSuffix(name, ".zst")
	return strings.TrimSuffix(name, ".pgn") + ".bin"
}

package traindata

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/freeeve/pgn/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/chessgraph/trainer/internal/features"
	"github.com/freeeve/chessgraph/trainer/internal/gamedb"
)

// Builder decodes game records and encodes every position into a Batch.
type Builder struct {
	Threads int              // Workers; defaults to runtime.NumCPU()
	Encoder features.Encoder // Defaults to features.Full
	Logger  zerolog.Logger
}

// encodedGame is one worker result: a position per ply plus the game outcome.
type encodedGame struct {
	positions []float32
	outcome   [OutcomeSize]float32
}

// EncodeGame replays one game record and encodes the position after each move.
func EncodeGame(blob []byte, enc features.Encoder) (positions []float32, outcome [OutcomeSize]float32, err error) {
	g, err := gamedb.UnmarshalGame(blob)
	if err != nil {
		return nil, outcome, err
	}

	size := 64 * enc.Features()
	positions = make([]float32, len(g.Moves)*size)
	pos := pgn.NewStartingPosition()
	for i, m := range g.Moves {
		mv, err := m.Resolve(pos)
		if err != nil {
			return nil, outcome, fmt.Errorf("%w: ply %d: %v", gamedb.ErrInconsistent, i+1, err)
		}
		if err := pgn.ApplyMove(pos, mv); err != nil {
			return nil, outcome, fmt.Errorf("%w: ply %d: apply %s: %v", gamedb.ErrInconsistent, i+1, m, err)
		}
		enc.Encode(pos, positions[i*size:(i+1)*size])
	}
	return positions, g.Outcome.OneHot(), nil
}

// Build encodes blobs in parallel. Row order across games is not deterministic.
// The first failing game aborts the build and no batch is returned.
func (b *Builder) Build(ctx context.Context, blobs [][]byte) (*Batch, error) {
	enc := b.Encoder
	if enc == nil {
		enc = features.Full{}
	}
	threads := b.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	threads = min(threads, len(blobs))

	start := time.Now()
	batch := &Batch{Features: enc.Features()}
	if len(blobs) == 0 {
		return batch, nil
	}

	queue := newWorkQueue(blobs)
	results := make(chan encodedGame, threads)
	g, gctx := errgroup.WithContext(ctx)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				blob, ok := queue.Pop()
				if !ok {
					return nil
				}
				positions, outcome, err := EncodeGame(blob, enc)
				if err != nil {
					return err
				}
				select {
				case results <- encodedGame{positions: positions, outcome: outcome}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	size := 64 * batch.Features
	games := 0
	for res := range results {
		rows := len(res.positions) / size
		batch.Inputs = append(batch.Inputs, res.positions...)
		for r := 0; r < rows; r++ {
			batch.Outputs = append(batch.Outputs, res.outcome[:]...)
		}
		batch.Rows += rows
		games++
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.Logger.Info().
		Int("games", games).
		Int("positions", batch.Rows).
		Str("encoder", enc.Name()).
		Int("threads", threads).
		Str("memory", humanize.Bytes(batch.SizeBytes())).
		Dur("elapsed", time.Since(start)).
		Msg("batch built")
	return batch, nil
}

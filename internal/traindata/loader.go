package traindata

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const maxLoaderWorkers = 5

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	Prefetch int            // Batches decoded ahead of the consumer, default 2
	Features int            // Expected feature count; 0 accepts any
	Logger   zerolog.Logger // Logger
}

// LoaderStats counts batches through a Loader.
type LoaderStats struct {
	Sent    int64 // Batches decoded and handed to the channel
	Read    int64 // Batches returned by Next
	Pending int   // Files not yet picked up by a worker
}

// Loader streams training-data files in the background.
// At most Prefetch batches are decoded or buffered but not yet returned by Next.
type Loader struct {
	cfg    LoaderConfig
	files  *workQueue[string]
	slots  *semaphore.Weighted
	out    chan *Batch
	cancel context.CancelFunc
	done   chan struct{}
	err    error // set before out is closed

	mu   sync.Mutex
	sent int64
	read int64
}

// NewLoader starts reading files. Files are consumed from the end of the list;
// the order batches arrive in is not guaranteed.
func NewLoader(ctx context.Context, files []string, cfg LoaderConfig) *Loader {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 2
	}
	workers := min(cfg.Prefetch, maxLoaderWorkers)

	ctx, cancel := context.WithCancel(ctx)
	l := &Loader{
		cfg:    cfg,
		files:  newWorkQueue(files),
		slots:  semaphore.NewWeighted(int64(cfg.Prefetch)),
		out:    make(chan *Batch, cfg.Prefetch),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return l.work(gctx, i)
		})
	}
	go func() {
		l.err = g.Wait()
		close(l.out)
		close(l.done)
	}()

	cfg.Logger.Info().Int("files", len(files)).Int("workers", workers).Int("prefetch", cfg.Prefetch).Msg("loader started")
	return l
}

func (l *Loader) work(ctx context.Context, workerID int) error {
	for {
		if err := l.slots.Acquire(ctx, 1); err != nil {
			return err
		}
		path, ok := l.files.Pop()
		if !ok {
			l.slots.Release(1)
			return nil
		}

		b, err := ReadFile(path)
		if err == nil && l.cfg.Features != 0 && b.Features != l.cfg.Features {
			err = fmt.Errorf("%s: %w: %d features, want %d", path, ErrFormat, b.Features, l.cfg.Features)
		}
		if err != nil {
			l.slots.Release(1)
			return err
		}
		l.cfg.Logger.Debug().Str("path", path).Int("worker", workerID).Int("rows", b.Rows).Msg("batch loaded")

		// Never blocks: out has room for every held slot.
		select {
		case l.out <- b:
		case <-ctx.Done():
			l.slots.Release(1)
			return ctx.Err()
		}
		l.mu.Lock()
		l.sent++
		l.mu.Unlock()
	}
}

// Next returns the next batch. Once every file has been delivered it returns
// io.EOF. If a worker failed, batches already loaded are delivered first and
// then the worker's error is returned.
func (l *Loader) Next(ctx context.Context) (*Batch, error) {
	select {
	case b, ok := <-l.out:
		if !ok {
			if l.err != nil {
				return nil, l.err
			}
			return nil, io.EOF
		}
		l.slots.Release(1)
		l.mu.Lock()
		l.read++
		l.mu.Unlock()
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the workers and waits for them to exit.
func (l *Loader) Close() error {
	l.cancel()
	<-l.done
	return nil
}

// Stats returns the loader's counters.
func (l *Loader) Stats() LoaderStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LoaderStats{Sent: l.sent, Read: l.read, Pending: l.files.Len()}
}

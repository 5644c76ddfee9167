package gamedb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/freeeve/chessgraph/trainer/internal/game"
)

// Game database file:
//   Magic (16): "chessgraphgamedb"
//   Records, repeated until EOF:
//     - Length (8): little-endian uint64
//     - Body (Length): BSON game document
//
// There is no footer. EOF exactly at a record boundary ends the file cleanly.

const (
	Magic = "chessgraphgamedb"

	// MaxRecordSize bounds a single record body.
	MaxRecordSize = 64 << 20

	lengthSize = 8
)

// Encoder appends game records to a database stream.
type Encoder struct {
	w       *bufio.Writer
	closer  io.Closer
	written int64
	lenBuf  [lengthSize]byte
}

// NewEncoder writes the magic to w and returns an Encoder for it.
// Close flushes but does not close w.
func NewEncoder(w io.Writer) (*Encoder, error) {
	e := &Encoder{w: bufio.NewWriterSize(w, 1<<20)}
	n, err := e.w.WriteString(Magic)
	e.written += int64(n)
	if err != nil {
		return nil, fmt.Errorf("write magic: %w", err)
	}
	return e, nil
}

// Create truncates or creates path and returns an Encoder owning the file.
func Create(path string) (*Encoder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	e, err := NewEncoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	e.closer = f
	return e, nil
}

// WriteGame appends one game record.
func (e *Encoder) WriteGame(g *game.Game) error {
	body, err := MarshalGame(g)
	if err != nil {
		return err
	}
	return e.WriteRaw(body)
}

// WriteRaw appends an already-marshalled record body.
func (e *Encoder) WriteRaw(body []byte) error {
	if len(body) > MaxRecordSize {
		return fmt.Errorf("%w: record of %d bytes exceeds limit", ErrFormat, len(body))
	}
	binary.LittleEndian.PutUint64(e.lenBuf[:], uint64(len(body)))
	n, err := e.w.Write(e.lenBuf[:])
	e.written += int64(n)
	if err != nil {
		return fmt.Errorf("write record length: %w", err)
	}
	n, err = e.w.Write(body)
	e.written += int64(n)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// BytesWritten returns the number of bytes written so far, magic included.
func (e *Encoder) BytesWritten() int64 {
	return e.written
}

// Close flushes buffered records and closes the file if the Encoder owns it.
func (e *Encoder) Close() error {
	flushErr := e.w.Flush()
	if e.closer != nil {
		if err := e.closer.Close(); err != nil && flushErr == nil {
			return fmt.Errorf("close: %w", err)
		}
	}
	if flushErr != nil {
		return fmt.Errorf("flush: %w", flushErr)
	}
	return nil
}

// Decoder reads game records sequentially.
type Decoder struct {
	r      *bufio.Reader
	closer io.Closer
	lenBuf [lengthSize]byte
}

// NewDecoder validates the magic at the start of r.
func NewDecoder(r io.Reader) (*Decoder, error) {
	d := &Decoder{r: bufio.NewReaderSize(r, 1<<20)}
	var magic [len(Magic)]byte
	if _, err := io.ReadFull(d.r, magic[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: short magic", ErrFormat)
		}
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic[:]) != Magic {
		return nil, fmt.Errorf("%w: invalid magic %q", ErrFormat, magic[:])
	}
	return d, nil
}

// Open opens a database file for reading.
func Open(path string) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	d, err := NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.closer = f
	return d, nil
}

// ReadGameRaw returns the next record body, or io.EOF at a clean end of input.
func (d *Decoder) ReadGameRaw() ([]byte, error) {
	n, err := io.ReadFull(d.r, d.lenBuf[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated record length", ErrFormat)
		}
		return nil, fmt.Errorf("read record length: %w", err)
	}

	size := binary.LittleEndian.Uint64(d.lenBuf[:])
	if size > MaxRecordSize {
		return nil, fmt.Errorf("%w: record of %d bytes exceeds limit", ErrFormat, size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(d.r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated record body", ErrFormat)
		}
		return nil, fmt.Errorf("read record: %w", err)
	}
	return body, nil
}

// ReadGame returns the next decoded game, or io.EOF at a clean end of input.
func (d *Decoder) ReadGame() (*game.Game, error) {
	body, err := d.ReadGameRaw()
	if err != nil {
		return nil, err
	}
	return UnmarshalGame(body)
}

// ReadRawBatch returns up to n record bodies. When the input is exhausted
// before any record is read it returns an empty slice and io.EOF.
func (d *Decoder) ReadRawBatch(n int) ([][]byte, error) {
	batch := make([][]byte, 0, n)
	for len(batch) < n {
		body, err := d.ReadGameRaw()
		if errors.Is(err, io.EOF) {
			if len(batch) == 0 {
				return batch, io.EOF
			}
			return batch, nil
		}
		if err != nil {
			return batch, err
		}
		batch = append(batch, body)
	}
	return batch, nil
}

// Close closes the underlying file if the Decoder owns it.
func (d *Decoder) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// Package traindata builds, persists and streams training batches of encoded positions.
package traindata

import (
	"gorgonia.org/tensor"

	"github.com/freeeve/chessgraph/trainer/internal/gamedb"
)

// ErrFormat reports a malformed training-data file.
var ErrFormat = gamedb.ErrFormat

// OutcomeSize is the width of one encoded outcome: [WhiteWin, Draw, BlackWin].
const OutcomeSize = 3

// Batch holds Rows encoded positions and the outcome of the game each came from.
// Inputs has shape [Rows, 8, 8, Features] and Outputs [Rows, 3], both row-major.
type Batch struct {
	Rows     int
	Features int
	Inputs   []float32
	Outputs  []float32
}

// NewBatch allocates a zeroed batch.
func NewBatch(rows, features int) *Batch {
	return &Batch{
		Rows:     rows,
		Features: features,
		Inputs:   make([]float32, rows*64*features),
		Outputs:  make([]float32, rows*OutcomeSize),
	}
}

// InputShape returns [Rows, 8, 8, Features].
func (b *Batch) InputShape() [4]int {
	return [4]int{b.Rows, 8, 8, b.Features}
}

// OutputShape returns [Rows, 3].
func (b *Batch) OutputShape() [2]int {
	return [2]int{b.Rows, OutcomeSize}
}

// Row returns the input tensor and outcome of row i, sharing storage with the batch.
func (b *Batch) Row(i int) (input, outcome []float32) {
	size := 64 * b.Features
	return b.Inputs[i*size : (i+1)*size], b.Outputs[i*OutcomeSize : (i+1)*OutcomeSize]
}

// InputTensor returns a dense view over Inputs, or nil for an empty batch.
func (b *Batch) InputTensor() *tensor.Dense {
	if b.Rows == 0 {
		return nil
	}
	return tensor.New(tensor.WithShape(b.Rows, 8, 8, b.Features), tensor.WithBacking(b.Inputs))
}

// OutputTensor returns a dense view over Outputs, or nil for an empty batch.
func (b *Batch) OutputTensor() *tensor.Dense {
	if b.Rows == 0 {
		return nil
	}
	return tensor.New(tensor.WithShape(b.Rows, OutcomeSize), tensor.WithBacking(b.Outputs))
}

// SizeBytes returns the in-memory size of the batch payload.
func (b *Batch) SizeBytes() uint64 {
	return uint64(len(b.Inputs)+len(b.Outputs)) * 4
}

// valid reports whether the slice lengths match the declared shape.
func (b *Batch) valid() bool {
	return b.Rows >= 0 && len(b.Inputs) == b.Rows*64*b.Features && len(b.Outputs) == b.Rows*OutcomeSize
}

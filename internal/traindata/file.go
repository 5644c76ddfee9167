package traindata

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/freeeve/chessgraph/trainer/internal/features"
)

// Training-data file:
//   HeaderLen (8): little-endian uint64, always 64
//   Header (64):
//     - Magic (16): "mychesstraindata"
//     - InputShape (32): 4 x uint64 LE, [rows, 8, 8, features]
//     - OutputShape (16): 2 x uint64 LE, [rows, 3]
//   Body (zstd frame):
//     - Inputs as little-endian float32, row-major
//     - Outputs as little-endian float32, row-major

const (
	FileMagic  = "mychesstraindata"
	HeaderSize = 64

	// maxRows bounds the row count accepted from a header.
	maxRows = 1 << 24
)

type fileHeader struct {
	Magic    [16]byte
	InShape  [4]uint64
	OutShape [2]uint64
}

func encodeHeader(h *fileHeader) []byte {
	buf := make([]byte, 8+HeaderSize)
	binary.LittleEndian.PutUint64(buf[0:8], HeaderSize)
	copy(buf[8:24], h.Magic[:])
	for i, v := range h.InShape {
		binary.LittleEndian.PutUint64(buf[24+8*i:], v)
	}
	for i, v := range h.OutShape {
		binary.LittleEndian.PutUint64(buf[56+8*i:], v)
	}
	return buf
}

// decodeHeader parses the length prefix and header at the start of data.
func decodeHeader(data []byte) (*fileHeader, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: short header length", ErrFormat)
	}
	if n := binary.LittleEndian.Uint64(data[0:8]); n != HeaderSize {
		return nil, fmt.Errorf("%w: header length %d", ErrFormat, n)
	}
	if len(data) < 8+HeaderSize {
		return nil, fmt.Errorf("%w: header too short", ErrFormat)
	}
	h := &fileHeader{}
	copy(h.Magic[:], data[8:24])
	if string(h.Magic[:]) != FileMagic {
		return nil, fmt.Errorf("%w: invalid magic %q", ErrFormat, h.Magic[:])
	}
	for i := range h.InShape {
		h.InShape[i] = binary.LittleEndian.Uint64(data[24+8*i:])
	}
	for i := range h.OutShape {
		h.OutShape[i] = binary.LittleEndian.Uint64(data[56+8*i:])
	}

	in, out := h.InShape, h.OutShape
	if in[1] != 8 || in[2] != 8 {
		return nil, fmt.Errorf("%w: input shape %v", ErrFormat, in)
	}
	if _, err := features.ByFeatures(int(min(in[3], math.MaxInt32))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if out[1] != OutcomeSize {
		return nil, fmt.Errorf("%w: output shape %v", ErrFormat, out)
	}
	if in[0] != out[0] {
		return nil, fmt.Errorf("%w: %d input rows, %d output rows", ErrFormat, in[0], out[0])
	}
	if in[0] > maxRows {
		return nil, fmt.Errorf("%w: %d rows", ErrFormat, in[0])
	}
	return h, nil
}

// EncodeFile serialises b into the training-data file format.
func EncodeFile(b *Batch) ([]byte, error) {
	if !b.valid() {
		return nil, fmt.Errorf("batch of %d rows holds %d inputs and %d outputs", b.Rows, len(b.Inputs), len(b.Outputs))
	}
	if _, err := features.ByFeatures(b.Features); err != nil {
		return nil, err
	}

	h := fileHeader{
		InShape:  [4]uint64{uint64(b.Rows), 8, 8, uint64(b.Features)},
		OutShape: [2]uint64{uint64(b.Rows), OutcomeSize},
	}
	copy(h.Magic[:], FileMagic)

	raw := make([]byte, 4*(len(b.Inputs)+len(b.Outputs)))
	putFloats(raw, b.Inputs)
	putFloats(raw[4*len(b.Inputs):], b.Outputs)

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(raw, encodeHeader(&h)), nil
}

// DecodeFile parses a training-data file.
func DecodeFile(data []byte) (*Batch, error) {
	h, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	rows, f := h.InShape[0], h.InShape[3]
	want := 4 * rows * (64*f + OutcomeSize)

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(data[8+HeaderSize:], make([]byte, 0, min(want, 1<<28)))
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrFormat, err)
	}
	if uint64(len(raw)) != want {
		return nil, fmt.Errorf("%w: body holds %d bytes, shape needs %d", ErrFormat, len(raw), want)
	}

	b := NewBatch(int(rows), int(f))
	getFloats(b.Inputs, raw)
	getFloats(b.Outputs, raw[4*len(b.Inputs):])
	return b, nil
}

// WriteFile writes b to path via a temporary file.
func WriteFile(path string, b *Batch) error {
	data, err := EncodeFile(b)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// ReadFile reads and decodes the training-data file at path.
func ReadFile(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	b, err := DecodeFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func putFloats(dst []byte, src []float32) {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(v))
	}
}

func getFloats(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
	}
}

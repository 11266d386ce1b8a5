// Package quantization provides vector quantization for memory-efficient storage.
package quantization

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	// ErrDimensionMismatch is returned when a vector or record does not match
	// the quantizer's configured dimension.
	ErrDimensionMismatch = errors.New("quantization: dimension mismatch")
	// ErrShortBuffer is returned when a destination buffer is smaller than
	// RecordSize(dimension).
	ErrShortBuffer = errors.New("quantization: short buffer")
)

// Quantizer defines the interface for vector quantization methods.
type Quantizer interface {
	// Encode quantizes a float32 vector to compressed representation
	Encode(v []float32) ([]byte, error)

	// Decode reconstructs a float32 vector from quantized representation
	Decode(b []byte) ([]float32, error)

	// Train calibrates the quantizer on a set of vectors (optional for some quantizers)
	Train(vectors [][]float32) error

	// BytesPerDimension returns the storage size per dimension
	BytesPerDimension() int
}

const (
	// maxCode is the largest code magnitude on the positive side.
	// The scale maps the vector's max-abs element to this value.
	maxCode = 127

	// scaleBytes is the size of the trailing scale field.
	scaleBytes = 4
)

// RecordSize returns the byte footprint of one quantized record:
// dim code bytes followed by a 4-byte scale.
func RecordSize(dim int) int {
	return dim + scaleBytes
}

// Codes returns the int8 code section of a quantized record.
// The bytes are the two's-complement representation of the codes.
func Codes(record []byte, dim int) []byte {
	return record[:dim]
}

// Scale reads the dequantization scale stored after the codes.
//
// The load is byte-wise on purpose: records are packed back to back with a
// stride of dim+4, so the scale field can land on any byte offset. A typed
// pointer dereference would fault on alignment-strict targets.
func Scale(record []byte, dim int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(record[dim : dim+scaleBytes]))
}

// PutScale writes the dequantization scale after the codes, little-endian.
func PutScale(record []byte, dim int, scale float32) {
	binary.LittleEndian.PutUint32(record[dim:dim+scaleBytes], math.Float32bits(scale))
}

// SQ8 implements symmetric 8-bit scalar quantization with a per-vector scale.
// It compresses float32 vectors (4 bytes/dim) to int8 (1 byte/dim) plus one
// trailing float32 scale, so original[i] ≈ int8(codes[i]) * scale.
//
// Unlike range-calibrated scalar quantizers, SQ8 derives its scale from each
// vector independently (scale = maxAbs/127), so Train is a no-op and encoded
// records are self-contained.
//
// Non-finite input (NaN/Inf) produces an unspecified record; callers must
// sanitize upstream.
type SQ8 struct {
	dimension int
}

// Compile-time check that SQ8 satisfies the Quantizer interface.
var _ Quantizer = (*SQ8)(nil)

// NewSQ8 creates an 8-bit symmetric scalar quantizer for the given dimension.
func NewSQ8(dimension int) *SQ8 {
	return &SQ8{dimension: dimension}
}

// Dimension returns the configured vector dimension.
func (q *SQ8) Dimension() int {
	return q.dimension
}

// Train is a no-op: the scale is derived per vector at encode time.
func (q *SQ8) Train(vectors [][]float32) error {
	return nil
}

// Encode quantizes v into a freshly allocated record of RecordSize(dim) bytes.
func (q *SQ8) Encode(v []float32) ([]byte, error) {
	record := make([]byte, RecordSize(q.dimension))
	if err := q.EncodeInto(v, record); err != nil {
		return nil, err
	}
	return record, nil
}

// EncodeInto quantizes v into dst, which must hold at least
// RecordSize(dim) bytes. It writes dim code bytes followed by the scale and
// performs no allocation.
//
// The scale is maxAbs/127 where maxAbs is the largest absolute element. Codes
// are round(v[i]/scale) clamped to [-128, 127]; rounding is half away from
// zero, so a tie such as v[i]/scale = 127.5 rounds to 128 and is clamped.
// The zero vector encodes as all-zero codes with scale 1.0, which makes the
// degenerate case exact and keeps the scale usable as a divisor.
func (q *SQ8) EncodeInto(v []float32, dst []byte) error {
	dim := q.dimension
	if len(v) != dim {
		return ErrDimensionMismatch
	}
	if len(dst) < RecordSize(dim) {
		return ErrShortBuffer
	}

	var maxAbs float32
	for _, x := range v {
		if x < 0 {
			x = -x
		}
		if x > maxAbs {
			maxAbs = x
		}
	}

	if maxAbs == 0 {
		for i := 0; i < dim; i++ {
			dst[i] = 0
		}
		PutScale(dst, dim, 1)
		return nil
	}

	scale := maxAbs / maxCode
	invScale := 1 / scale
	for i, x := range v {
		c := math.Round(float64(x * invScale))
		// Round-off can push the max-magnitude element past the code range.
		if c > 127 {
			c = 127
		} else if c < -128 {
			c = -128
		}
		dst[i] = byte(int8(c))
	}
	PutScale(dst, dim, scale)

	return nil
}

// Decode reconstructs a float32 vector from a quantized record.
// Reconstruction error per element is bounded by scale/2.
func (q *SQ8) Decode(record []byte) ([]float32, error) {
	dim := q.dimension
	if len(record) < RecordSize(dim) {
		return nil, ErrShortBuffer
	}

	scale := Scale(record, dim)
	decoded := make([]float32, dim)
	for i := 0; i < dim; i++ {
		decoded[i] = float32(int8(record[i])) * scale
	}

	return decoded, nil
}

// BytesPerDimension returns 1 (int8 storage). The per-record scale adds a
// constant 4 bytes on top; see RecordSize.
func (q *SQ8) BytesPerDimension() int {
	return 1
}

// CompressionRatio returns the memory compression ratio relative to float32
// storage, accounting for the trailing scale.
func (q *SQ8) CompressionRatio() float64 {
	return float64(q.dimension*4) / float64(RecordSize(q.dimension))
}

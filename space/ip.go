package space

import "github.com/hupe1980/quantspace/quantization"

// InnerProduct is the quantized inner-product (cosine distance) space.
// Records are int8 codes with a trailing scale, as produced by
// quantization.SQ8. Distances assume unit-normalized source vectors and lie
// in [0, 2].
type InnerProduct struct {
	dim int
}

// Compile-time check that InnerProduct satisfies the Space interface.
var _ Space = (*InnerProduct)(nil)

// NewInnerProduct creates an inner-product space for the given dimension.
func NewInnerProduct(dim int) *InnerProduct {
	return &InnerProduct{dim: dim}
}

// DataSize returns the byte footprint of one quantized record.
func (s *InnerProduct) DataSize() int { return dataSize(s.dim) }

// Dimension returns the vector dimension.
func (s *InnerProduct) Dimension() int { return s.dim }

// DistFunc returns the inner-product distance kernel.
func (s *InnerProduct) DistFunc() DistFunc { return InnerProductDistance }

// Distance compares two quantized records in this space.
func (s *InnerProduct) Distance(a, b []byte) float32 {
	return InnerProductDistance(a, b, s.dim)
}

// InnerProductDistance returns 1 - <A, B> for two quantized records,
// clamped to [0, 2].
//
// The dot product is accumulated in int64 directly on the int8 codes: each
// term is at most 128*128 in magnitude, so a 32-bit accumulator would wrap
// once dim exceeds ~131k, and 64 bits is safe past any practical dimension.
// The integer sum is rescaled by scaleA*scaleB in a single float operation at
// the end, so the loop itself is exact.
//
// Clamping is required: quantization and round-off can push the raw inner
// product of normalized vectors slightly outside [-1, 1], and a negative
// distance would corrupt candidate ordering downstream.
func InnerProductDistance(a, b []byte, dim int) float32 {
	var dot int64
	for i := 0; i < dim; i++ {
		dot += int64(int8(a[i])) * int64(int8(b[i]))
	}

	scaleA := quantization.Scale(a, dim)
	scaleB := quantization.Scale(b, dim)

	d := 1 - scaleA*scaleB*float32(dot)
	if d < 0 {
		return 0
	}
	if d > 2 {
		return 2
	}
	return d
}

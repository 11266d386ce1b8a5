package space

import "github.com/hupe1980/quantspace/quantization"

// L2 is the quantized squared-Euclidean space. Records are int8 codes with a
// trailing scale, as produced by quantization.SQ8.
type L2 struct {
	dim int
}

// Compile-time check that L2 satisfies the Space interface.
var _ Space = (*L2)(nil)

// NewL2 creates a squared-L2 space for the given dimension.
func NewL2(dim int) *L2 {
	return &L2{dim: dim}
}

// DataSize returns the byte footprint of one quantized record.
func (s *L2) DataSize() int { return dataSize(s.dim) }

// Dimension returns the vector dimension.
func (s *L2) Dimension() int { return s.dim }

// DistFunc returns the squared-L2 distance kernel.
func (s *L2) DistFunc() DistFunc { return L2Distance }

// Distance compares two quantized records in this space.
func (s *L2) Distance(a, b []byte) float32 {
	return L2Distance(a, b, s.dim)
}

// L2Distance returns the squared Euclidean distance between two quantized
// records, using the expansion ||A||² + ||B||² - 2<A, B> so the whole loop
// runs on integer codes.
//
// One pass accumulates dot, normA and normB in int64 (see
// InnerProductDistance for the width rationale), then the three sums are
// rescaled in floating point once. No clamp: the result is non-negative by
// construction up to round-off.
func L2Distance(a, b []byte, dim int) float32 {
	var dot, normA, normB int64
	for i := 0; i < dim; i++ {
		ca := int64(int8(a[i]))
		cb := int64(int8(b[i]))
		dot += ca * cb
		normA += ca * ca
		normB += cb * cb
	}

	scaleA := quantization.Scale(a, dim)
	scaleB := quantization.Scale(b, dim)

	return scaleA*scaleA*float32(normA) +
		scaleB*scaleB*float32(normB) -
		2*scaleA*scaleB*float32(dot)
}

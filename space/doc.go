// Package space implements distance kernels that operate directly on
// quantized records, without reconstructing the original float vectors.
//
// A quantized record is the layout produced by quantization.SQ8: dim int8
// codes immediately followed by a little-endian float32 scale. Kernels
// accumulate on the integer codes in 64-bit and apply the scales once at the
// end, confining all floating-point error to a single multiply-add.
//
// Two spaces are provided:
//
//   - InnerProduct: cosine distance 1 - <A, B> for unit-normalized input,
//     clamped to [0, 2]
//   - L2: squared Euclidean distance via the norm expansion
//
// All kernels are pure functions over caller-owned read-only buffers; they
// allocate nothing and are safe to call from any number of goroutines.
package space

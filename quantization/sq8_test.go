package quantization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQ8_EncodeKnownVector(t *testing.T) {
	q := NewSQ8(4)

	record, err := q.Encode([]float32{3.0, -4.0, 0.0, 1.0})
	require.NoError(t, err)
	require.Len(t, record, RecordSize(4))

	// maxAbs = 4.0, scale = 4/127
	assert.InDelta(t, 4.0/127.0, Scale(record, 4), 1e-7)

	codes := Codes(record, 4)
	assert.Equal(t, int8(95), int8(codes[0]))  // round(3 * 127/4) = round(95.25)
	assert.Equal(t, int8(-127), int8(codes[1]))
	assert.Equal(t, int8(0), int8(codes[2]))
	assert.Equal(t, int8(32), int8(codes[3])) // round(1 * 127/4) = round(31.75)
}

func TestSQ8_ZeroVector(t *testing.T) {
	q := NewSQ8(8)

	record, err := q.Encode(make([]float32, 8))
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		assert.Equal(t, byte(0), record[i])
	}
	assert.Equal(t, float32(1.0), Scale(record, 8))

	decoded, err := q.Decode(record)
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), decoded)
}

func TestSQ8_RoundTripBound(t *testing.T) {
	tests := []struct {
		name string
		v    []float32
	}{
		{"Simple", []float32{3.0, -4.0, 0.0, 1.0}},
		{"Uniform", []float32{0.25, 0.25, 0.25, 0.25}},
		{"TinyValues", []float32{1e-6, -2e-6, 3e-6, -4e-6}},
		{"LargeValues", []float32{1e6, -2e6, 3e6, -4e6}},
		{"SingleDominant", []float32{100, 0.1, -0.1, 0.01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewSQ8(len(tt.v))

			record, err := q.Encode(tt.v)
			require.NoError(t, err)

			decoded, err := q.Decode(record)
			require.NoError(t, err)

			// Error per element is bounded by half the quantization step.
			bound := float64(Scale(record, len(tt.v)))/2 + 1e-6
			for i := range tt.v {
				assert.InDelta(t, tt.v[i], decoded[i], bound, "element %d", i)
			}
		})
	}
}

func TestSQ8_MaxElementNotClipped(t *testing.T) {
	// The max-abs element must map to ±127 exactly, not overshoot into the
	// clamp on round-off.
	q := NewSQ8(3)

	record, err := q.Encode([]float32{-7.3, 2.1, 7.3})
	require.NoError(t, err)

	codes := Codes(record, 3)
	assert.Equal(t, int8(-127), int8(codes[0]))
	assert.Equal(t, int8(127), int8(codes[2]))
}

func TestSQ8_EncodeInto(t *testing.T) {
	q := NewSQ8(4)
	v := []float32{1, 2, 3, 4}

	t.Run("MatchesEncode", func(t *testing.T) {
		dst := make([]byte, RecordSize(4))
		require.NoError(t, q.EncodeInto(v, dst))

		record, err := q.Encode(v)
		require.NoError(t, err)
		assert.Equal(t, record, dst)
	})

	t.Run("ArbitraryOffset", func(t *testing.T) {
		// Records inside an arena start at unaligned offsets; the scale
		// round-trip must not depend on alignment.
		buf := make([]byte, 3+RecordSize(4))
		require.NoError(t, q.EncodeInto(v, buf[3:]))
		assert.InDelta(t, 4.0/127.0, Scale(buf[3:], 4), 1e-7)
	})

	t.Run("ShortBuffer", func(t *testing.T) {
		err := q.EncodeInto(v, make([]byte, RecordSize(4)-1))
		assert.ErrorIs(t, err, ErrShortBuffer)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		err := q.EncodeInto([]float32{1, 2}, make([]byte, RecordSize(4)))
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestSQ8_DecodeShortBuffer(t *testing.T) {
	q := NewSQ8(4)
	_, err := q.Decode(make([]byte, 4))
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestSQ8_TrainNoop(t *testing.T) {
	q := NewSQ8(2)
	require.NoError(t, q.Train(nil))
	require.NoError(t, q.Train([][]float32{{1, 2}}))
}

func TestSQ8_BytesPerDimension(t *testing.T) {
	q := NewSQ8(128)
	assert.Equal(t, 1, q.BytesPerDimension())
	assert.Equal(t, 132, RecordSize(q.Dimension()))
	assert.InDelta(t, 512.0/132.0, q.CompressionRatio(), 1e-9)
}

func TestScaleByteOrder(t *testing.T) {
	// The scale is fixed little-endian so records persist portably.
	record := make([]byte, RecordSize(2))
	PutScale(record, 2, 1.0)
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, record[2:6])
	assert.Equal(t, float32(1.0), Scale(record, 2))
}

func TestSQ8_NegativeFullScale(t *testing.T) {
	// A vector whose dominant element is negative uses the same positive
	// scale; -maxAbs maps to -127, not -128.
	q := NewSQ8(2)

	record, err := q.Encode([]float32{-10, 2.5})
	require.NoError(t, err)

	codes := Codes(record, 2)
	assert.Equal(t, int8(-127), int8(codes[0]))
	assert.Equal(t, int8(32), int8(codes[1])) // round(2.5 * 127/10) = round(31.75)

	decoded, err := q.Decode(record)
	require.NoError(t, err)
	assert.InDelta(t, -10, decoded[0], 1e-5)
}

func BenchmarkSQ8_EncodeInto(b *testing.B) {
	const dim = 768
	q := NewSQ8(dim)
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(math.Sin(float64(i)))
	}
	dst := make([]byte, RecordSize(dim))

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = q.EncodeInto(v, dst)
	}
}

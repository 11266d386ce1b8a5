package space

import (
	"fmt"

	"github.com/hupe1980/quantspace/quantization"
)

// DistFunc computes a distance between two quantized records.
// dim is the shared out-of-band parameter; both records must have been
// quantized with it. The function performs no bounds or dimension checks;
// callers guarantee each record holds quantization.RecordSize(dim) bytes.
type DistFunc func(a, b []byte, dim int) float32

// Space describes one quantized distance scheme: how large a record is, the
// dimension parameter, and the kernel that compares two records. It is the
// contract an index uses to size its storage arena and drive comparisons
// without knowing the encoding.
//
// Implementations are stateless and safe for concurrent use.
type Space interface {
	// DataSize returns the exact byte footprint of one quantized record.
	DataSize() int

	// Dimension returns the vector dimension shared by all records.
	Dimension() int

	// DistFunc returns the distance kernel for this space.
	DistFunc() DistFunc
}

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	MetricL2 Metric = iota
	MetricInnerProduct
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricInnerProduct:
		return "InnerProduct"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// ForMetric returns the quantized space for the given metric.
func ForMetric(m Metric, dim int) (Space, error) {
	switch m {
	case MetricL2:
		return NewL2(dim), nil
	case MetricInnerProduct:
		return NewInnerProduct(dim), nil
	default:
		return nil, fmt.Errorf("space: unsupported metric: %v", m)
	}
}

// dataSize is shared by all int8 spaces: dim code bytes plus the scale.
func dataSize(dim int) int {
	return quantization.RecordSize(dim)
}

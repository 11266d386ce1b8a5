package flat

import (
	"context"
	"testing"

	"github.com/hupe1980/quantspace/space"
	"github.com/hupe1980/quantspace/testutil"
)

func benchmarkSearch(b *testing.B, metric space.Metric, workers int) {
	const (
		n   = 50000
		dim = 128
	)
	rng := testutil.NewRNG(1)

	f, err := New(Options{Dimension: dim, Metric: metric})
	if err != nil {
		b.Fatal(err)
	}
	if _, err := f.BatchInsert(rng.RandomVectors(n, dim)); err != nil {
		b.Fatal(err)
	}

	query := make([]float32, dim)
	rng.FillUniformRange(query, -1, 1)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := f.Search(context.Background(), query, 10, WithNumWorkers(workers)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFlat_SearchL2(b *testing.B)          { benchmarkSearch(b, space.MetricL2, 1) }
func BenchmarkFlat_SearchL2Parallel(b *testing.B)  { benchmarkSearch(b, space.MetricL2, 0) }
func BenchmarkFlat_SearchInnerProduct(b *testing.B) { benchmarkSearch(b, space.MetricInnerProduct, 1) }

// Package flat provides a brute-force index over quantized records.
//
// Vectors are quantized once at insert time and stored back to back in a
// record arena sized by the space's DataSize. Search quantizes the query and
// scans with the space's distance kernel, so the hot loop never touches
// float vectors.
package flat

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/quantspace/internal/queue"
	"github.com/hupe1980/quantspace/quantization"
	"github.com/hupe1980/quantspace/space"
	"github.com/hupe1980/quantspace/store"
)

var (
	// ErrReadOnly is returned when inserting into an mmap-backed index.
	ErrReadOnly = errors.New("flat: index is read-only")
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("flat: k must be positive")
)

// Options contains configuration options for the flat index.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	// It must be > 0 and is enforced for all inserts and searches.
	Dimension int

	// Metric selects the quantized distance space.
	Metric space.Metric
}

// DefaultOptions contains the default configuration options for the flat index.
var DefaultOptions = Options{
	Dimension: 0,
	Metric:    space.MetricL2,
}

// SearchResult is one search hit, ordered by ascending distance.
type SearchResult struct {
	ID       uint32
	Distance float32
}

// SearchOptions controls a single search call.
type SearchOptions struct {
	// Filter restricts candidates to the ids in the bitmap. Nil means all.
	Filter *roaring.Bitmap

	// NumWorkers caps the scan parallelism. Zero means GOMAXPROCS; small
	// stores always scan on the calling goroutine.
	NumWorkers int
}

// WithFilter restricts a search to the ids in the bitmap.
func WithFilter(bm *roaring.Bitmap) func(*SearchOptions) {
	return func(o *SearchOptions) {
		o.Filter = bm
	}
}

// WithNumWorkers caps the scan parallelism for a search.
func WithNumWorkers(n int) func(*SearchOptions) {
	return func(o *SearchOptions) {
		o.NumWorkers = n
	}
}

// Flat is a brute-force index over quantized records.
//
// Reads take a shared lock and writes an exclusive one, so searches run
// concurrently with each other and only serialize against inserts.
type Flat struct {
	opts      Options
	space     space.Space
	dist      space.DistFunc
	quantizer *quantization.SQ8

	mu      sync.RWMutex
	arena   *store.Arena  // nil when mmap-backed
	records store.Records // arena, or an mmap view
	mmapped *store.MmapRecords
}

// New creates an empty flat index.
func New(opts Options) (*Flat, error) {
	if opts.Dimension <= 0 {
		return nil, errors.New("flat: dimension must be positive")
	}

	s, err := space.ForMetric(opts.Metric, opts.Dimension)
	if err != nil {
		return nil, err
	}

	arena := store.NewArena(s.DataSize(), 0)
	return &Flat{
		opts:      opts,
		space:     s,
		dist:      s.DistFunc(),
		quantizer: quantization.NewSQ8(opts.Dimension),
		arena:     arena,
		records:   arena,
	}, nil
}

func (*Flat) Name() string { return "Flat" }

// Space returns the quantized distance space backing this index.
func (f *Flat) Space() space.Space {
	return f.space
}

// Dimension returns the configured vector dimension.
func (f *Flat) Dimension() int {
	return f.opts.Dimension
}

// Len returns the number of stored records.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.records.Len()
}

// Insert quantizes v and appends it, returning the assigned id.
// Ids are dense and start at 0.
func (f *Flat) Insert(v []float32) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.arena == nil {
		return 0, ErrReadOnly
	}
	return f.insertLocked(v)
}

// BatchInsert quantizes and appends all vectors, returning their ids.
// The batch takes the write lock once.
func (f *Flat) BatchInsert(vectors [][]float32) ([]uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.arena == nil {
		return nil, ErrReadOnly
	}

	ids := make([]uint32, 0, len(vectors))
	for _, v := range vectors {
		id, err := f.insertLocked(v)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *Flat) insertLocked(v []float32) (uint32, error) {
	slot, id := f.arena.Extend()
	if err := f.quantizer.EncodeInto(v, slot); err != nil {
		return 0, err
	}
	return id, nil
}

// Record returns the quantized record for id. The slice aliases index
// storage and must not be modified.
func (f *Flat) Record(id uint32) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if int(id) >= f.records.Len() {
		return nil, errors.New("flat: id out of range")
	}
	return f.records.At(id), nil
}

// minParallelScan is the store size below which sharding costs more than it
// saves.
const minParallelScan = 16384

// scanCheckInterval is how many records a shard scans between context checks.
const scanCheckInterval = 4096

// Search returns the k nearest records to query, ordered by ascending
// distance. Fewer than k results are returned when the (filtered) store is
// smaller than k.
func (f *Flat) Search(ctx context.Context, query []float32, k int, optFns ...func(*SearchOptions)) ([]SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}

	var opts SearchOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	record := make([]byte, f.space.DataSize())
	if err := f.quantizer.EncodeInto(query, record); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	n := f.records.Len()
	if n == 0 {
		return nil, nil
	}

	workers := opts.NumWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if n < minParallelScan {
		workers = 1
	}

	var top *queue.TopK
	if workers == 1 {
		top = queue.NewTopK(k)
		if err := f.scan(ctx, record, 0, uint32(n), opts.Filter, top); err != nil {
			return nil, err
		}
	} else {
		var err error
		if top, err = f.scanParallel(ctx, record, n, k, workers, opts.Filter); err != nil {
			return nil, err
		}
	}

	items := top.Sorted()
	results := make([]SearchResult, len(items))
	for i, item := range items {
		results[i] = SearchResult{ID: item.ID, Distance: item.Distance}
	}
	return results, nil
}

func (f *Flat) scanParallel(ctx context.Context, query []byte, n, k, workers int, filter *roaring.Bitmap) (*queue.TopK, error) {
	g, ctx := errgroup.WithContext(ctx)

	shards := make([]*queue.TopK, workers)
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		w := w
		lo := w * chunk
		hi := min(lo+chunk, n)
		if lo >= hi {
			break
		}

		top := queue.NewTopK(k)
		shards[w] = top
		g.Go(func() error {
			return f.scan(ctx, query, uint32(lo), uint32(hi), filter, top)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := queue.NewTopK(k)
	for _, top := range shards {
		if top != nil {
			merged.Merge(top)
		}
	}
	return merged, nil
}

func (f *Flat) scan(ctx context.Context, query []byte, lo, hi uint32, filter *roaring.Bitmap, top *queue.TopK) error {
	dim := f.opts.Dimension
	for i := lo; i < hi; i++ {
		if (i-lo)%scanCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if filter != nil && !filter.Contains(i) {
			continue
		}
		top.Push(i, f.dist(query, f.records.At(i), dim))
	}
	return nil
}

// Close releases the mmap backing, if any. The index must not be used
// afterwards.
func (f *Flat) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mmapped != nil {
		err := f.mmapped.Close()
		f.mmapped = nil
		return err
	}
	return nil
}

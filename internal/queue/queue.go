// Package queue provides a bounded top-k collector for nearest-neighbor
// candidate selection.
package queue

// Item is one scored candidate.
// Value-based (no pointers) for cache locality and zero allocations.
type Item struct {
	ID       uint32  // Record identifier
	Distance float32 // Priority; smaller is better
}

// TopK keeps the k smallest-distance items seen so far using a bounded
// max-heap: the root is the current worst candidate, so an incoming item
// either displaces the root or is dropped in O(1).
//
// Not safe for concurrent use; each scan shard owns its own TopK.
type TopK struct {
	k     int
	items []Item
}

// NewTopK creates a collector for the k best candidates.
func NewTopK(k int) *TopK {
	return &TopK{
		k:     k,
		items: make([]Item, 0, k),
	}
}

// Len returns the number of collected items.
func (t *TopK) Len() int {
	return len(t.items)
}

// Push offers a candidate to the collector. Once full, a candidate no better
// than the current worst is rejected in O(1).
func (t *TopK) Push(id uint32, distance float32) {
	if len(t.items) < t.k {
		t.items = append(t.items, Item{ID: id, Distance: distance})
		t.siftUp(len(t.items) - 1)
		return
	}
	if distance >= t.items[0].Distance {
		return
	}
	t.items[0] = Item{ID: id, Distance: distance}
	t.siftDown(0)
}

// Merge folds another collector's items into this one.
func (t *TopK) Merge(other *TopK) {
	for _, item := range other.items {
		t.Push(item.ID, item.Distance)
	}
}

// Sorted drains the collector and returns its items ordered by ascending
// distance. The collector is empty afterwards.
func (t *TopK) Sorted() []Item {
	out := make([]Item, len(t.items))
	for i := len(t.items) - 1; i >= 0; i-- {
		out[i] = t.items[0]
		last := t.items[len(t.items)-1]
		t.items = t.items[:len(t.items)-1]
		if len(t.items) > 0 {
			t.items[0] = last
			t.siftDown(0)
		}
	}
	return out
}

func (t *TopK) less(i, j int) bool {
	return t.items[i].Distance > t.items[j].Distance
}

func (t *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !t.less(i, p) {
			return
		}
		t.items[i], t.items[p] = t.items[p], t.items[i]
		i = p
	}
}

func (t *TopK) siftDown(i int) {
	n := len(t.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && t.less(r, l) {
			best = r
		}
		if !t.less(best, i) {
			return
		}
		t.items[i], t.items[best] = t.items[best], t.items[i]
		i = best
	}
}

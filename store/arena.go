// Package store holds quantized records in contiguous fixed-stride buffers.
package store

import (
	"errors"
	"fmt"

	"github.com/hupe1980/quantspace/internal/mmap"
)

var (
	// ErrRecordSize is returned when an appended record does not match the
	// arena's stride.
	ErrRecordSize = errors.New("store: record size mismatch")
)

// Records is read-only access to a sequence of fixed-size quantized records.
type Records interface {
	// At returns the i-th record. The slice aliases the underlying buffer
	// and must not be written to or retained past the store's lifetime.
	At(i uint32) []byte

	// Len returns the number of records.
	Len() int
}

// Arena is a growable contiguous buffer of fixed-stride records. The stride
// is the space's DataSize, so records (and their trailing scale fields) land
// at arbitrary byte offsets, so readers must use alignment-agnostic loads.
//
// Arena itself is not synchronized; the owning index serializes access.
type Arena struct {
	stride int
	buf    []byte
	count  int
}

// Compile-time check that Arena satisfies the Records interface.
var _ Records = (*Arena)(nil)

// NewArena creates an arena for records of stride bytes, pre-sizing capacity
// for the given record count hint.
func NewArena(stride, capacityHint int) *Arena {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &Arena{
		stride: stride,
		buf:    make([]byte, 0, stride*capacityHint),
	}
}

// NewArenaFromBytes wraps an existing buffer of count packed records, taking
// ownership. Used when loading snapshots.
func NewArenaFromBytes(buf []byte, stride, count int) (*Arena, error) {
	if len(buf) < stride*count {
		return nil, fmt.Errorf("store: buffer holds %d bytes, need %d", len(buf), stride*count)
	}
	return &Arena{
		stride: stride,
		buf:    buf[:stride*count],
		count:  count,
	}, nil
}

// Append copies one record into the arena and returns its index.
func (a *Arena) Append(record []byte) (uint32, error) {
	if len(record) != a.stride {
		return 0, ErrRecordSize
	}
	id := uint32(a.count)
	a.buf = append(a.buf, record...)
	a.count++
	return id, nil
}

// Extend grows the arena by one zeroed record and returns it for in-place
// encoding, together with its index.
func (a *Arena) Extend() ([]byte, uint32) {
	id := uint32(a.count)
	start := len(a.buf)
	a.buf = append(a.buf, make([]byte, a.stride)...)
	a.count++
	return a.buf[start : start+a.stride], id
}

// At returns the i-th record.
func (a *Arena) At(i uint32) []byte {
	off := int(i) * a.stride
	return a.buf[off : off+a.stride]
}

// Len returns the number of records.
func (a *Arena) Len() int {
	return a.count
}

// Stride returns the per-record byte footprint.
func (a *Arena) Stride() int {
	return a.stride
}

// Bytes returns the packed record section, count*stride bytes. Used by
// snapshot writers; the slice aliases the arena.
func (a *Arena) Bytes() []byte {
	return a.buf[:a.count*a.stride]
}

// MmapRecords is a read-only record sequence backed by a memory-mapped
// snapshot file. Records are served straight from the page cache.
type MmapRecords struct {
	m      *mmap.File
	data   []byte
	stride int
	count  int
}

// Compile-time check that MmapRecords satisfies the Records interface.
var _ Records = (*MmapRecords)(nil)

// OpenMmap maps the file at path and exposes count records of stride bytes
// starting at offset. The caller must Close the returned store.
func OpenMmap(path string, offset int64, stride, count int) (*MmapRecords, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	end := offset + int64(stride)*int64(count)
	if offset < 0 || end > int64(m.Len()) {
		m.Close()
		return nil, fmt.Errorf("store: record section [%d, %d) outside file of %d bytes", offset, end, m.Len())
	}

	return &MmapRecords{
		m:      m,
		data:   m.Bytes()[offset:end],
		stride: stride,
		count:  count,
	}, nil
}

// At returns the i-th record.
func (r *MmapRecords) At(i uint32) []byte {
	off := int(i) * r.stride
	return r.data[off : off+r.stride]
}

// Len returns the number of records.
func (r *MmapRecords) Len() int {
	return r.count
}

// Close unmaps the backing file. Record slices become invalid.
func (r *MmapRecords) Close() error {
	return r.m.Close()
}

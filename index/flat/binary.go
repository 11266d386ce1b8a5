package flat

import (
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/quantspace/internal/persist"
	"github.com/hupe1980/quantspace/space"
	"github.com/hupe1980/quantspace/store"
)

// ErrNotMmapable is returned by OpenMmap for compressed snapshots.
var ErrNotMmapable = errors.New("flat: compressed snapshot cannot be mmap-ed")

// WriteTo writes an uncompressed snapshot. It matches the io.WriterTo
// interface; use WriteSnapshot to pick a compression codec.
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	return f.WriteSnapshot(w, persist.CompressionNone)
}

// WriteSnapshot writes the index as a self-describing binary snapshot:
// a 64-byte header followed by the (possibly compressed) record section.
// Uncompressed snapshots can later be opened zero-copy with OpenMmap.
func (f *Flat) WriteSnapshot(w io.Writer, codec persist.Compression) (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.arena == nil {
		return 0, ErrReadOnly
	}

	raw := f.arena.Bytes()
	payload, used, err := persist.Compress(codec, raw)
	if err != nil {
		return 0, err
	}

	header := &persist.FileHeader{
		Metric:      uint8(f.opts.Metric),
		Compression: uint8(used),
		Dimension:   uint32(f.opts.Dimension),
		Count:       uint64(f.arena.Len()),
		PayloadSize: uint64(len(payload)),
		RawSize:     uint64(len(raw)),
		Checksum:    persist.Checksum(payload),
	}
	if err := persist.WriteHeader(w, header); err != nil {
		return 0, err
	}

	n, err := w.Write(payload)
	return persist.HeaderSize + int64(n), err
}

// Load reads a snapshot written by WriteSnapshot and reconstructs a mutable
// index; further inserts are allowed.
func Load(r io.Reader) (*Flat, error) {
	header, err := persist.ReadHeader(r)
	if err != nil {
		return nil, err
	}

	f, err := New(Options{
		Dimension: int(header.Dimension),
		Metric:    space.Metric(header.Metric),
	})
	if err != nil {
		return nil, err
	}

	stride := f.space.DataSize()
	if header.RawSize != header.Count*uint64(stride) {
		return nil, fmt.Errorf("flat: raw size %d does not match %d records of %d bytes",
			header.RawSize, header.Count, stride)
	}

	payload := make([]byte, header.PayloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("flat: read record section: %w", err)
	}
	if persist.Checksum(payload) != header.Checksum {
		return nil, persist.ErrChecksum
	}

	raw, err := persist.Decompress(persist.Compression(header.Compression), payload, int(header.RawSize))
	if err != nil {
		return nil, err
	}

	arena, err := store.NewArenaFromBytes(raw, stride, int(header.Count))
	if err != nil {
		return nil, err
	}
	f.arena = arena
	f.records = arena
	return f, nil
}

// SaveToFile writes a snapshot to path via a temp file and atomic rename.
func (f *Flat) SaveToFile(path string, codec persist.Compression) error {
	return persist.SaveToFile(path, func(w io.Writer) error {
		_, err := f.WriteSnapshot(w, codec)
		return err
	})
}

// LoadFromFile loads a snapshot from path into a mutable index.
func LoadFromFile(path string) (*Flat, error) {
	var f *Flat
	err := persist.LoadFromFile(path, func(r io.Reader) error {
		var loadErr error
		f, loadErr = Load(r)
		return loadErr
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// OpenMmap opens an uncompressed snapshot as a read-only index backed by the
// memory-mapped file: records are served from the page cache without loading
// the store into heap memory. Insert returns ErrReadOnly; Close unmaps.
//
// Unlike Load, the record section checksum is not verified up front, since
// that would fault in every page. Use Load when integrity matters more than
// startup latency.
func OpenMmap(path string) (*Flat, error) {
	var header *persist.FileHeader
	if err := persist.LoadFromFile(path, func(r io.Reader) error {
		var readErr error
		header, readErr = persist.ReadHeader(r)
		return readErr
	}); err != nil {
		return nil, err
	}

	if persist.Compression(header.Compression) != persist.CompressionNone {
		return nil, ErrNotMmapable
	}

	f, err := New(Options{
		Dimension: int(header.Dimension),
		Metric:    space.Metric(header.Metric),
	})
	if err != nil {
		return nil, err
	}

	stride := f.space.DataSize()
	if header.RawSize != header.Count*uint64(stride) {
		return nil, fmt.Errorf("flat: raw size %d does not match %d records of %d bytes",
			header.RawSize, header.Count, stride)
	}

	records, err := store.OpenMmap(path, int64(header.DataOffset), stride, int(header.Count))
	if err != nil {
		return nil, err
	}

	f.arena = nil
	f.records = records
	f.mmapped = records
	return f, nil
}

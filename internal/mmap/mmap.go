// Package mmap provides read-only memory-mapped file access.
//
// Snapshots are immutable once written, so only the read-only open path is
// supported. The mapping is shared: bytes are paged in on demand and never
// copied through user-space buffers.
package mmap

import (
	"errors"
	"fmt"
	"os"
)

// ErrEmptyFile is returned when mapping a zero-length file.
var ErrEmptyFile = errors.New("mmap: empty file")

// File is a read-only memory-mapped file.
type File struct {
	data []byte
	f    *os.File
}

// Open maps the file at path into memory as read-only.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		f.Close()
		return nil, ErrEmptyFile
	}
	if size != int64(int(size)) {
		f.Close()
		return nil, fmt.Errorf("mmap: file too large: %d bytes", size)
	}

	data, err := mmap(f, int(size))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap: %w", err)
	}

	return &File{data: data, f: f}, nil
}

// Bytes returns the mapped contents. The slice is valid until Close.
// Writing to it is undefined behavior.
func (m *File) Bytes() []byte {
	return m.data
}

// Len returns the mapped size in bytes.
func (m *File) Len() int {
	return len(m.data)
}

// Close unmaps the memory and closes the underlying file.
// Any slices previously returned by Bytes become invalid.
func (m *File) Close() error {
	if m == nil {
		return nil
	}
	var err error
	if m.data != nil {
		err = munmap(m.data)
		m.data = nil
	}
	if m.f != nil {
		if closeErr := m.f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		m.f = nil
	}
	return err
}

// Package persist provides the binary snapshot framing shared by index
// implementations: a fixed header with magic/version/CRC32 and optional
// block compression of the record section.
package persist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
)

const (
	// MagicNumber identifies quantspace snapshot files (ASCII: "QS80").
	MagicNumber = 0x51533830
	// Version is the current file format version (v1.0.0).
	Version = 0x00010000

	// HeaderSize is the fixed byte size of FileHeader on disk.
	HeaderSize = 64
)

var (
	ErrInvalidMagic   = errors.New("persist: invalid magic number")
	ErrInvalidVersion = errors.New("persist: unsupported version")
	ErrChecksum       = errors.New("persist: checksum mismatch")
)

// FileHeader is the 64-byte header at the start of every snapshot file.
// All integer fields are little-endian.
type FileHeader struct {
	Magic       uint32
	Version     uint32
	Metric      uint8   // space.Metric of the stored records
	Compression uint8   // Compression codec of the record section
	Padding1    [2]byte //
	Dimension   uint32  // Vector dimensionality
	Count       uint64  // Number of records
	DataOffset  uint64  // Offset of the record section (= HeaderSize)
	PayloadSize uint64  // Stored (possibly compressed) section size
	RawSize     uint64  // Uncompressed section size (Count * stride)
	Checksum    uint32  // CRC32 (IEEE) of the stored section
	Padding2    [4]byte //
	Reserved    [8]byte // Future use
}

// WriteHeader writes the header, filling in magic and version.
func WriteHeader(w io.Writer, header *FileHeader) error {
	header.Magic = MagicNumber
	header.Version = Version
	header.DataOffset = HeaderSize
	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates a snapshot header.
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("persist: read header: %w", err)
	}
	if header.Magic != MagicNumber {
		return nil, ErrInvalidMagic
	}
	if header.Version != Version {
		return nil, ErrInvalidVersion
	}
	return &header, nil
}

// Checksum computes the CRC32 (IEEE) checksum of data.
//
// CRC32 detects accidental storage corruption; it is not tamper-proof.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// SaveToFile writes a snapshot via a temp file and atomic rename, so a crash
// mid-write never leaves a torn snapshot at path.
func SaveToFile(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("persist: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("persist: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persist: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persist: rename: %w", err)
	}
	return nil
}

// LoadFromFile opens path and passes the reader to load.
func LoadFromFile(path string, load func(r io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("persist: open: %w", err)
	}
	defer f.Close()
	return load(f)
}

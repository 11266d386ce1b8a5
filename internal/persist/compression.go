package persist

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression defines the codec applied to the record section.
type Compression uint8

const (
	// CompressionNone stores the section uncompressed, which keeps the
	// snapshot mmap-able.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, lower ratio).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd block compression (slower, better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionLZ4:
		return "LZ4"
	case CompressionZSTD:
		return "ZSTD"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// zstd coders are concurrency-safe via EncodeAll/DecodeAll and shared
// process-wide.
var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func zstdInit() {
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
}

// Compress encodes data with the requested codec and returns the payload
// together with the codec actually used: an incompressible section falls
// back to CompressionNone so the stored payload never exceeds the raw one.
func Compress(c Compression, data []byte) ([]byte, Compression, error) {
	switch c {
	case CompressionNone:
		return data, CompressionNone, nil

	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("persist: lz4 compress: %w", err)
		}
		if n == 0 || n >= len(data) {
			return data, CompressionNone, nil
		}
		return dst[:n], CompressionLZ4, nil

	case CompressionZSTD:
		zstdOnce.Do(zstdInit)
		dst := zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2))
		if len(dst) >= len(data) {
			return data, CompressionNone, nil
		}
		return dst, CompressionZSTD, nil

	default:
		return nil, 0, fmt.Errorf("persist: unknown compression codec: %d", c)
	}
}

// Decompress decodes a stored payload back to rawSize bytes.
func Decompress(c Compression, payload []byte, rawSize int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(payload) != rawSize {
			return nil, fmt.Errorf("persist: raw section is %d bytes, expected %d", len(payload), rawSize)
		}
		return payload, nil

	case CompressionLZ4:
		dst := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return nil, fmt.Errorf("persist: lz4 decompress: %w", err)
		}
		if n != rawSize {
			return nil, fmt.Errorf("persist: lz4 decompressed %d bytes, expected %d", n, rawSize)
		}
		return dst, nil

	case CompressionZSTD:
		zstdOnce.Do(zstdInit)
		dst, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("persist: zstd decompress: %w", err)
		}
		if len(dst) != rawSize {
			return nil, fmt.Errorf("persist: zstd decompressed %d bytes, expected %d", len(dst), rawSize)
		}
		return dst, nil

	default:
		return nil, fmt.Errorf("persist: unknown compression codec: %d", c)
	}
}

// Package blobfile stores finished metadata blobs on disk with
// optional block compression. Read returns the exact bytes that were
// written, so the blob's own framing stays intact.
package blobfile

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/metaforge/unitmeta/errors"
)

// CompressionType defines the compression algorithm used.
type CompressionType uint8

const (
	// CompressionNone indicates no compression.
	CompressionNone CompressionType = 0
	// CompressionLZ4 indicates LZ4 block compression (fast).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD indicates ZSTD block compression (better ratio).
	CompressionZSTD CompressionType = 2
)

// File layout: magic, compression byte, uncompressed size, payload.
const (
	magic      uint32 = 0x756D6266 // "umbf"
	headerSize        = 4 + 1 + 4

	// maxExpansion caps how far a compressed payload may claim to
	// expand; the size header is untrusted input and must not drive
	// the output allocation on its own.
	maxExpansion = 1 << 10
)

// Option configures a write.
type Option func(*writeConfig)

type writeConfig struct {
	compression CompressionType
}

// WithCompression selects the payload compression. The default is
// none.
func WithCompression(c CompressionType) Option {
	return func(cfg *writeConfig) {
		cfg.compression = c
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Write stores a blob at path.
func Write(path string, blob []byte, opts ...Option) error {
	cfg := writeConfig{compression: CompressionNone}
	for _, opt := range opts {
		opt(&cfg)
	}

	out, err := Encode(blob, cfg.compression)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrap(errors.PhaseFile, errors.KindInvalidData, err, "write blob file")
	}
	return nil
}

// Read loads the blob stored at path.
func Read(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseFile, errors.KindNotFound, err, "read blob file")
	}
	return Decode(raw)
}

// Encode builds the container bytes for a blob. An incompressible
// payload is stored uncompressed regardless of the requested type.
func Encode(blob []byte, compression CompressionType) ([]byte, error) {
	if uint64(len(blob)) > 0xFFFF_FFFF {
		return nil, errors.OffsetOverflow("blob size", uint64(len(blob)))
	}

	payload := blob
	switch compression {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(blob)))
		n, err := lz4.CompressBlock(blob, buf, nil)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseFile, errors.KindInvalidData, err, "lz4 compress")
		}
		if n == 0 || n >= len(blob) {
			compression = CompressionNone
		} else {
			payload = buf[:n]
		}
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed := enc.EncodeAll(blob, nil)
		zstdEncoderPool.Put(enc)
		if len(compressed) >= len(blob) && len(blob) > 0 {
			compression = CompressionNone
		} else {
			payload = compressed
		}
	default:
		return nil, errors.Unsupported(errors.PhaseFile, "compression type")
	}
	if compression == CompressionNone {
		payload = blob
	}

	out := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(out, magic)
	out[4] = byte(compression)
	binary.BigEndian.PutUint32(out[5:], uint32(len(blob)))
	copy(out[headerSize:], payload)
	return out, nil
}

// Decode unpacks container bytes back into the original blob.
func Decode(raw []byte) ([]byte, error) {
	if len(raw) < headerSize {
		return nil, errors.Truncated(errors.PhaseFile, "%d bytes, need at least %d", len(raw), headerSize)
	}
	if binary.BigEndian.Uint32(raw) != magic {
		return nil, errors.New(errors.PhaseFile, errors.KindInvalidData).
			Detail("bad container magic 0x%08x", binary.BigEndian.Uint32(raw)).Build()
	}
	compression := CompressionType(raw[4])
	size := binary.BigEndian.Uint32(raw[5:])
	payload := raw[headerSize:]

	if compression != CompressionNone && uint64(size) > uint64(len(payload))*maxExpansion {
		return nil, errors.New(errors.PhaseFile, errors.KindInvalidData).
			Detail("claimed size %d for %d payload bytes", size, len(payload)).Build()
	}

	switch compression {
	case CompressionNone:
		if uint64(len(payload)) < uint64(size) {
			return nil, errors.Truncated(errors.PhaseFile, "payload has %d of %d bytes", len(payload), size)
		}
		return payload[:size], nil
	case CompressionLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseFile, errors.KindInvalidData, err, "lz4 decompress")
		}
		if uint32(n) != size {
			return nil, errors.New(errors.PhaseFile, errors.KindInvalidData).
				Detail("decompressed %d bytes, header claims %d", n, size).Build()
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(payload, make([]byte, 0, size))
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseFile, errors.KindInvalidData, err, "zstd decompress")
		}
		if uint32(len(out)) != size {
			return nil, errors.New(errors.PhaseFile, errors.KindInvalidData).
				Detail("decompressed %d bytes, header claims %d", len(out), size).Build()
		}
		return out, nil
	default:
		return nil, errors.Unsupported(errors.PhaseFile, "compression type")
	}
}

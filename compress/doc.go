// Package compress provides compression and decompression codecs for annex
// dataset chunks.
//
// Storage backends split array payloads into fixed-size chunks and compress
// each chunk independently, so ranged reads only pay the decompression cost
// of the chunks overlapping the selection.
//
// # Architecture
//
// The package defines three core interfaces:
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// # Supported Algorithms
//
//   - None (format.CompressionNone): pass-through, for incompressible data or
//     CPU-bound workloads.
//   - Zstd (format.CompressionZstd): best ratio, moderate speed. Uses the
//     pure-Go implementation by default; a cgo implementation is available
//     behind a build tag.
//   - S2 (format.CompressionS2): balanced ratio and speed.
//   - LZ4 (format.CompressionLZ4): fastest decompression, moderate ratio.
//   - Snappy (format.CompressionSnappy): fast, widely compatible block format.
//
// # Usage
//
// Codecs are stateless values, safe for concurrent use, and are normally
// obtained through the factory:
//
//	codec, err := compress.GetCodec(format.CompressionZstd)
//	if err != nil {
//	    return err
//	}
//	compressed, err := codec.Compress(chunk)
package compress

package compress

// ZstdCompressor provides Zstandard compression for annex dataset chunks.
//
// Zstd trades compression speed for ratio, making it the right default for:
//   - Cold storage and archival of written containers
//   - Network transmission of chunk objects where bandwidth is limited
//   - Read-mostly datasets where decompression happens on partial reads
//
// The Compress/Decompress implementations live in zstd_pure.go (pure Go,
// default) and zstd_cgo.go (cgo, behind a build tag).
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}

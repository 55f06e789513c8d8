package codec

import (
	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/internal/options"
	"github.com/arloliu/annex/storage"
)

// WriteOption configures dataset creation for a WriteElem call. The options
// apply to every array the write produces, including nested ones.
type WriteOption = options.Option[*storage.CreateOptions]

// WithCompression selects the chunk compression codec for written datasets.
func WithCompression(c format.CompressionType) WriteOption {
	return options.NoError(func(o *storage.CreateOptions) {
		o.Compression = c
	})
}

// WithCompressionLevel sets a codec-specific compression level hint.
func WithCompressionLevel(level int) WriteOption {
	return options.NoError(func(o *storage.CreateOptions) {
		o.CompressionLevel = level
	})
}

// WithChunkRows sets the number of axis-0 rows per stored chunk.
func WithChunkRows(rows int) WriteOption {
	return options.NoError(func(o *storage.CreateOptions) {
		o.ChunkRows = rows
	})
}

// WithResizable marks axes that may grow after creation, one flag per axis.
func WithResizable(axes ...bool) WriteOption {
	return options.NoError(func(o *storage.CreateOptions) {
		o.Resizable = axes
	})
}

func buildCreateOptions(opts []WriteOption) (storage.CreateOptions, error) {
	var co storage.CreateOptions
	if err := options.Apply(&co, opts...); err != nil {
		return storage.CreateOptions{}, err
	}

	return co, nil
}

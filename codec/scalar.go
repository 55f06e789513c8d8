package codec

import (
	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/value"
)

// writeScalar stores a zero-dimensional dataset.
func writeScalar(r *Registry, g storage.Group, key string, v value.Value, opts storage.CreateOptions) (storage.Node, error) {
	return g.CreateArray(key, v.(*value.Scalar).Data, opts)
}

// writeScalarUncompressed strips compression before writing, for backends
// that reject compressed scalar datasets.
func writeScalarUncompressed(r *Registry, g storage.Group, key string, v value.Value, opts storage.CreateOptions) (storage.Node, error) {
	opts.Compression = format.CompressionNone
	opts.CompressionLevel = 0

	return g.CreateArray(key, v.(*value.Scalar).Data, opts)
}

// readScalar serves the numeric-scalar, string and bytes encodings; the
// stored dtype already distinguishes them.
func readScalar(r *Registry, n storage.Node) (value.Value, error) {
	arr, err := asArray(n)
	if err != nil {
		return nil, err
	}
	buf, err := arr.Read()
	if err != nil {
		return nil, err
	}

	return value.NewScalar(buf), nil
}

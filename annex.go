// Package annex provides a versioned, self-describing codec for annotated
// data containers over hierarchical group/array storage.
//
// Annex serializes a heterogeneous object graph (tables, categorical and
// nullable columns, sparse matrices, dense arrays, mappings, scalars) into a
// tree of groups and arrays, and reconstructs it later, including partial,
// index-sliced reconstruction that never materializes unselected data. Every
// stored node carries an encoding tag (name, version) in its attributes;
// dispatch is registry-driven, so readers are resolved from what a node
// declares about itself, not from what the caller expects.
//
// # Core Features
//
//   - Registry-driven dispatch by runtime value kind and element kind on
//     write, by declared encoding tag on read
//   - Two storage backends with identical semantics: a chunked-binary-file
//     backend (variable-length strings, xxHash64 chunk checksums) and a
//     cloud array-store backend (flat chunk objects, fixed-length strings)
//   - Partial reads: select rows and columns by range, points, boolean mask
//     or index labels; only overlapping chunks are touched
//   - Optional chunk compression (Zstd, S2, LZ4, Snappy)
//   - Structural fallback for untagged legacy data, surfaced as a warning
//
// # Basic Usage
//
// Writing and reading a container:
//
//	import (
//	    "github.com/arloliu/annex"
//	    "github.com/arloliu/annex/storage/memfile"
//	)
//
//	f := memfile.New()
//	err := annex.Write(f.Root(), container)
//	...
//	back, err := annex.Read(f.Root())
//
// Partial read of two labeled observations and a variable range:
//
//	sub, err := annex.ReadPartial(f.Root(), codec.PartialOptions{
//	    Obs: index.SelLabels("c2", "c0"),
//	    Var: index.SelRange(0, 100),
//	})
//
// # Package Structure
//
// This package provides top-level wrappers around the codec package's
// default registry. For custom registries, warning routing, or element-level
// dispatch, use the codec package directly.
package annex

import (
	"github.com/arloliu/annex/codec"
	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/value"
)

// Write serializes a container's slots into the backend's root group and
// stamps the container encoding tag on it.
//
// Parameters:
//   - root: Destination root group of either backend
//   - c: Container to serialize
//   - opts: Dataset creation options (chunking, compression, resizability)
//
// Returns:
//   - error: Write or dispatch failure, decorated with the failing key path
func Write(root storage.Group, c *value.Container, opts ...codec.WriteOption) error {
	return codec.Default().WriteContainer(root, c, opts...)
}

// Read reconstructs a container previously written with Write.
func Read(root storage.Group) (*value.Container, error) {
	return codec.Default().ReadContainer(root)
}

// ReadPartial reconstructs a container restricted to the selected
// observations and variables. The obs/var index arrays are read first to
// normalize the selectors; the resulting row and column specs are shared by
// every axis-aligned slot.
func ReadPartial(root storage.Group, opts codec.PartialOptions) (*value.Container, error) {
	return codec.Default().ReadPartial(root, opts)
}

// WriteElem serializes any supported value as a child of g under key, using
// the default registry.
func WriteElem(g storage.Group, key string, v value.Value, opts ...codec.WriteOption) error {
	return codec.Default().WriteElem(g, key, v, opts...)
}

// ReadElem reconstructs the value stored at n by its declared encoding tag.
func ReadElem(n storage.Node) (value.Value, error) {
	return codec.Default().ReadElem(n)
}

// ReadElemPartial reconstructs a subset of the value stored at n; items
// limits which child keys are descended into (nil means all) and specs
// slices array-like leaves, one per axis.
func ReadElemPartial(n storage.Node, items codec.Items, specs ...index.Spec) (value.Value, error) {
	return codec.Default().ReadElemPartial(n, items, specs...)
}

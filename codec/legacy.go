package codec

import (
	"fmt"

	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/value"
)

// Legacy attribute markers on untagged sparse groups.
const (
	attrLegacySparseFormat = "h5sparse_format"
	attrLegacySparseShape  = "h5sparse_shape"
)

const legacyWarningMessage = "element was written without encoding metadata, inferring structure from the old format"

// There is no legacy writer: untagged output is never produced going
// forward. The read path infers the shape structurally, warns once per
// entry node, and continues.

func readLegacyGroup(r *Registry, n storage.Node) (value.Value, error) {
	r.warn(n.Path(), legacyWarningMessage)

	g, err := asGroup(n)
	if err != nil {
		return nil, err
	}

	return readLegacyGroupStructural(r, g)
}

func readLegacyArray(r *Registry, n storage.Node) (value.Value, error) {
	r.warn(n.Path(), legacyWarningMessage)

	return readLegacyDataset(n)
}

// readLegacyGroupStructural infers a group's shape: a legacy sparse marker
// attribute means a sparse matrix, anything else is a generic mapping whose
// untagged children recurse without further warnings.
func readLegacyGroupStructural(r *Registry, g storage.Group) (value.Value, error) {
	if fmtName := storage.AttrString(g.Attrs(), attrLegacySparseFormat, ""); fmtName != "" {
		return readLegacySparse(g, fmtName)
	}

	m := value.NewMapping()
	for _, k := range g.Keys() {
		child, _ := g.Child(k)
		item, err := readLegacyChild(r, child)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		m.Set(k, item)
	}

	return m, nil
}

// readLegacyChild reads a child by its own tag when present; untagged
// children stay on the structural path, so one legacy entry node produces
// exactly one warning.
func readLegacyChild(r *Registry, n storage.Node) (value.Value, error) {
	if !ReadTag(n).IsZero() {
		return r.ReadElem(n)
	}
	if g, ok := n.(storage.Group); ok {
		return readLegacyGroupStructural(r, g)
	}

	return readLegacyDataset(n)
}

func readLegacyDataset(n storage.Node) (value.Value, error) {
	arr, err := asArray(n)
	if err != nil {
		return nil, err
	}
	buf, err := arr.Read()
	if err != nil {
		return nil, err
	}
	if buf.IsScalar() {
		return value.NewScalar(buf), nil
	}

	return value.NewArray(buf), nil
}

// readLegacySparse reconstructs a sparse matrix from the old marker layout:
// h5sparse_format and h5sparse_shape attributes over the same three
// component datasets.
func readLegacySparse(g storage.Group, fmtName string) (value.Value, error) {
	var f value.SparseFormat
	switch fmtName {
	case "csr":
		f = value.CSR
	case "csc":
		f = value.CSC
	default:
		return nil, fmt.Errorf("%s: unknown legacy sparse format %q", g.Path(), fmtName)
	}

	shape, ok := storage.AttrInts(g.Attrs(), attrLegacySparseShape)
	if !ok || len(shape) != 2 {
		return nil, fmt.Errorf("%s: missing or malformed %s attribute", g.Path(), attrLegacySparseShape)
	}

	data, err := readFloat64s(g, "data")
	if err != nil {
		return nil, err
	}
	indices, err := readInt64s(g, "indices")
	if err != nil {
		return nil, err
	}
	indptr, err := readInt64s(g, "indptr")
	if err != nil {
		return nil, err
	}

	s := &value.Sparse{Format: f, Rows: shape[0], Cols: shape[1], Data: data, Indices: indices, Indptr: indptr}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", g.Path(), err)
	}

	return s, nil
}

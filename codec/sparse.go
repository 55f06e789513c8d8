package codec

import (
	"fmt"

	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/value"
)

const attrShape = "shape"

func sparseTag(v value.Value) format.Tag {
	if v.(*value.Sparse).Format == value.CSC {
		return tagCSC
	}

	return tagCSR
}

// writeSparse stores the three component arrays plus a shape attribute on
// the group. The components are plain datasets without their own encoding
// tags, written with a growable axis 0 so they can be appended to later.
func writeSparse(r *Registry, g storage.Group, key string, v value.Value, opts storage.CreateOptions) (storage.Node, error) {
	s := v.(*value.Sparse)
	if err := s.Validate(); err != nil {
		return nil, err
	}

	sub, err := g.CreateGroup(key)
	if err != nil {
		return nil, err
	}
	sub.Attrs().Set(attrShape, []int{s.Rows, s.Cols})

	opts.Resizable = []bool{true}
	if _, err := sub.CreateArray("data", storage.Float64s1D(s.Data), opts); err != nil {
		return nil, err
	}
	if _, err := sub.CreateArray("indices", storage.Int64s1D(s.Indices), opts); err != nil {
		return nil, err
	}
	if _, err := sub.CreateArray("indptr", storage.Int64s1D(s.Indptr), opts); err != nil {
		return nil, err
	}

	return sub, nil
}

func readSparseAs(f value.SparseFormat) ReadFunc {
	return func(r *Registry, n storage.Node) (value.Value, error) {
		g, err := asGroup(n)
		if err != nil {
			return nil, err
		}

		return readSparseGroup(g, f)
	}
}

// readSparseGroup reconstructs a sparse matrix from a group holding data,
// indices and indptr datasets plus a shape attribute. Shared with the
// legacy untagged fallback.
func readSparseGroup(g storage.Group, f value.SparseFormat) (*value.Sparse, error) {
	rows, cols, err := sparseShape(g)
	if err != nil {
		return nil, err
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

	s := &value.Sparse{Format: f, Rows: rows, Cols: cols, Data: data, Indices: indices, Indptr: indptr}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", g.Path(), err)
	}

	return s, nil
}

// readSparsePartialAs slices through the sparse structure itself: only the
// data/indices ranges belonging to selected major-axis slices are read, the
// minor axis is filtered afterwards, and nothing is densified.
func readSparsePartialAs(f value.SparseFormat) PartialFunc {
	return func(r *Registry, n storage.Node, items Items, specs []index.Spec) (value.Value, error) {
		g, err := asGroup(n)
		if err != nil {
			return nil, err
		}
		rows, cols, err := sparseShape(g)
		if err != nil {
			return nil, err
		}

		rowSpec, colSpec := specAt(specs, 0), specAt(specs, 1)
		if err := rowSpec.Validate(rows); err != nil {
			return nil, fmt.Errorf("rows: %w", err)
		}
		if err := colSpec.Validate(cols); err != nil {
			return nil, fmt.Errorf("cols: %w", err)
		}

		majSpec, minSpec := rowSpec, colSpec
		majLen := rows
		if f == value.CSC {
			majSpec, minSpec = colSpec, rowSpec
			majLen = cols
		}

		// indptr is one entry per major slice plus one; always small
		// relative to data, so it is read in full.
		indptr, err := readInt64s(g, "indptr")
		if err != nil {
			return nil, err
		}
		if len(indptr) != majLen+1 {
			return nil, fmt.Errorf("%s: indptr length %d does not match major axis %d", g.Path(), len(indptr), majLen)
		}

		dataArr, err := childArray(g, "data")
		if err != nil {
			return nil, err
		}
		idxArr, err := childArray(g, "indices")
		if err != nil {
			return nil, err
		}

		majSel := majSpec.Positions(majLen)
		out := &value.Sparse{Format: f, Indptr: []int64{0}}
		for _, maj := range majSel {
			lo, hi := int(indptr[maj]), int(indptr[maj+1])
			if lo < hi {
				dataBuf, err := dataArr.ReadRange(index.Range(lo, hi))
				if err != nil {
					return nil, err
				}
				idxBuf, err := idxArr.ReadRange(index.Range(lo, hi))
				if err != nil {
					return nil, err
				}
				out.Data = append(out.Data, toFloat64s(dataBuf)...)
				out.Indices = append(out.Indices, toInt64s(idxBuf)...)
			}
			out.Indptr = append(out.Indptr, int64(len(out.Data)))
		}

		if f == value.CSR {
			out.Rows, out.Cols = len(majSel), cols
			if !minSpec.IsAll() {
				return out.Slice(index.All(), minSpec)
			}
		} else {
			out.Rows, out.Cols = rows, len(majSel)
			if !minSpec.IsAll() {
				return out.Slice(minSpec, index.All())
			}
		}

		return out, nil
	}
}

func sparseShape(g storage.Group) (rows, cols int, err error) {
	shape, ok := storage.AttrInts(g.Attrs(), attrShape)
	if !ok || len(shape) != 2 {
		return 0, 0, fmt.Errorf("%s: missing or malformed shape attribute", g.Path())
	}

	return shape[0], shape[1], nil
}

func specAt(specs []index.Spec, i int) index.Spec {
	if i < len(specs) {
		return specs[i]
	}

	return index.All()
}

func readFloat64s(g storage.Group, key string) ([]float64, error) {
	arr, err := childArray(g, key)
	if err != nil {
		return nil, err
	}
	buf, err := arr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	return toFloat64s(buf), nil
}

func readInt64s(g storage.Group, key string) ([]int64, error) {
	arr, err := childArray(g, key)
	if err != nil {
		return nil, err
	}
	buf, err := arr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	return toInt64s(buf), nil
}

// toFloat64s widens a numeric buffer to float64, tolerating narrower stored
// dtypes from older writers.
func toFloat64s(buf storage.Buffer) []float64 {
	switch buf.Dtype {
	case format.DtypeFloat32:
		out := make([]float64, len(buf.Float32s))
		for i, v := range buf.Float32s {
			out[i] = float64(v)
		}

		return out
	case format.DtypeInt32:
		out := make([]float64, len(buf.Int32s))
		for i, v := range buf.Int32s {
			out[i] = float64(v)
		}

		return out
	case format.DtypeInt64:
		out := make([]float64, len(buf.Int64s))
		for i, v := range buf.Int64s {
			out[i] = float64(v)
		}

		return out
	default:
		return buf.Float64s
	}
}

// toInt64s widens an integer buffer to int64.
func toInt64s(buf storage.Buffer) []int64 {
	if buf.Dtype == format.DtypeInt32 {
		out := make([]int64, len(buf.Int32s))
		for i, v := range buf.Int32s {
			out[i] = int64(v)
		}

		return out
	}

	return buf.Int64s
}

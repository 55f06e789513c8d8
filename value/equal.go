package value

import (
	"math"
	"slices"

	"github.com/arloliu/annex/storage"
)

// Equal reports deep equality of two values under each shape's defined
// equality: exact for integers, bools and strings, NaN-aware for floats,
// structural (data/indices/indptr/shape) for sparse matrices.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch x := a.(type) {
	case *Mapping:
		y := b.(*Mapping)
		if !slices.Equal(x.Keys(), y.Keys()) {
			return false
		}
		for _, k := range x.Keys() {
			xv, _ := x.Get(k)
			yv, _ := y.Get(k)
			if !Equal(xv, yv) {
				return false
			}
		}

		return true
	case *Array:
		return EqualBuffer(x.Data, b.(*Array).Data)
	case *Scalar:
		return EqualBuffer(x.Data, b.(*Scalar).Data)
	case *Sparse:
		y := b.(*Sparse)
		return x.Format == y.Format && x.Rows == y.Rows && x.Cols == y.Cols &&
			equalFloats(x.Data, y.Data) &&
			slices.Equal(x.Indices, y.Indices) &&
			slices.Equal(x.Indptr, y.Indptr)
	case *Categorical:
		y := b.(*Categorical)
		return x.Ordered == y.Ordered &&
			slices.Equal(x.Codes, y.Codes) &&
			EqualBuffer(x.Categories, y.Categories)
	case *NullableInteger:
		y := b.(*NullableInteger)
		return slices.Equal(x.Values, y.Values) && equalMasks(x.Mask, y.Mask)
	case *NullableBoolean:
		y := b.(*NullableBoolean)
		return slices.Equal(x.Values, y.Values) && equalMasks(x.Mask, y.Mask)
	case *Table:
		y := b.(*Table)
		if !slices.Equal(x.ColNames(), y.ColNames()) || x.IndexName() != y.IndexName() {
			return false
		}
		if !Equal(x.Index(), y.Index()) {
			return false
		}
		for _, name := range x.ColNames() {
			xc, _ := x.Col(name)
			yc, _ := y.Col(name)
			if !Equal(xc, yc) {
				return false
			}
		}

		return true
	case *Container:
		y := b.(*Container)
		return Equal(x.X, y.X) &&
			equalTable(x.Obs, y.Obs) && equalTable(x.Var, y.Var) &&
			equalMapping(x.Obsm, y.Obsm) && equalMapping(x.Varm, y.Varm) &&
			equalMapping(x.Obsp, y.Obsp) && equalMapping(x.Varp, y.Varp) &&
			equalMapping(x.Layers, y.Layers) && equalMapping(x.Uns, y.Uns) &&
			equalRaw(x.Raw, y.Raw)
	case *Raw:
		y := b.(*Raw)
		return Equal(x.X, y.X) && equalTable(x.Var, y.Var) && equalMapping(x.Varm, y.Varm)
	default:
		return false
	}
}

// EqualBuffer reports equality of two buffers: same dtype, shape, and data,
// with NaN-aware float comparison.
func EqualBuffer(x, y storage.Buffer) bool {
	if x.Dtype != y.Dtype || !slices.Equal(x.Shape, y.Shape) {
		return false
	}

	switch {
	case x.Float32s != nil || y.Float32s != nil:
		if len(x.Float32s) != len(y.Float32s) {
			return false
		}
		for i := range x.Float32s {
			if !floatEq(float64(x.Float32s[i]), float64(y.Float32s[i])) {
				return false
			}
		}

		return true
	case x.Float64s != nil || y.Float64s != nil:
		return equalFloats(x.Float64s, y.Float64s)
	case x.Fields != nil || y.Fields != nil:
		if len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Name != y.Fields[i].Name || !EqualBuffer(x.Fields[i].Buffer, y.Fields[i].Buffer) {
				return false
			}
		}

		return true
	default:
		return slices.Equal(x.Int32s, y.Int32s) &&
			slices.Equal(x.Int64s, y.Int64s) &&
			slices.Equal(x.Bools, y.Bools) &&
			slices.Equal(x.Strings, y.Strings) &&
			slices.Equal(x.Raw, y.Raw)
	}
}

func floatEq(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}

	return a == b
}

func equalFloats(a, b []float64) bool {
	return slices.EqualFunc(a, b, floatEq)
}

func equalMasks(a, b []bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return slices.Equal(a, b)
}

func equalTable(a, b *Table) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return Equal(a, b)
}

func equalMapping(a, b *Mapping) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return Equal(a, b)
}

func equalRaw(a, b *Raw) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return Equal(a, b)
}

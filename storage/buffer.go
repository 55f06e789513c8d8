package storage

import (
	"fmt"

	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/index"
)

// Buffer is the flat, typed array payload exchanged between the codec layer
// and storage backends. Data is stored row-major; an empty Shape denotes a
// zero-dimensional scalar holding exactly one element.
//
// Exactly one of the typed slices is populated, selected by Dtype. Record
// buffers hold one 1-D Field per record field instead.
type Buffer struct {
	Dtype format.Dtype
	Shape []int

	Float32s []float32
	Float64s []float64
	Int32s   []int32
	Int64s   []int64
	Bools    []bool
	Strings  []string
	Raw      []byte
	Fields   []Field
}

// Field is one named column of a record buffer. Its Buffer must be 1-D with
// the same length as the record buffer's axis 0.
type Field struct {
	Name   string
	Buffer Buffer
}

// Float32s1D builds a 1-D float32 buffer.
func Float32s1D(data []float32) Buffer {
	return Buffer{Dtype: format.DtypeFloat32, Shape: []int{len(data)}, Float32s: data}
}

// Float64s1D builds a 1-D float64 buffer.
func Float64s1D(data []float64) Buffer {
	return Buffer{Dtype: format.DtypeFloat64, Shape: []int{len(data)}, Float64s: data}
}

// Int32s1D builds a 1-D int32 buffer.
func Int32s1D(data []int32) Buffer {
	return Buffer{Dtype: format.DtypeInt32, Shape: []int{len(data)}, Int32s: data}
}

// Int64s1D builds a 1-D int64 buffer.
func Int64s1D(data []int64) Buffer {
	return Buffer{Dtype: format.DtypeInt64, Shape: []int{len(data)}, Int64s: data}
}

// Bools1D builds a 1-D boolean buffer.
func Bools1D(data []bool) Buffer {
	return Buffer{Dtype: format.DtypeBool, Shape: []int{len(data)}, Bools: data}
}

// Strings1D builds a 1-D string buffer.
func Strings1D(data []string) Buffer {
	return Buffer{Dtype: format.DtypeString, Shape: []int{len(data)}, Strings: data}
}

// Float64Matrix builds a 2-D row-major float64 buffer.
func Float64Matrix(rows, cols int, data []float64) Buffer {
	return Buffer{Dtype: format.DtypeFloat64, Shape: []int{rows, cols}, Float64s: data}
}

// ScalarFloat64 builds a zero-dimensional float64 buffer.
func ScalarFloat64(v float64) Buffer {
	return Buffer{Dtype: format.DtypeFloat64, Float64s: []float64{v}}
}

// ScalarInt64 builds a zero-dimensional int64 buffer.
func ScalarInt64(v int64) Buffer {
	return Buffer{Dtype: format.DtypeInt64, Int64s: []int64{v}}
}

// ScalarBool builds a zero-dimensional boolean buffer.
func ScalarBool(v bool) Buffer {
	return Buffer{Dtype: format.DtypeBool, Bools: []bool{v}}
}

// ScalarString builds a zero-dimensional string buffer.
func ScalarString(v string) Buffer {
	return Buffer{Dtype: format.DtypeString, Strings: []string{v}}
}

// ScalarBytes builds a zero-dimensional raw bytes buffer.
func ScalarBytes(v []byte) Buffer {
	return Buffer{Dtype: format.DtypeBytes, Raw: v}
}

// RecordBuffer builds a 1-D record buffer with n rows from the given fields.
func RecordBuffer(n int, fields ...Field) Buffer {
	return Buffer{Dtype: format.DtypeRecord, Shape: []int{n}, Fields: fields}
}

// IsScalar reports whether the buffer is zero-dimensional.
func (b Buffer) IsScalar() bool {
	return len(b.Shape) == 0
}

// Len returns the total number of elements.
func (b Buffer) Len() int {
	n := 1
	for _, d := range b.Shape {
		n *= d
	}

	return n
}

// DataLen returns the number of elements actually stored, regardless of
// shape. Record buffers report their row count.
func (b Buffer) DataLen() int {
	switch b.Dtype {
	case format.DtypeFloat32:
		return len(b.Float32s)
	case format.DtypeFloat64:
		return len(b.Float64s)
	case format.DtypeInt32:
		return len(b.Int32s)
	case format.DtypeInt64:
		return len(b.Int64s)
	case format.DtypeBool:
		return len(b.Bools)
	case format.DtypeString:
		return len(b.Strings)
	case format.DtypeBytes:
		return 1
	case format.DtypeRecord:
		if len(b.Fields) == 0 {
			return 0
		}

		return b.Fields[0].Buffer.DataLen()
	default:
		return 0
	}
}

// Rows returns the length of axis 0; scalars count as a single row.
func (b Buffer) Rows() int {
	if b.IsScalar() {
		return 1
	}

	return b.Shape[0]
}

// rowSize returns the number of elements per axis-0 row.
func (b Buffer) rowSize() int {
	n := 1
	for _, d := range b.Shape[1:] {
		n *= d
	}

	return n
}

// Elem returns the element kind used for writer dispatch refinement.
func (b Buffer) Elem() format.ElemKind {
	return b.Dtype.Elem()
}

// Validate checks that the populated data slice matches Dtype and Shape.
func (b Buffer) Validate() error {
	want := b.Len()
	got := -1

	switch b.Dtype {
	case format.DtypeFloat32:
		got = len(b.Float32s)
	case format.DtypeFloat64:
		got = len(b.Float64s)
	case format.DtypeInt32:
		got = len(b.Int32s)
	case format.DtypeInt64:
		got = len(b.Int64s)
	case format.DtypeBool:
		got = len(b.Bools)
	case format.DtypeString:
		got = len(b.Strings)
	case format.DtypeBytes:
		if !b.IsScalar() {
			return fmt.Errorf("bytes buffers must be zero-dimensional")
		}

		return nil
	case format.DtypeRecord:
		if len(b.Shape) != 1 {
			return fmt.Errorf("record buffers must be 1-D, got shape %v", b.Shape)
		}
		for _, f := range b.Fields {
			if err := f.Buffer.Validate(); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
			if f.Buffer.Len() != want {
				return fmt.Errorf("field %q has %d rows, record has %d", f.Name, f.Buffer.Len(), want)
			}
		}

		return nil
	default:
		return fmt.Errorf("invalid dtype %s", b.Dtype)
	}

	if got != want {
		return fmt.Errorf("%s buffer has %d elements, shape %v requires %d", b.Dtype, got, b.Shape, want)
	}

	return nil
}

// Slice returns a new buffer restricted to the selection described by one
// index spec per axis. Missing trailing specs select the full axis. Only the
// first two axes may carry a non-full selection.
func (b Buffer) Slice(specs ...index.Spec) (Buffer, error) {
	if len(specs) > len(b.Shape) {
		for _, s := range specs[len(b.Shape):] {
			if !s.IsAll() {
				return Buffer{}, fmt.Errorf("selection has %d axes, buffer has %d", len(specs), len(b.Shape))
			}
		}
		specs = specs[:len(b.Shape)]
	}
	for i, s := range specs {
		if i >= 2 && !s.IsAll() {
			return Buffer{}, fmt.Errorf("selection beyond axis 1 is not supported")
		}
		if err := s.Validate(b.Shape[i]); err != nil {
			return Buffer{}, fmt.Errorf("axis %d: %w", i, err)
		}
	}

	var rows, cols []int
	if len(specs) >= 1 && !specs[0].IsAll() {
		rows = specs[0].Positions(b.Shape[0])
	}
	if len(specs) >= 2 && !specs[1].IsAll() {
		cols = specs[1].Positions(b.Shape[1])
	}
	if rows == nil && cols == nil {
		return b, nil
	}

	return b.take(rows, cols), nil
}

// take materializes the row/column selection. nil means the full axis.
func (b Buffer) take(rows, cols []int) Buffer {
	out := Buffer{Dtype: b.Dtype}

	out.Shape = make([]int, len(b.Shape))
	copy(out.Shape, b.Shape)
	if rows != nil {
		out.Shape[0] = len(rows)
	}
	if cols != nil {
		out.Shape[1] = len(cols)
	}

	if b.Dtype == format.DtypeRecord {
		out.Fields = make([]Field, len(b.Fields))
		for i, f := range b.Fields {
			out.Fields[i] = Field{Name: f.Name, Buffer: f.Buffer.take(rows, nil)}
		}

		return out
	}

	rowSize := b.rowSize()
	nCols := 0
	if len(b.Shape) >= 2 {
		nCols = b.Shape[1]
	}

	switch b.Dtype {
	case format.DtypeFloat32:
		out.Float32s = takeElems(b.Float32s, rowSize, nCols, rows, cols)
	case format.DtypeFloat64:
		out.Float64s = takeElems(b.Float64s, rowSize, nCols, rows, cols)
	case format.DtypeInt32:
		out.Int32s = takeElems(b.Int32s, rowSize, nCols, rows, cols)
	case format.DtypeInt64:
		out.Int64s = takeElems(b.Int64s, rowSize, nCols, rows, cols)
	case format.DtypeBool:
		out.Bools = takeElems(b.Bools, rowSize, nCols, rows, cols)
	case format.DtypeString:
		out.Strings = takeElems(b.Strings, rowSize, nCols, rows, cols)
	}

	return out
}

// takeElems selects rows then columns from a flat row-major slice.
// rowSize is the element count per axis-0 row; nCols is the axis-1 length
// (0 for 1-D data). nil selections mean the full axis.
func takeElems[T any](data []T, rowSize, nCols int, rows, cols []int) []T {
	sel := data
	if rows != nil {
		sel = make([]T, 0, len(rows)*rowSize)
		for _, r := range rows {
			sel = append(sel, data[r*rowSize:(r+1)*rowSize]...)
		}
	}
	if cols == nil {
		if rows == nil {
			return data
		}

		return sel
	}

	// Column selection requires 2-D data where rowSize == nCols.
	nRows := len(sel) / rowSize
	out := make([]T, 0, nRows*len(cols))
	for r := 0; r < nRows; r++ {
		base := r * nCols
		for _, c := range cols {
			out = append(out, sel[base+c])
		}
	}

	return out
}

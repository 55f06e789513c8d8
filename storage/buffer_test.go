package storage

import (
	"testing"

	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/index"
	"github.com/stretchr/testify/require"
)

func TestBuffer_ScalarBasics(t *testing.T) {
	b := ScalarFloat64(3.5)

	require.True(t, b.IsScalar())
	require.Equal(t, 1, b.Len())
	require.Equal(t, 1, b.Rows())
	require.NoError(t, b.Validate())
}

func TestBuffer_ValidateShapeMismatch(t *testing.T) {
	b := Buffer{Dtype: format.DtypeInt64, Shape: []int{3}, Int64s: []int64{1, 2}}
	require.Error(t, b.Validate())
}

func TestBuffer_ValidateRecord(t *testing.T) {
	rec := RecordBuffer(2,
		Field{Name: "id", Buffer: Int64s1D([]int64{1, 2})},
		Field{Name: "name", Buffer: Strings1D([]string{"a", "b"})},
	)
	require.NoError(t, rec.Validate())

	bad := RecordBuffer(2,
		Field{Name: "id", Buffer: Int64s1D([]int64{1})},
	)
	require.Error(t, bad.Validate())
}

func TestBuffer_Slice1D(t *testing.T) {
	b := Float64s1D([]float64{0, 1, 2, 3, 4})

	got, err := b.Slice(index.Range(1, 4))
	require.NoError(t, err)
	require.Equal(t, []int{3}, got.Shape)
	require.Equal(t, []float64{1, 2, 3}, got.Float64s)
}

func TestBuffer_Slice2DRowsAndCols(t *testing.T) {
	// 3x4 matrix, row-major.
	b := Float64Matrix(3, 4, []float64{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	})

	got, err := b.Slice(index.Points(2, 0), index.Range(1, 3))
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, got.Shape)
	require.Equal(t, []float64{9, 10, 1, 2}, got.Float64s)
}

func TestBuffer_SliceAllIsPassthrough(t *testing.T) {
	b := Strings1D([]string{"x", "y"})

	got, err := b.Slice(index.All())
	require.NoError(t, err)
	require.Equal(t, b.Strings, got.Strings)
}

func TestBuffer_SliceRecordRows(t *testing.T) {
	rec := RecordBuffer(3,
		Field{Name: "id", Buffer: Int64s1D([]int64{10, 20, 30})},
		Field{Name: "tag", Buffer: Strings1D([]string{"a", "b", "c"})},
	)

	got, err := rec.Slice(index.Points(2, 1))
	require.NoError(t, err)
	require.Equal(t, []int{2}, got.Shape)
	require.Equal(t, []int64{30, 20}, got.Fields[0].Buffer.Int64s)
	require.Equal(t, []string{"c", "b"}, got.Fields[1].Buffer.Strings)
}

func TestBuffer_SliceRejectsDeepSelection(t *testing.T) {
	b := Float64s1D([]float64{1, 2})

	_, err := b.Slice(index.All(), index.Range(0, 1))
	require.Error(t, err)
}

func TestAttrMap_Order(t *testing.T) {
	m := NewAttrMap()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3) // overwrite keeps position

	require.Equal(t, []string{"b", "a"}, m.Names())

	v, ok := m.Get("b")
	require.True(t, ok)
	require.Equal(t, 3, v)
}

func TestAttrHelpers(t *testing.T) {
	m := NewAttrMap()
	m.Set("name", "idx")
	m.Set("flag", true)
	m.Set("cols", []string{"a", "b"})
	m.Set("shape", []int{2, 3})

	require.Equal(t, "idx", AttrString(m, "name", ""))
	require.Equal(t, "def", AttrString(m, "missing", "def"))
	require.True(t, AttrBool(m, "flag", false))

	cols, ok := AttrStrings(m, "cols")
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, cols)

	shape, ok := AttrInts(m, "shape")
	require.True(t, ok)
	require.Equal(t, []int{2, 3}, shape)
}

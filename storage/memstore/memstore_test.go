package memstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/storage"
)

func TestCreateArray_RoundTrip(t *testing.T) {
	s := New()

	arr, err := s.Root().CreateArray("x", storage.Float64s1D([]float64{1, 2, 3}), storage.CreateOptions{})
	require.NoError(t, err)
	require.Equal(t, format.BackendStore, arr.Backend())
	require.Equal(t, "/x", arr.Path())

	got, err := arr.Read()
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, got.Float64s)
}

func TestChunkObjects_FlatKeySpace(t *testing.T) {
	s := New()

	g, err := s.Root().CreateGroup("obsm")
	require.NoError(t, err)
	_, err = g.CreateArray("pca", storage.Float64s1D([]float64{1, 2, 3, 4, 5}), storage.CreateOptions{ChunkRows: 2})
	require.NoError(t, err)

	require.ElementsMatch(t, []string{
		"/obsm/pca/chunks/0",
		"/obsm/pca/chunks/1",
		"/obsm/pca/chunks/2",
	}, s.ObjectKeys())
}

func TestDelete_RemovesChunkObjects(t *testing.T) {
	s := New()

	_, err := s.Root().CreateArray("x", storage.Float64s1D([]float64{1, 2, 3, 4}), storage.CreateOptions{ChunkRows: 2})
	require.NoError(t, err)
	require.Len(t, s.ObjectKeys(), 2)

	require.NoError(t, s.Root().Delete("x"))
	require.Empty(t, s.ObjectKeys())
	require.False(t, s.Root().Has("x"))
}

func TestReplaceArray_DropsStaleObjects(t *testing.T) {
	s := New()

	_, err := s.Root().CreateArray("x", storage.Float64s1D([]float64{1, 2, 3, 4, 5, 6}), storage.CreateOptions{ChunkRows: 2})
	require.NoError(t, err)
	require.Len(t, s.ObjectKeys(), 3)

	arr, err := s.Root().CreateArray("x", storage.Float64s1D([]float64{9}), storage.CreateOptions{ChunkRows: 2})
	require.NoError(t, err)
	require.Len(t, s.ObjectKeys(), 1)

	got, err := arr.Read()
	require.NoError(t, err)
	require.Equal(t, []float64{9}, got.Float64s)
}

func TestFixedLengthStrings_Trimmed(t *testing.T) {
	s := New()
	strs := []string{"short", "a much longer value", ""}

	arr, err := s.Root().CreateArray("names", storage.Strings1D(strs), storage.CreateOptions{})
	require.NoError(t, err)

	got, err := arr.Read()
	require.NoError(t, err)
	require.Equal(t, strs, got.Strings)
}

func TestCompressedScalar_Allowed(t *testing.T) {
	s := New()

	arr, err := s.Root().CreateArray("s", storage.ScalarFloat64(2.5), storage.CreateOptions{
		Compression: format.CompressionZstd,
	})
	require.NoError(t, err)

	got, err := arr.Read()
	require.NoError(t, err)
	require.True(t, got.IsScalar())
	require.Equal(t, 2.5, got.Float64s[0])
}

func TestReadRange_FetchesOnlyOverlappingObjects(t *testing.T) {
	s := New()
	data := make([]int64, 10)
	for i := range data {
		data[i] = int64(i)
	}

	arr, err := s.Root().CreateArray("x", storage.Int64s1D(data), storage.CreateOptions{ChunkRows: 3})
	require.NoError(t, err)

	// Drop the first chunk object; a selection inside later chunks must not
	// fetch it.
	delete(s.objects, "/x/chunks/0")

	got, err := arr.ReadRange(index.Range(4, 8))
	require.NoError(t, err)
	require.Equal(t, []int64{4, 5, 6, 7}, got.Int64s)

	_, err = arr.Read()
	require.ErrorContains(t, err, "chunk object 0 missing")
}

func TestReadRange_PointsAndColumns(t *testing.T) {
	s := New()
	buf := storage.Float64Matrix(3, 3, []float64{
		0, 1, 2,
		10, 11, 12,
		20, 21, 22,
	})

	arr, err := s.Root().CreateArray("m", buf, storage.CreateOptions{ChunkRows: 2})
	require.NoError(t, err)

	got, err := arr.ReadRange(index.Points(2, 0), index.Range(1, 3))
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, got.Shape)
	require.Equal(t, []float64{21, 22, 1, 2}, got.Float64s)
}

func TestAppend_Resizable(t *testing.T) {
	s := New()

	arr, err := s.Root().CreateArray("x", storage.Int64s1D([]int64{1}), storage.CreateOptions{
		ChunkRows: 2,
		Resizable: []bool{true},
	})
	require.NoError(t, err)

	require.NoError(t, arr.(*array).Append(storage.Int64s1D([]int64{2, 3})))

	got, err := arr.Read()
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, got.Int64s)
}

func TestAppend_UnalignedChunkBoundary(t *testing.T) {
	s := New()

	arr, err := s.Root().CreateArray("x", storage.Int64s1D([]int64{10, 11, 12}), storage.CreateOptions{
		ChunkRows: 4,
		Resizable: []bool{true},
	})
	require.NoError(t, err)

	// Each append starts a fresh chunk object, so chunk row counts end up
	// 3, 2 and 1.
	require.NoError(t, arr.(*array).Append(storage.Int64s1D([]int64{13, 14})))
	require.NoError(t, arr.(*array).Append(storage.Int64s1D([]int64{15})))
	require.Equal(t, []int{6}, arr.Shape())

	got, err := arr.Read()
	require.NoError(t, err)
	require.Equal(t, []int64{10, 11, 12, 13, 14, 15}, got.Int64s)

	sub, err := arr.ReadRange(index.Range(1, 4))
	require.NoError(t, err)
	require.Equal(t, []int64{11, 12, 13}, sub.Int64s)

	pts, err := arr.ReadRange(index.Points(5, 2, 4))
	require.NoError(t, err)
	require.Equal(t, []int64{15, 12, 14}, pts.Int64s)
}

func TestRecord_FixedWidthRoundTrip(t *testing.T) {
	s := New()
	rec := storage.RecordBuffer(2,
		storage.Field{Name: "id", Buffer: storage.Int32s1D([]int32{4, 5})},
		storage.Field{Name: "label", Buffer: storage.Strings1D([]string{"aa", "b"})},
	)

	arr, err := s.Root().CreateArray("r", rec, storage.CreateOptions{})
	require.NoError(t, err)

	got, err := arr.Read()
	require.NoError(t, err)
	require.Equal(t, []int32{4, 5}, got.Fields[0].Buffer.Int32s)
	require.Equal(t, []string{"aa", "b"}, got.Fields[1].Buffer.Strings)
}

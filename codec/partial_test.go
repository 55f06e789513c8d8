package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/value"
)

func TestPartialArray(t *testing.T) {
	for _, bc := range newBackends() {
		data := make([]float64, 20)
		for i := range data {
			data[i] = float64(i)
		}
		require.NoError(t, Default().WriteElem(bc.root, "x", value.NewArray(storage.Float64s1D(data)), WithChunkRows(6)))

		node, _ := bc.root.Child("x")
		got, err := Default().ReadElemPartial(node, nil, index.Range(7, 11))
		require.NoError(t, err)
		require.Equal(t, []float64{7, 8, 9, 10}, got.(*value.Array).Data.Float64s)
	}
}

func TestPartialTableSubsetsExactly(t *testing.T) {
	for _, bc := range newBackends() {
		tbl := value.NewTable("", value.NewArray(storage.Strings1D([]string{
			"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8", "r9",
		})))
		a := make([]float64, 10)
		b := make([]int64, 10)
		c := make([]bool, 10)
		for i := 0; i < 10; i++ {
			a[i] = float64(i) * 1.5
			b[i] = int64(i)
			c[i] = i%2 == 0
		}
		tbl.AddCol("a", value.NewArray(storage.Float64s1D(a)))
		tbl.AddCol("b", value.NewArray(storage.Int64s1D(b)))
		tbl.AddCol("c", value.NewArray(storage.Bools1D(c)))

		require.NoError(t, Default().WriteElem(bc.root, "df", tbl))
		node, _ := bc.root.Child("df")

		got, err := Default().ReadElemPartial(node, Items{"a": nil}, index.Range(2, 5))
		require.NoError(t, err)

		sub := got.(*value.Table)
		require.Equal(t, []string{"a"}, sub.ColNames())
		require.Equal(t, 3, sub.NRows())
		require.Equal(t, []string{"r2", "r3", "r4"}, sub.Index().(*value.Array).Data.Strings)
		colA, _ := sub.Col("a")
		require.Equal(t, []float64{3, 4.5, 6}, colA.(*value.Array).Data.Float64s)

		// Matches the full read sliced the same way.
		full, err := Default().ReadElem(node)
		require.NoError(t, err)
		fullA, _ := full.(*value.Table).Col("a")
		sliced, err := fullA.(*value.Array).Data.Slice(index.Range(2, 5))
		require.NoError(t, err)
		require.True(t, value.EqualBuffer(sliced, colA.(*value.Array).Data))
	}
}

func TestPartialTable_CategoricalAndNullableRows(t *testing.T) {
	root := memRoot(t)
	require.NoError(t, Default().WriteElem(root, "df", testTable()))
	node, _ := root.Child("df")

	got, err := Default().ReadElemPartial(node, nil, index.Points(3, 1))
	require.NoError(t, err)

	sub := got.(*value.Table)
	grp, _ := sub.Col("group")
	cat := grp.(*value.Categorical)
	require.Equal(t, []int64{0, 1}, cat.Codes)
	// Categories are shared reference data: always whole.
	require.Equal(t, []string{"a", "b"}, cat.Categories.Strings)

	cnt, _ := sub.Col("count")
	ni := cnt.(*value.NullableInteger)
	require.Equal(t, []int64{4, 2}, ni.Values)
	require.Equal(t, []bool{false, true}, ni.Mask)
}

func TestPartialSparse(t *testing.T) {
	for _, bc := range newBackends() {
		want := testCSR()
		require.NoError(t, Default().WriteElem(bc.root, "m", want))
		node, _ := bc.root.Child("m")

		got, err := Default().ReadElemPartial(node, nil, index.Points(2, 0), index.Range(1, 4))
		require.NoError(t, err)

		expect, err := want.Slice(index.Points(2, 0), index.Range(1, 4))
		require.NoError(t, err)
		require.True(t, value.Equal(expect, got.(*value.Sparse)))
	}
}

func TestPartialSparse_CSC(t *testing.T) {
	root := memRoot(t)
	want := value.NewCSC(3, 3,
		[]float64{1, 2, 3},
		[]int64{0, 2, 1},
		[]int64{0, 1, 2, 3},
	)
	require.NoError(t, Default().WriteElem(root, "m", want))
	node, _ := root.Child("m")

	got, err := Default().ReadElemPartial(node, nil, index.All(), index.Points(2, 1))
	require.NoError(t, err)

	expect, err := want.Slice(index.All(), index.Points(2, 1))
	require.NoError(t, err)
	require.True(t, value.Equal(expect, got.(*value.Sparse)))
}

func TestPartialMapping_ItemsAndIndices(t *testing.T) {
	root := memRoot(t)

	m := value.NewMapping()
	m.Set("pca", value.NewArray(storage.Float64Matrix(4, 2, []float64{0, 1, 10, 11, 20, 21, 30, 31})))
	m.Set("umap", value.NewArray(storage.Float64Matrix(4, 2, []float64{5, 6, 15, 16, 25, 26, 35, 36})))
	require.NoError(t, Default().WriteElem(root, "obsm", m))
	node, _ := root.Child("obsm")

	got, err := Default().ReadElemPartial(node, Items{"pca": nil}, index.Range(1, 3))
	require.NoError(t, err)

	sub := got.(*value.Mapping)
	require.Equal(t, []string{"pca"}, sub.Keys())
	pca, _ := sub.Get("pca")
	require.Equal(t, []float64{10, 11, 20, 21}, pca.(*value.Array).Data.Float64s)
	require.Equal(t, []int{2, 2}, pca.(*value.Array).Data.Shape)
}

func TestPartialCategorical(t *testing.T) {
	root := memRoot(t)
	c := value.NewCategorical(
		[]int64{0, 1, 2, value.MissingCode, 1},
		storage.Strings1D([]string{"x", "y", "z"}),
		true,
	)
	require.NoError(t, Default().WriteElem(root, "cat", c))
	node, _ := root.Child("cat")

	got, err := Default().ReadElemPartial(node, nil, index.Range(2, 5))
	require.NoError(t, err)

	cat := got.(*value.Categorical)
	require.Equal(t, []int64{2, value.MissingCode, 1}, cat.Codes)
	require.Equal(t, []string{"x", "y", "z"}, cat.Categories.Strings)
	require.True(t, cat.Ordered)
}

func TestLegacyTableRead(t *testing.T) {
	for _, bc := range newBackends() {
		g := buildLegacyTable(t, bc.root)

		r := quietRegistry()
		got, err := r.ReadElem(g)
		require.NoError(t, err)

		tbl := got.(*value.Table)
		require.Equal(t, "", tbl.IndexName())
		require.Equal(t, []string{"value", "kind"}, tbl.ColNames())

		kind, _ := tbl.Col("kind")
		cat := kind.(*value.Categorical)
		require.Equal(t, []int64{0, 1, 0}, cat.Codes)
		require.Equal(t, []string{"wt", "ko"}, cat.Categories.Strings)
		require.False(t, cat.Ordered)
	}
}

func TestLegacyTablePartial_RowsOnly(t *testing.T) {
	root := memRoot(t)
	g := buildLegacyTable(t, root)

	r := quietRegistry()
	// A column-axis spec is tolerated but only rows are sliced.
	got, err := r.ReadElemPartial(g, Items{"kind": nil}, index.Range(1, 3), index.Points(0))
	require.NoError(t, err)

	tbl := got.(*value.Table)
	require.Equal(t, []string{"kind"}, tbl.ColNames())
	require.Equal(t, 2, tbl.NRows())
	kind, _ := tbl.Col("kind")
	require.Equal(t, []int64{1, 0}, kind.(*value.Categorical).Codes)
}

// buildLegacyTable lays out a 0.1.0 table by hand: tagged dataframe/0.1.0,
// one plain column and one old-style categorical column whose categories
// attribute names a sibling dataset.
func buildLegacyTable(t *testing.T, root storage.Group) storage.Group {
	t.Helper()

	g, err := root.CreateGroup("old_df")
	require.NoError(t, err)
	g.Attrs().Set("_index", "_index")
	g.Attrs().Set("column-order", []string{"value", "kind"})

	_, err = g.CreateArray("_index", storage.Strings1D([]string{"r0", "r1", "r2"}), storage.CreateOptions{})
	require.NoError(t, err)
	_, err = g.CreateArray("value", storage.Float64s1D([]float64{0.1, 0.2, 0.3}), storage.CreateOptions{})
	require.NoError(t, err)

	codes, err := g.CreateArray("kind", storage.Int64s1D([]int64{0, 1, 0}), storage.CreateOptions{})
	require.NoError(t, err)
	codes.Attrs().Set("categories", "__categories_kind")
	_, err = g.CreateArray("__categories_kind", storage.Strings1D([]string{"wt", "ko"}), storage.CreateOptions{})
	require.NoError(t, err)

	WriteTag(g, tagTableLegacy)

	return g
}

func memRoot(t *testing.T) storage.Group {
	t.Helper()

	return newBackends()[0].root
}

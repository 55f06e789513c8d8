package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/storage/memfile"
	"github.com/arloliu/annex/storage/memstore"
	"github.com/arloliu/annex/value"
)

type backendCase struct {
	name string
	root storage.Group
}

func newBackends() []backendCase {
	return []backendCase{
		{name: "file", root: memfile.New().Root()},
		{name: "store", root: memstore.New().Root()},
	}
}

func quietRegistry() *Registry {
	r := New()
	registerBuiltins(r)
	r.SetWarningHandler(func(Warning) {})

	return r
}

func testCSR() *value.Sparse {
	// 3x4:
	// [1 0 2 0]
	// [0 0 0 0]
	// [0 3 0 4]
	return value.NewCSR(3, 4,
		[]float64{1, 2, 3, 4},
		[]int64{0, 2, 1, 3},
		[]int64{0, 2, 2, 4},
	)
}

func testTable() *value.Table {
	t := value.NewTable("", value.NewArray(storage.Strings1D([]string{"r0", "r1", "r2", "r3"})))
	t.AddCol("score", value.NewArray(storage.Float64s1D([]float64{0.5, 1.5, 2.5, 3.5})))
	t.AddCol("group", value.NewCategorical(
		[]int64{0, 1, value.MissingCode, 0},
		storage.Strings1D([]string{"a", "b"}),
		true,
	))
	t.AddCol("count", &value.NullableInteger{Values: []int64{1, 2, 3, 4}, Mask: []bool{false, true, false, false}})
	t.AddCol("flag", &value.NullableBoolean{Values: []bool{true, false, true, false}})

	return t
}

func TestRoundTrip_AllShapes(t *testing.T) {
	shapes := map[string]value.Value{
		"numeric-array": value.NewArray(storage.Float64s1D([]float64{1, 2.5, -3})),
		"matrix":        value.NewArray(storage.Float64Matrix(2, 3, []float64{1, 2, 3, 4, 5, 6})),
		"string-array":  value.NewArray(storage.Strings1D([]string{"a", "", "ccc"})),
		"rec-array": value.NewArray(storage.RecordBuffer(2,
			storage.Field{Name: "id", Buffer: storage.Int64s1D([]int64{1, 2})},
			storage.Field{Name: "name", Buffer: storage.Strings1D([]string{"x", "y"})},
		)),
		"csr":   testCSR(),
		"csc":   value.NewCSC(2, 3, []float64{5, 6}, []int64{0, 1}, []int64{0, 1, 1, 2}),
		"table": testTable(),
		"categorical": value.NewCategorical(
			[]int64{1, 0, value.MissingCode},
			storage.Strings1D([]string{"low", "high"}),
			false,
		),
		"nullable-int":   &value.NullableInteger{Values: []int64{7, 8}, Mask: []bool{true, false}},
		"nullable-bool":  &value.NullableBoolean{Values: []bool{false, true}},
		"numeric-scalar": value.NewScalar(storage.ScalarFloat64(3.25)),
		"bool-scalar":    value.NewScalar(storage.ScalarBool(true)),
		"string-scalar":  value.NewScalar(storage.ScalarString("hello")),
		"mapping": func() value.Value {
			m := value.NewMapping()
			m.Set("inner", value.NewArray(storage.Int64s1D([]int64{9})))
			m.Set("note", value.NewScalar(storage.ScalarString("n")))

			return m
		}(),
	}

	for _, bc := range newBackends() {
		for name, v := range shapes {
			t.Run(bc.name+"/"+name, func(t *testing.T) {
				r := Default()
				require.NoError(t, r.WriteElem(bc.root, name, v))

				node, ok := bc.root.Child(name)
				require.True(t, ok)
				got, err := r.ReadElem(node)
				require.NoError(t, err)
				require.True(t, value.Equal(v, got), "round trip mismatch for %s", name)
			})
		}
	}
}

func TestTagStamping(t *testing.T) {
	cases := []struct {
		key string
		v   value.Value
		tag format.Tag
	}{
		{"a", value.NewArray(storage.Float64s1D([]float64{1})), tagArray},
		{"s", value.NewArray(storage.Strings1D([]string{"x"})), tagStringArray},
		{"m", testCSR(), tagCSR},
		{"t", testTable(), tagTable},
		{"sc", value.NewScalar(storage.ScalarInt64(1)), tagNumericScalar},
		{"str", value.NewScalar(storage.ScalarString("x")), tagString},
	}

	for _, bc := range newBackends() {
		for _, tc := range cases {
			require.NoError(t, Default().WriteElem(bc.root, tc.key, tc.v))
			node, _ := bc.root.Child(tc.key)
			require.Equal(t, tc.tag, ReadTag(node), "%s/%s", bc.name, tc.key)
		}
	}
}

func TestMostSpecificWriterWins(t *testing.T) {
	r := New()
	root := memfile.New().Root()

	var called string
	stub := func(name string) WriteFunc {
		return func(r *Registry, g storage.Group, key string, v value.Value, opts storage.CreateOptions) (storage.Node, error) {
			called = name
			return g.CreateArray(key, v.(*value.Array).Data, opts)
		}
	}
	r.RegisterWrite(format.BackendFile, value.KindArray, format.ElemNone, tagArray, stub("bare"))
	r.RegisterWrite(format.BackendFile, value.KindArray, format.ElemText, tagStringArray, stub("text"))

	require.NoError(t, r.WriteElem(root, "x", value.NewArray(storage.Strings1D([]string{"a"}))))
	require.Equal(t, "text", called)

	require.NoError(t, r.WriteElem(root, "y", value.NewArray(storage.Float64s1D([]float64{1}))))
	require.Equal(t, "bare", called)
}

func TestOverwriteIsDestructive(t *testing.T) {
	for _, bc := range newBackends() {
		r := Default()

		m := value.NewMapping()
		m.Set("left", value.NewScalar(storage.ScalarInt64(1)))
		m.Set("right", value.NewScalar(storage.ScalarInt64(2)))
		require.NoError(t, r.WriteElem(bc.root, "k", m))

		require.NoError(t, r.WriteElem(bc.root, "k", value.NewArray(storage.Float64s1D([]float64{5}))))

		node, ok := bc.root.Child("k")
		require.True(t, ok)
		require.Equal(t, storage.NodeArray, node.Kind())

		got, err := r.ReadElem(node)
		require.NoError(t, err)
		require.Equal(t, []float64{5}, got.(*value.Array).Data.Float64s)
	}
}

func TestReservedColumnNameRejected(t *testing.T) {
	for _, bc := range newBackends() {
		bad := value.NewTable("", value.NewArray(storage.Strings1D([]string{"r0"})))
		bad.AddCol("_index", value.NewArray(storage.Float64s1D([]float64{1})))

		err := Default().WriteElem(bc.root, "df", bad)

		var reserved *ReservedColumnNameError
		require.ErrorAs(t, err, &reserved)
		require.Equal(t, "_index", reserved.Name)
		// Fails before any data is written.
		require.False(t, bc.root.Has("df"))
	}
}

func TestNoWriterFound(t *testing.T) {
	for _, bc := range newBackends() {
		// Bytes scalars are read-only; no writer exists for them, and no
		// bare scalar registration may absorb them either.
		err := Default().WriteElem(bc.root, "b", value.NewScalar(storage.ScalarBytes([]byte{1})))

		var nw *NoWriterFoundError
		require.ErrorAs(t, err, &nw)
		require.Equal(t, value.KindScalar, nw.ValueKind)
		require.Equal(t, format.ElemBytes, nw.Elem)
		require.Equal(t, bc.root.Backend(), nw.Backend)
		require.False(t, bc.root.Has("b"))
	}
}

func TestNoReaderFound(t *testing.T) {
	for _, bc := range newBackends() {
		g, err := bc.root.CreateGroup("mystery")
		require.NoError(t, err)
		WriteTag(g, format.NewTag("made-up", "9.9.9"))

		_, err = Default().ReadElem(g)

		var nr *NoReaderFoundError
		require.ErrorAs(t, err, &nr)
		require.Equal(t, format.NewTag("made-up", "9.9.9"), nr.Tag)
		require.Equal(t, bc.root.Backend(), nr.Backend)
	}
}

func TestNoPartialReaderFound(t *testing.T) {
	root := memfile.New().Root()
	rec := value.NewArray(storage.RecordBuffer(1,
		storage.Field{Name: "id", Buffer: storage.Int64s1D([]int64{1})},
	))
	require.NoError(t, Default().WriteElem(root, "r", rec))

	node, _ := root.Child("r")
	_, err := Default().ReadElemPartial(node, nil, index.Range(0, 1))

	var np *NoPartialReaderFoundError
	require.ErrorAs(t, err, &np)
	require.Equal(t, tagRecArray, np.Tag)
}

func TestErrorPathDecoration(t *testing.T) {
	root := memfile.New().Root()

	m := value.NewMapping()
	inner := value.NewMapping()
	inner.Set("bad", value.NewScalar(storage.ScalarBytes([]byte{1})))
	m.Set("nested", inner)

	err := Default().WriteElem(root, "uns", m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "uns: nested: bad:")

	var nw *NoWriterFoundError
	require.ErrorAs(t, err, &nw)
}

func TestScalarCompressionStrippedOnFile(t *testing.T) {
	root := memfile.New().Root()

	// The file backend rejects compressed scalars; the scalar writer strips
	// the option instead of failing.
	err := Default().WriteElem(root, "s", value.NewScalar(storage.ScalarFloat64(1)), WithCompression(format.CompressionZstd))
	require.NoError(t, err)

	node, _ := root.Child("s")
	got, err := Default().ReadElem(node)
	require.NoError(t, err)
	require.Equal(t, 1.0, got.(*value.Scalar).Data.Float64s[0])
}

func TestCategoricalCodeBounds(t *testing.T) {
	for _, bc := range newBackends() {
		c := value.NewCategorical(
			[]int64{0, value.MissingCode, 2, 1},
			storage.Strings1D([]string{"x", "y", "z"}),
			false,
		)
		require.NoError(t, Default().WriteElem(bc.root, "cat", c))

		node, _ := bc.root.Child("cat")
		got, err := Default().ReadElem(node)
		require.NoError(t, err)

		cat := got.(*value.Categorical)
		require.NoError(t, cat.Validate())
		for _, code := range cat.Codes {
			ok := code == value.MissingCode || (code >= 0 && int(code) < cat.Categories.Len())
			require.True(t, ok)
		}
	}
}

func TestLegacyFallback_Sparse(t *testing.T) {
	for _, bc := range newBackends() {
		r := quietRegistry()
		var warnings []Warning
		r.SetWarningHandler(func(w Warning) { warnings = append(warnings, w) })

		// Old-format sparse group: marker attributes, no encoding tag.
		g, err := bc.root.CreateGroup("old")
		require.NoError(t, err)
		g.Attrs().Set("h5sparse_format", "csr")
		g.Attrs().Set("h5sparse_shape", []int{3, 4})
		want := testCSR()
		_, err = g.CreateArray("data", storage.Float64s1D(want.Data), storage.CreateOptions{})
		require.NoError(t, err)
		_, err = g.CreateArray("indices", storage.Int64s1D(want.Indices), storage.CreateOptions{})
		require.NoError(t, err)
		_, err = g.CreateArray("indptr", storage.Int64s1D(want.Indptr), storage.CreateOptions{})
		require.NoError(t, err)

		got, err := r.ReadElem(g)
		require.NoError(t, err)
		require.True(t, value.Equal(want, got))

		require.Len(t, warnings, 1)
		require.Equal(t, "/old", warnings[0].Path)
	}
}

func TestLegacyFallback_GroupAndLeaf(t *testing.T) {
	root := memstore.New().Root()
	r := quietRegistry()
	var warnings []Warning
	r.SetWarningHandler(func(w Warning) { warnings = append(warnings, w) })

	g, err := root.CreateGroup("untagged")
	require.NoError(t, err)
	_, err = g.CreateArray("xs", storage.Float64s1D([]float64{1, 2}), storage.CreateOptions{})
	require.NoError(t, err)
	sub, err := g.CreateGroup("deeper")
	require.NoError(t, err)
	_, err = sub.CreateArray("ys", storage.Int64s1D([]int64{3}), storage.CreateOptions{})
	require.NoError(t, err)

	got, err := r.ReadElem(g)
	require.NoError(t, err)

	m := got.(*value.Mapping)
	require.Equal(t, []string{"xs", "deeper"}, m.Keys())
	xs, _ := m.Get("xs")
	require.Equal(t, []float64{1, 2}, xs.(*value.Array).Data.Float64s)
	deeper, _ := m.Get("deeper")
	require.Equal(t, value.KindMapping, deeper.Kind())

	// One warning for the whole structural traversal, naming the entry node.
	require.Len(t, warnings, 1)
	require.Equal(t, "/untagged", warnings[0].Path)
}

func TestMalformedTagDegradesToLegacy(t *testing.T) {
	root := memfile.New().Root()
	r := quietRegistry()
	var warned int
	r.SetWarningHandler(func(Warning) { warned++ })

	arr, err := root.CreateArray("half", storage.Float64s1D([]float64{7}), storage.CreateOptions{})
	require.NoError(t, err)
	// Only one of the two tag attributes present: malformed, treated as
	// untagged, never fatal.
	arr.Attrs().Set(attrEncodingType, "array")

	got, err := r.ReadElem(arr)
	require.NoError(t, err)
	require.Equal(t, []float64{7}, got.(*value.Array).Data.Float64s)
	require.Equal(t, 1, warned)
}

func TestWriteOptionsFlowToNestedArrays(t *testing.T) {
	root := memstore.New().Root()

	m := value.NewMapping()
	m.Set("big", value.NewArray(storage.Float64s1D(make([]float64, 100))))
	require.NoError(t, Default().WriteElem(root, "uns", m,
		WithChunkRows(10), WithCompression(format.CompressionLZ4)))

	node, _ := root.Child("uns")
	got, err := Default().ReadElem(node)
	require.NoError(t, err)
	big, _ := got.(*value.Mapping).Get("big")
	require.Len(t, big.(*value.Array).Data.Float64s, 100)
}

func TestCrossBackendEquivalence(t *testing.T) {
	// The same value written to both backends reads back identically.
	v := testTable()
	fileRoot := memfile.New().Root()
	storeRoot := memstore.New().Root()

	require.NoError(t, Default().WriteElem(fileRoot, "df", v))
	require.NoError(t, Default().WriteElem(storeRoot, "df", v))

	fn, _ := fileRoot.Child("df")
	sn, _ := storeRoot.Child("df")
	fromFile, err := Default().ReadElem(fn)
	require.NoError(t, err)
	fromStore, err := Default().ReadElem(sn)
	require.NoError(t, err)

	require.True(t, value.Equal(fromFile, fromStore))
}

func TestReadElem_MissingChildError(t *testing.T) {
	root := memfile.New().Root()
	g, err := root.CreateGroup("cat")
	require.NoError(t, err)
	WriteTag(g, tagCategorical)

	_, err = Default().ReadElem(g)
	require.Error(t, err)
	require.Contains(t, err.Error(), "codes")
}

package codec

import (
	"fmt"
	"strings"

	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/value"
)

const (
	// reservedIndexKey is both the attribute naming the stored index column
	// and the stored name of an anonymous index. User columns cannot use it.
	reservedIndexKey = "_index"

	attrColumnOrder = "column-order"
	attrCategories  = "categories"
	attrOrdered     = "ordered"
)

func writeTable(r *Registry, g storage.Group, key string, v value.Value, opts storage.CreateOptions) (storage.Node, error) {
	t := v.(*value.Table)

	// Reject reserved names before anything is written.
	for _, name := range t.ColNames() {
		if name == reservedIndexKey {
			return nil, &ReservedColumnNameError{Name: name}
		}
	}

	sub, err := g.CreateGroup(key)
	if err != nil {
		return nil, err
	}

	idxKey := t.IndexName()
	if idxKey == "" {
		idxKey = reservedIndexKey
	}
	sub.Attrs().Set(reservedIndexKey, idxKey)
	sub.Attrs().Set(attrColumnOrder, t.ColNames())

	// The index writes before any column; sibling order is otherwise
	// unspecified, reads follow column-order.
	if err := r.writeElem(sub, idxKey, t.Index(), opts); err != nil {
		return nil, err
	}
	for _, name := range t.ColNames() {
		col, _ := t.Col(name)
		if err := r.writeElem(sub, name, col, opts); err != nil {
			return nil, err
		}
	}

	return sub, nil
}

func readTable(r *Registry, n storage.Node) (value.Value, error) {
	g, err := asGroup(n)
	if err != nil {
		return nil, err
	}

	idxKey := storage.AttrString(g.Attrs(), reservedIndexKey, reservedIndexKey)
	idx, err := r.readChild(g, idxKey)
	if err != nil {
		return nil, err
	}

	t := value.NewTable(storedIndexName(idxKey), idx)
	order, _ := storage.AttrStrings(g.Attrs(), attrColumnOrder)
	for _, name := range order {
		col, err := r.readChild(g, name)
		if err != nil {
			return nil, err
		}
		t.AddCol(name, col)
	}

	return t, nil
}

// readTablePartial applies the row selection uniformly to the index and
// every selected column; items filters which non-index columns are read.
func readTablePartial(r *Registry, n storage.Node, items Items, specs []index.Spec) (value.Value, error) {
	g, err := asGroup(n)
	if err != nil {
		return nil, err
	}
	rowSpecs := []index.Spec{specAt(specs, 0)}

	idxKey := storage.AttrString(g.Attrs(), reservedIndexKey, reservedIndexKey)
	idx, err := r.readChildPartial(g, idxKey, nil, rowSpecs)
	if err != nil {
		return nil, err
	}

	t := value.NewTable(storedIndexName(idxKey), idx)
	order, _ := storage.AttrStrings(g.Attrs(), attrColumnOrder)
	for _, name := range order {
		if !items.Has(name) {
			continue
		}
		col, err := r.readChildPartial(g, name, items.Sub(name), rowSpecs)
		if err != nil {
			return nil, err
		}
		t.AddCol(name, col)
	}

	return t, nil
}

// storedIndexName maps the persisted index attribute back to the in-memory
// index name; the literal reserved key marks an anonymous index.
func storedIndexName(idxKey string) string {
	if idxKey == reservedIndexKey {
		return ""
	}

	return idxKey
}

// readTableLegacy reads the 0.1.0 table layout. There is no writer for it:
// the legacy encoding is never produced going forward. Columns may use the
// old categorical encoding, an integer dataset whose categories attribute
// names a sibling array of category values.
func readTableLegacy(r *Registry, n storage.Node) (value.Value, error) {
	g, err := asGroup(n)
	if err != nil {
		return nil, err
	}

	idxKey := storage.AttrString(g.Attrs(), reservedIndexKey, reservedIndexKey)
	idx, err := readLegacySeries(r, g, idxKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", idxKey, err)
	}

	t := value.NewTable(storedIndexName(idxKey), idx)
	for _, name := range legacyColumnOrder(g, idxKey) {
		col, err := readLegacySeries(r, g, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		t.AddCol(name, col)
	}

	return t, nil
}

// readTableLegacyPartial reads the whole legacy table, then subsets columns.
// Only the row selection is applied; a column-axis spec is accepted but
// ignored, matching the legacy layout's row-only slicing.
func readTableLegacyPartial(r *Registry, n storage.Node, items Items, specs []index.Spec) (value.Value, error) {
	full, err := readTableLegacy(r, n)
	if err != nil {
		return nil, err
	}
	t := full.(*value.Table)
	rowSpec := specAt(specs, 0)
	if err := rowSpec.Validate(t.NRows()); err != nil {
		return nil, err
	}

	idx, err := sliceColumn(t.Index(), rowSpec)
	if err != nil {
		return nil, err
	}
	out := value.NewTable(t.IndexName(), idx)
	for _, name := range t.ColNames() {
		if !items.Has(name) {
			continue
		}
		col, _ := t.Col(name)
		sliced, err := sliceColumn(col, rowSpec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out.AddCol(name, sliced)
	}

	return out, nil
}

// legacyColumnOrder prefers the persisted column order and falls back to the
// group's natural child order, excluding the index.
func legacyColumnOrder(g storage.Group, idxKey string) []string {
	if order, ok := storage.AttrStrings(g.Attrs(), attrColumnOrder); ok {
		return order
	}
	var order []string
	for _, k := range g.Keys() {
		// Hidden category-value datasets are referenced by their column's
		// categories attribute, not read as columns themselves.
		if k == idxKey || strings.HasPrefix(k, "__categories") {
			continue
		}
		order = append(order, k)
	}

	return order
}

// readLegacySeries reads one legacy table column. An integer dataset whose
// categories attribute names a sibling array decodes as a categorical
// column; anything else reads by its own encoding.
func readLegacySeries(r *Registry, g storage.Group, key string) (value.Value, error) {
	child, ok := g.Child(key)
	if !ok {
		return nil, fmt.Errorf("child not found")
	}

	arr, isArray := child.(storage.Array)
	if !isArray {
		return r.ReadElem(child)
	}

	catKey := storage.AttrString(arr.Attrs(), attrCategories, "")
	if catKey == "" {
		buf, err := arr.Read()
		if err != nil {
			return nil, err
		}

		return value.NewArray(buf), nil
	}

	codesBuf, err := arr.Read()
	if err != nil {
		return nil, err
	}
	catArr, err := childArray(g, catKey)
	if err != nil {
		return nil, err
	}
	catBuf, err := catArr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", catKey, err)
	}
	ordered := storage.AttrBool(arr.Attrs(), attrOrdered, false)

	return value.NewCategorical(toInt64s(codesBuf), catBuf, ordered), nil
}

// sliceColumn applies a row selection to an in-memory column value.
func sliceColumn(v value.Value, spec index.Spec) (value.Value, error) {
	switch c := v.(type) {
	case *value.Array:
		buf, err := c.Data.Slice(spec)
		if err != nil {
			return nil, err
		}

		return value.NewArray(buf), nil
	case *value.Categorical:
		return value.NewCategorical(index.Apply(c.Codes, spec), c.Categories, c.Ordered), nil
	case *value.NullableInteger:
		out := &value.NullableInteger{Values: index.Apply(c.Values, spec)}
		if c.Mask != nil {
			out.Mask = index.Apply(c.Mask, spec)
		}

		return out, nil
	case *value.NullableBoolean:
		out := &value.NullableBoolean{Values: index.Apply(c.Values, spec)}
		if c.Mask != nil {
			out.Mask = index.Apply(c.Mask, spec)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("cannot row-slice a %s column", v.Kind())
	}
}

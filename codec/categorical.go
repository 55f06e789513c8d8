package codec

import (
	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/value"
)

func writeCategorical(r *Registry, g storage.Group, key string, v value.Value, opts storage.CreateOptions) (storage.Node, error) {
	c := v.(*value.Categorical)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	sub, err := g.CreateGroup(key)
	if err != nil {
		return nil, err
	}
	sub.Attrs().Set(attrOrdered, c.Ordered)

	if err := r.writeElem(sub, "codes", value.NewArray(storage.Int64s1D(c.Codes)), opts); err != nil {
		return nil, err
	}
	if err := r.writeElem(sub, "categories", value.NewArray(c.Categories), opts); err != nil {
		return nil, err
	}

	return sub, nil
}

func readCategorical(r *Registry, n storage.Node) (value.Value, error) {
	g, err := asGroup(n)
	if err != nil {
		return nil, err
	}

	codes, err := readInt64s(g, "codes")
	if err != nil {
		return nil, err
	}
	catArr, err := childArray(g, "categories")
	if err != nil {
		return nil, err
	}
	categories, err := catArr.Read()
	if err != nil {
		return nil, err
	}
	ordered := storage.AttrBool(g.Attrs(), attrOrdered, false)

	return value.NewCategorical(codes, categories, ordered), nil
}

// readCategoricalPartial slices only the codes; categories are shared
// reference data and always read in full.
func readCategoricalPartial(r *Registry, n storage.Node, items Items, specs []index.Spec) (value.Value, error) {
	g, err := asGroup(n)
	if err != nil {
		return nil, err
	}

	codesArr, err := childArray(g, "codes")
	if err != nil {
		return nil, err
	}
	codesBuf, err := codesArr.ReadRange(specAt(specs, 0))
	if err != nil {
		return nil, err
	}
	catArr, err := childArray(g, "categories")
	if err != nil {
		return nil, err
	}
	categories, err := catArr.Read()
	if err != nil {
		return nil, err
	}
	ordered := storage.AttrBool(g.Attrs(), attrOrdered, false)

	return value.NewCategorical(toInt64s(codesBuf), categories, ordered), nil
}

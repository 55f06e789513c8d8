package codec

import (
	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/value"
)

// Nullable columns store values always and the missing-value mask only when
// one is present; a missing mask dataset means every row is valid.

func writeNullableInteger(r *Registry, g storage.Group, key string, v value.Value, opts storage.CreateOptions) (storage.Node, error) {
	c := v.(*value.NullableInteger)

	return writeNullable(r, g, key, storage.Int64s1D(c.Values), c.Mask, opts)
}

func writeNullableBoolean(r *Registry, g storage.Group, key string, v value.Value, opts storage.CreateOptions) (storage.Node, error) {
	c := v.(*value.NullableBoolean)

	return writeNullable(r, g, key, storage.Bools1D(c.Values), c.Mask, opts)
}

func writeNullable(r *Registry, g storage.Group, key string, values storage.Buffer, mask []bool, opts storage.CreateOptions) (storage.Node, error) {
	sub, err := g.CreateGroup(key)
	if err != nil {
		return nil, err
	}
	if err := r.writeElem(sub, "values", value.NewArray(values), opts); err != nil {
		return nil, err
	}
	if mask != nil {
		if err := r.writeElem(sub, "mask", value.NewArray(storage.Bools1D(mask)), opts); err != nil {
			return nil, err
		}
	}

	return sub, nil
}

func readNullableInteger(r *Registry, n storage.Node) (value.Value, error) {
	values, mask, err := readNullable(n, index.All())
	if err != nil {
		return nil, err
	}

	return &value.NullableInteger{Values: toInt64s(values), Mask: mask}, nil
}

func readNullableBoolean(r *Registry, n storage.Node) (value.Value, error) {
	values, mask, err := readNullable(n, index.All())
	if err != nil {
		return nil, err
	}

	return &value.NullableBoolean{Values: values.Bools, Mask: mask}, nil
}

func readNullableIntegerPartial(r *Registry, n storage.Node, items Items, specs []index.Spec) (value.Value, error) {
	values, mask, err := readNullable(n, specAt(specs, 0))
	if err != nil {
		return nil, err
	}

	return &value.NullableInteger{Values: toInt64s(values), Mask: mask}, nil
}

func readNullableBooleanPartial(r *Registry, n storage.Node, items Items, specs []index.Spec) (value.Value, error) {
	values, mask, err := readNullable(n, specAt(specs, 0))
	if err != nil {
		return nil, err
	}

	return &value.NullableBoolean{Values: values.Bools, Mask: mask}, nil
}

func readNullable(n storage.Node, spec index.Spec) (storage.Buffer, []bool, error) {
	g, err := asGroup(n)
	if err != nil {
		return storage.Buffer{}, nil, err
	}

	valArr, err := childArray(g, "values")
	if err != nil {
		return storage.Buffer{}, nil, err
	}
	values, err := valArr.ReadRange(spec)
	if err != nil {
		return storage.Buffer{}, nil, err
	}

	var mask []bool
	if g.Has("mask") {
		maskArr, err := childArray(g, "mask")
		if err != nil {
			return storage.Buffer{}, nil, err
		}
		maskBuf, err := maskArr.ReadRange(spec)
		if err != nil {
			return storage.Buffer{}, nil, err
		}
		mask = maskBuf.Bools
	}

	return values, mask, nil
}

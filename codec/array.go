package codec

import (
	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/value"
)

// writeArray serves every dense array encoding: numeric, string and record
// arrays share one writer and differ only in the tag stamped by dispatch.
// The backend handles the physical element encoding, including its native
// variable- or fixed-length string representation.
func writeArray(r *Registry, g storage.Group, key string, v value.Value, opts storage.CreateOptions) (storage.Node, error) {
	return g.CreateArray(key, v.(*value.Array).Data, opts)
}

func readArray(r *Registry, n storage.Node) (value.Value, error) {
	arr, err := asArray(n)
	if err != nil {
		return nil, err
	}
	buf, err := arr.Read()
	if err != nil {
		return nil, err
	}

	return value.NewArray(buf), nil
}

// readArrayPartial returns the backend's ranged slice; unselected regions
// are never materialized.
func readArrayPartial(r *Registry, n storage.Node, items Items, specs []index.Spec) (value.Value, error) {
	arr, err := asArray(n)
	if err != nil {
		return nil, err
	}
	buf, err := arr.ReadRange(specs...)
	if err != nil {
		return nil, err
	}

	return value.NewArray(buf), nil
}

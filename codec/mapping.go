package codec

import (
	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/value"
)

func writeMapping(r *Registry, g storage.Group, key string, v value.Value, opts storage.CreateOptions) (storage.Node, error) {
	m := v.(*value.Mapping)
	sub, err := g.CreateGroup(key)
	if err != nil {
		return nil, err
	}
	for _, k := range m.Keys() {
		item, _ := m.Get(k)
		if err := r.writeElem(sub, k, item, opts); err != nil {
			return nil, err
		}
	}

	return sub, nil
}

func readMapping(r *Registry, n storage.Node) (value.Value, error) {
	g, err := asGroup(n)
	if err != nil {
		return nil, err
	}
	m := value.NewMapping()
	for _, k := range g.Keys() {
		item, err := r.readChild(g, k)
		if err != nil {
			return nil, err
		}
		m.Set(k, item)
	}

	return m, nil
}

// readMappingPartial descends only into the selected keys and applies the
// index specs to every selected child uniformly.
func readMappingPartial(r *Registry, n storage.Node, items Items, specs []index.Spec) (value.Value, error) {
	g, err := asGroup(n)
	if err != nil {
		return nil, err
	}
	m := value.NewMapping()
	for _, k := range g.Keys() {
		if !items.Has(k) {
			continue
		}
		item, err := r.readChildPartial(g, k, items.Sub(k), specs)
		if err != nil {
			return nil, err
		}
		m.Set(k, item)
	}

	return m, nil
}

// readMappingStructural reads every child of a group as a mapping without
// consulting the group's own tag, shared by the legacy fallback.
func readMappingStructural(r *Registry, g storage.Group) (value.Value, error) {
	m := value.NewMapping()
	for _, k := range g.Keys() {
		item, err := r.readChild(g, k)
		if err != nil {
			return nil, err
		}
		m.Set(k, item)
	}

	return m, nil
}

package codec

import (
	"fmt"

	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/value"
)

// Container slot names, in the fixed order reads iterate them.
const (
	slotX      = "X"
	slotObs    = "obs"
	slotVar    = "var"
	slotObsm   = "obsm"
	slotVarm   = "varm"
	slotObsp   = "obsp"
	slotVarp   = "varp"
	slotLayers = "layers"
	slotUns    = "uns"
	slotRaw    = "raw"
)

func writeContainer(r *Registry, g storage.Group, key string, v value.Value, opts storage.CreateOptions) (storage.Node, error) {
	sub, err := g.CreateGroup(key)
	if err != nil {
		return nil, err
	}
	if err := r.writeContainerSlots(sub, v.(*value.Container), opts); err != nil {
		return nil, err
	}

	return sub, nil
}

// WriteContainer writes a container's slots directly into root and stamps
// the container tag on it, for backends whose root group already exists.
func (r *Registry) WriteContainer(root storage.Group, c *value.Container, opts ...WriteOption) error {
	co, err := buildCreateOptions(opts)
	if err != nil {
		return err
	}
	if err := r.writeContainerSlots(root, c, co); err != nil {
		return err
	}
	WriteTag(root, tagContainer)

	return nil
}

func (r *Registry) writeContainerSlots(g storage.Group, c *value.Container, opts storage.CreateOptions) error {
	if c.X != nil {
		if err := r.writeElem(g, slotX, c.X, opts); err != nil {
			return err
		}
	}
	if c.Obs != nil {
		if err := r.writeElem(g, slotObs, c.Obs, opts); err != nil {
			return err
		}
	}
	if c.Var != nil {
		if err := r.writeElem(g, slotVar, c.Var, opts); err != nil {
			return err
		}
	}
	for _, slot := range []struct {
		key string
		m   *value.Mapping
	}{
		{slotObsm, c.Obsm},
		{slotVarm, c.Varm},
		{slotObsp, c.Obsp},
		{slotVarp, c.Varp},
		{slotLayers, c.Layers},
		{slotUns, c.Uns},
	} {
		if slot.m == nil {
			continue
		}
		if err := r.writeElem(g, slot.key, slot.m, opts); err != nil {
			return err
		}
	}
	if c.Raw != nil {
		if err := r.writeElem(g, slotRaw, c.Raw, opts); err != nil {
			return err
		}
	}

	return nil
}

func readContainer(r *Registry, n storage.Node) (value.Value, error) {
	g, err := asGroup(n)
	if err != nil {
		return nil, err
	}

	return r.readContainerGroup(g)
}

// ReadContainer reconstructs a container written with WriteContainer into
// the given root group.
func (r *Registry) ReadContainer(root storage.Group) (*value.Container, error) {
	v, err := r.ReadElem(root)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*value.Container)
	if !ok {
		return nil, fmt.Errorf("%s: not a container (%s)", root.Path(), v.Kind())
	}

	return c, nil
}

func (r *Registry) readContainerGroup(g storage.Group) (*value.Container, error) {
	c := &value.Container{}

	read := func(key string) (value.Value, error) {
		if !g.Has(key) {
			return nil, nil
		}

		return r.readChild(g, key)
	}

	// Slots read in a fixed order; missing slots stay nil.
	v, err := read(slotX)
	if err != nil {
		return nil, err
	}
	if v != nil {
		c.X = v
		c.XDtype = xDtype(v)
	}

	if c.Obs, err = readTableSlot(read, slotObs); err != nil {
		return nil, err
	}
	if c.Var, err = readTableSlot(read, slotVar); err != nil {
		return nil, err
	}
	for _, slot := range []struct {
		key string
		dst **value.Mapping
	}{
		{slotObsm, &c.Obsm},
		{slotVarm, &c.Varm},
		{slotObsp, &c.Obsp},
		{slotVarp, &c.Varp},
		{slotLayers, &c.Layers},
		{slotUns, &c.Uns},
	} {
		if *slot.dst, err = readMappingSlot(read, slot.key); err != nil {
			return nil, err
		}
	}

	if g.Has(slotRaw) {
		v, err := r.readChild(g, slotRaw)
		if err != nil {
			return nil, err
		}
		raw, ok := v.(*value.Raw)
		if !ok {
			return nil, fmt.Errorf("%s: expected raw, found %s", slotRaw, v.Kind())
		}
		c.Raw = raw
	}

	return c, nil
}

func readTableSlot(read func(string) (value.Value, error), key string) (*value.Table, error) {
	v, err := read(key)
	if err != nil || v == nil {
		return nil, err
	}
	t, ok := v.(*value.Table)
	if !ok {
		return nil, fmt.Errorf("%s: expected table, found %s", key, v.Kind())
	}

	return t, nil
}

func readMappingSlot(read func(string) (value.Value, error), key string) (*value.Mapping, error) {
	v, err := read(key)
	if err != nil || v == nil {
		return nil, err
	}
	m, ok := v.(*value.Mapping)
	if !ok {
		return nil, fmt.Errorf("%s: expected mapping, found %s", key, v.Kind())
	}

	return m, nil
}

// xDtype derives the element dtype recorded for the X slot.
func xDtype(v value.Value) format.Dtype {
	switch x := v.(type) {
	case *value.Array:
		return x.Data.Dtype
	case *value.Sparse:
		return format.DtypeFloat64
	default:
		return format.DtypeInvalid
	}
}

func writeRaw(r *Registry, g storage.Group, key string, v value.Value, opts storage.CreateOptions) (storage.Node, error) {
	raw := v.(*value.Raw)
	sub, err := g.CreateGroup(key)
	if err != nil {
		return nil, err
	}
	if raw.X != nil {
		if err := r.writeElem(sub, slotX, raw.X, opts); err != nil {
			return nil, err
		}
	}
	if raw.Var != nil {
		if err := r.writeElem(sub, slotVar, raw.Var, opts); err != nil {
			return nil, err
		}
	}
	if raw.Varm != nil {
		if err := r.writeElem(sub, slotVarm, raw.Varm, opts); err != nil {
			return nil, err
		}
	}

	return sub, nil
}

func readRaw(r *Registry, n storage.Node) (value.Value, error) {
	g, err := asGroup(n)
	if err != nil {
		return nil, err
	}

	raw := &value.Raw{}
	read := func(key string) (value.Value, error) {
		if !g.Has(key) {
			return nil, nil
		}

		return r.readChild(g, key)
	}

	v, err := read(slotX)
	if err != nil {
		return nil, err
	}
	raw.X = v

	if raw.Var, err = readTableSlot(read, slotVar); err != nil {
		return nil, err
	}
	if raw.Varm, err = readMappingSlot(read, slotVarm); err != nil {
		return nil, err
	}

	return raw, nil
}

// PartialOptions selects the rows and columns of a partial container read.
// The zero value reads everything.
type PartialOptions struct {
	// Obs selects observations (rows); the zero selector keeps all.
	Obs index.Selector
	// Var selects variables (columns); the zero selector keeps all.
	Var index.Selector
	// SkipX substitutes an empty sparse placeholder sized to the selection
	// instead of reading X.
	SkipX bool
}

// ReadPartial reads a container restricted to the selected observations and
// variables. The obs/var index arrays are read first, without any other
// columns, to normalize the selectors into concrete index specs; the row
// spec is then shared by obsm/obsp, the column spec by varm/varp, and both
// by X and layers.
func (r *Registry) ReadPartial(root storage.Group, opts PartialOptions) (*value.Container, error) {
	obsSpec, nObs, err := r.normalizeAxis(root, slotObs, opts.Obs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", slotObs, err)
	}
	varSpec, nVars, err := r.normalizeAxis(root, slotVar, opts.Var)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", slotVar, err)
	}

	c := &value.Container{}

	readPartial := func(key string, specs ...index.Spec) (value.Value, error) {
		if !root.Has(key) {
			return nil, nil
		}

		return r.readChildPartial(root, key, nil, specs)
	}

	if root.Has(slotObs) {
		v, err := readPartial(slotObs, obsSpec)
		if err != nil {
			return nil, err
		}
		c.Obs = v.(*value.Table)
	}
	if root.Has(slotVar) {
		v, err := readPartial(slotVar, varSpec)
		if err != nil {
			return nil, err
		}
		c.Var = v.(*value.Table)
	}

	for _, slot := range []struct {
		key   string
		dst   **value.Mapping
		specs []index.Spec
	}{
		{slotObsm, &c.Obsm, []index.Spec{obsSpec}},
		{slotVarm, &c.Varm, []index.Spec{varSpec}},
		{slotObsp, &c.Obsp, []index.Spec{obsSpec, obsSpec}},
		{slotVarp, &c.Varp, []index.Spec{varSpec, varSpec}},
		{slotLayers, &c.Layers, []index.Spec{obsSpec, varSpec}},
	} {
		v, err := readPartial(slot.key, slot.specs...)
		if err != nil {
			return nil, err
		}
		if v != nil {
			*slot.dst = v.(*value.Mapping)
		}
	}

	// Unstructured metadata has no aligned axes; read it whole.
	if root.Has(slotUns) {
		v, err := r.readChild(root, slotUns)
		if err != nil {
			return nil, err
		}
		c.Uns = v.(*value.Mapping)
	}

	selRows := obsSpec.Count(nObs)
	selCols := varSpec.Count(nVars)
	if opts.SkipX {
		c.X = emptyCSR(selRows, selCols)
		c.XDtype = format.DtypeFloat64
	} else if root.Has(slotX) {
		v, err := readPartial(slotX, obsSpec, varSpec)
		if err != nil {
			return nil, err
		}
		c.X = v
		c.XDtype = xDtype(v)
	}

	return c, nil
}

// normalizeAxis reads only an axis table's index column and resolves the
// selector against it.
func (r *Registry) normalizeAxis(root storage.Group, slot string, sel index.Selector) (index.Spec, int, error) {
	if !root.Has(slot) {
		spec, err := sel.Normalize(nil, 0)
		return spec, 0, err
	}
	g, err := childGroup(root, slot)
	if err != nil {
		return index.Spec{}, 0, err
	}

	idxKey := storage.AttrString(g.Attrs(), reservedIndexKey, reservedIndexKey)
	idxArr, err := childArray(g, idxKey)
	if err != nil {
		return index.Spec{}, 0, err
	}
	buf, err := idxArr.Read()
	if err != nil {
		return index.Spec{}, 0, err
	}

	n := buf.Rows()
	spec, err := sel.Normalize(buf.Strings, n)
	if err != nil {
		return index.Spec{}, 0, err
	}

	return spec, n, nil
}

// emptyCSR builds the all-zero placeholder substituted for a skipped X.
func emptyCSR(rows, cols int) *value.Sparse {
	return value.NewCSR(rows, cols, nil, nil, make([]int64, rows+1))
}

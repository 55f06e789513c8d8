package codec

import (
	"fmt"

	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/value"
)

// Items restricts which child keys a partial read descends into. A nil Items
// selects everything; a present key's nested Items applies one level down.
type Items map[string]Items

// Has reports whether a partial read should descend into key.
func (it Items) Has(key string) bool {
	if it == nil {
		return true
	}
	_, ok := it[key]

	return ok
}

// Sub returns the nested selection for key.
func (it Items) Sub(key string) Items {
	if it == nil {
		return nil
	}

	return it[key]
}

// WriteElem serializes v as a child of g under key.
//
// Any pre-existing child at key is deleted first: a write replaces, it never
// merges. The resolved writer runs with the destination scoped to the new
// child and may recursively call WriteElem for nested values. After the
// writer succeeds the encoding tag it was registered under is stamped on the
// node, as the final mutation.
//
// Errors propagate with the key prepended to the message; the underlying
// error kind stays visible to errors.As.
func (r *Registry) WriteElem(g storage.Group, key string, v value.Value, opts ...WriteOption) error {
	co, err := buildCreateOptions(opts)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	return r.writeElem(g, key, v, co)
}

// writeElem is the recursion entry used by writers, carrying resolved
// create options instead of re-parsing functional options per child.
func (r *Registry) writeElem(g storage.Group, key string, v value.Value, co storage.CreateOptions) error {
	entry, err := r.lookupWriter(g.Backend(), v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := g.Delete(key); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	node, err := entry.fn(r, g, key, v, co)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	tag := entry.tag
	if entry.tagFn != nil {
		tag = entry.tagFn(v)
	}
	WriteTag(node, tag)

	return nil
}

// ReadElem reconstructs the value stored at n by dispatching on its declared
// encoding tag. Nodes missing one or both tag attributes dispatch to the
// untagged legacy fallback; a tag with no registered reader is fatal.
func (r *Registry) ReadElem(n storage.Node) (value.Value, error) {
	fn, err := r.lookupReader(n, ReadTag(n))
	if err != nil {
		return nil, err
	}

	return fn(r, n)
}

// ReadElemPartial reconstructs a subset of the value stored at n: items
// limits which child keys are descended into (nil means all) and specs
// slices array-like leaves, one spec per axis (missing trailing axes read in
// full). Encodings without a partial reader fail with
// NoPartialReaderFoundError; there is no silent full-read fallback.
func (r *Registry) ReadElemPartial(n storage.Node, items Items, specs ...index.Spec) (value.Value, error) {
	fn, err := r.lookupPartial(n, ReadTag(n))
	if err != nil {
		return nil, err
	}

	return fn(r, n, items, specs)
}

// readChild reads one named child of g, decorating errors with the key.
func (r *Registry) readChild(g storage.Group, key string) (value.Value, error) {
	child, ok := g.Child(key)
	if !ok {
		return nil, fmt.Errorf("%s: child not found", key)
	}
	v, err := r.ReadElem(child)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	return v, nil
}

// readChildPartial partially reads one named child of g.
func (r *Registry) readChildPartial(g storage.Group, key string, items Items, specs []index.Spec) (value.Value, error) {
	child, ok := g.Child(key)
	if !ok {
		return nil, fmt.Errorf("%s: child not found", key)
	}
	v, err := r.ReadElemPartial(child, items, specs...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	return v, nil
}

// childGroup returns the named child as a group.
func childGroup(g storage.Group, key string) (storage.Group, error) {
	child, ok := g.Child(key)
	if !ok {
		return nil, fmt.Errorf("%s: child not found", key)
	}
	sub, ok := child.(storage.Group)
	if !ok {
		return nil, fmt.Errorf("%s: expected a group, found an array", key)
	}

	return sub, nil
}

// childArray returns the named child as an array.
func childArray(g storage.Group, key string) (storage.Array, error) {
	child, ok := g.Child(key)
	if !ok {
		return nil, fmt.Errorf("%s: child not found", key)
	}
	arr, ok := child.(storage.Array)
	if !ok {
		return nil, fmt.Errorf("%s: expected an array, found a group", key)
	}

	return arr, nil
}

// asGroup asserts that a dispatched node is a group.
func asGroup(n storage.Node) (storage.Group, error) {
	g, ok := n.(storage.Group)
	if !ok {
		return nil, fmt.Errorf("%s: expected a group, found an array", n.Path())
	}

	return g, nil
}

// asArray asserts that a dispatched node is an array.
func asArray(n storage.Node) (storage.Array, error) {
	arr, ok := n.(storage.Array)
	if !ok {
		return nil, fmt.Errorf("%s: expected an array, found a group", n.Path())
	}

	return arr, nil
}

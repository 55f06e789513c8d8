// Package storage defines the narrow capability interface the codec layer
// uses to talk to hierarchical group/array backends, together with the
// Buffer type that carries array payloads across that boundary.
//
// A backend exposes a tree of nodes: groups (ordered named children plus an
// attribute bag) and arrays (typed buffers supporting full and ranged
// reads). Exactly one codec implementation exists per logical shape and it
// operates only through these interfaces; backends differ in physical
// encoding (string representation, chunking, compression), never in
// semantics.
package storage

import (
	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/index"
)

type NodeKind uint8

const (
	// NodeGroup is a node with named children and attributes.
	NodeGroup NodeKind = 0x1
	// NodeArray is a leaf dataset node.
	NodeArray NodeKind = 0x2
)

func (k NodeKind) String() string {
	switch k {
	case NodeGroup:
		return "group"
	case NodeArray:
		return "array"
	default:
		return "unknown"
	}
}

// Attrs is the small scalar/string/array metadata bag attached to every
// node. Values are restricted to strings, bools, integers, and flat slices
// of those.
type Attrs interface {
	// Get returns the attribute value and whether it exists.
	Get(name string) (any, bool)
	// Set stores the attribute value, replacing any previous one.
	Set(name string, value any)
	// Names returns the attribute names in insertion order.
	Names() []string
}

// Node is a location in the hierarchical storage backend.
type Node interface {
	// Backend identifies the backend kind, used as a registry dispatch key.
	Backend() format.BackendKind
	// Kind reports whether the node is a group or a leaf array.
	Kind() NodeKind
	// Path returns the slash-joined path from the root, for diagnostics.
	Path() string
	// Attrs returns the node's attribute bag.
	Attrs() Attrs
}

// Group is a node holding an ordered mapping of named children.
type Group interface {
	Node

	// CreateGroup creates (or replaces) a child group under key.
	CreateGroup(key string) (Group, error)
	// CreateArray creates (or replaces) a child array under key holding buf.
	CreateArray(key string, buf Buffer, opts CreateOptions) (Array, error)
	// Delete removes the child at key. Deleting a missing key is a no-op.
	Delete(key string) error
	// Has reports whether a child exists at key.
	Has(key string) bool
	// Child returns the child node at key.
	Child(key string) (Node, bool)
	// Keys returns the child keys in insertion order.
	Keys() []string
}

// Array is a leaf dataset node.
type Array interface {
	Node

	// Dtype returns the element type of the stored buffer.
	Dtype() format.Dtype
	// Shape returns the dataset shape; empty for zero-dimensional scalars.
	Shape() []int
	// Read loads the full buffer.
	Read() (Buffer, error)
	// ReadRange loads only the selection described by one index spec per
	// axis. Trailing axes without a spec are read in full. Implementations
	// must not materialize unselected chunks.
	ReadRange(specs ...index.Spec) (Buffer, error)
}

// CreateOptions carries dataset creation hints: chunking, compression and
// resizability. The zero value means backend defaults with no compression.
type CreateOptions struct {
	// ChunkRows is the number of axis-0 rows per stored chunk; 0 selects the
	// backend default.
	ChunkRows int
	// Compression selects the chunk compression codec; 0 means none.
	Compression format.CompressionType
	// CompressionLevel is a codec-specific level hint; 0 means default.
	CompressionLevel int
	// Resizable marks axes that may grow after creation (maxshape-style),
	// one flag per axis. Missing trailing axes are fixed-size.
	Resizable []bool
}

// AttrString returns a string attribute, or def when absent or mistyped.
func AttrString(a Attrs, name, def string) string {
	v, ok := a.Get(name)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}

	return s
}

// AttrBool returns a bool attribute, or def when absent or mistyped.
func AttrBool(a Attrs, name string, def bool) bool {
	v, ok := a.Get(name)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}

	return b
}

// AttrStrings returns a string-slice attribute.
func AttrStrings(a Attrs, name string) ([]string, bool) {
	v, ok := a.Get(name)
	if !ok {
		return nil, false
	}
	s, ok := v.([]string)

	return s, ok
}

// AttrInts returns an int-slice attribute.
func AttrInts(a Attrs, name string) ([]int, bool) {
	v, ok := a.Get(name)
	if !ok {
		return nil, false
	}
	s, ok := v.([]int)

	return s, ok
}

// AttrMap is an insertion-ordered Attrs implementation shared by the
// in-memory backends.
type AttrMap struct {
	names  []string
	values map[string]any
}

var _ Attrs = (*AttrMap)(nil)

// NewAttrMap creates an empty attribute bag.
func NewAttrMap() *AttrMap {
	return &AttrMap{values: make(map[string]any)}
}

func (m *AttrMap) Get(name string) (any, bool) {
	v, ok := m.values[name]
	return v, ok
}

func (m *AttrMap) Set(name string, value any) {
	if _, exists := m.values[name]; !exists {
		m.names = append(m.names, name)
	}
	m.values[name] = value
}

func (m *AttrMap) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)

	return out
}

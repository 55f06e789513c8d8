// Package codec implements the versioned, self-describing container codec:
// registry-driven dispatch that serializes the closed set of value shapes
// (mappings, arrays, sparse matrices, tables, categorical and nullable
// columns, scalars, containers) into hierarchical group/array storage and
// reconstructs them, including partial index-sliced reads.
//
// Every written node carries an encoding tag, a (name, version) pair stored
// in the encoding-type/encoding-version attributes. Writers are resolved by
// the value's runtime kind plus an element-kind refinement; readers and
// partial readers are resolved by the node's backend, node kind and declared
// tag. Untagged legacy nodes fall back to structural inference and surface a
// warning through the registry's warning handler.
package codec

import (
	"log"
	"sync"

	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/storage"
	"github.com/arloliu/annex/value"
)

// WriteFunc serializes v as a new child of g under key and returns the
// created node. The dispatch layer stamps the encoding tag on the returned
// node after the function succeeds; writers never stamp tags themselves.
type WriteFunc func(r *Registry, g storage.Group, key string, v value.Value, opts storage.CreateOptions) (storage.Node, error)

// ReadFunc reconstructs the in-memory value stored at n.
type ReadFunc func(r *Registry, n storage.Node) (value.Value, error)

// PartialFunc reconstructs a subset of the value stored at n: items limits
// which child keys are descended into (nil means all) and specs slices
// array-like leaves, one spec per axis.
type PartialFunc func(r *Registry, n storage.Node, items Items, specs []index.Spec) (value.Value, error)

// Warning is a non-fatal condition surfaced during a read, currently only
// the detection of untagged legacy data.
type Warning struct {
	Path    string
	Message string
}

type writerKey struct {
	backend format.BackendKind
	kind    value.Kind
	elem    format.ElemKind
}

type writerEntry struct {
	tag   format.Tag
	tagFn func(value.Value) format.Tag // overrides tag when set
	fn    WriteFunc
}

type readerKey struct {
	backend format.BackendKind
	node    storage.NodeKind
	tag     format.Tag
}

// Registry holds the writer, reader and partial-reader dispatch tables.
//
// A registry is populated once, before any read or write, and is read-only
// afterwards; concurrent dispatch through a populated registry needs no
// locking. Use Default for the built-in codecs or New for an empty registry.
type Registry struct {
	writers  map[writerKey]writerEntry
	readers  map[readerKey]ReadFunc
	partials map[readerKey]PartialFunc
	onWarn   func(Warning)
}

// New creates an empty registry with the default warning handler.
func New() *Registry {
	return &Registry{
		writers:  make(map[writerKey]writerEntry),
		readers:  make(map[readerKey]ReadFunc),
		partials: make(map[readerKey]PartialFunc),
		onWarn:   defaultWarningHandler,
	}
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry with every built-in codec
// registered. The registry is populated exactly once and never mutated
// afterwards.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New()
		registerBuiltins(defaultRegistry)
	})

	return defaultRegistry
}

func defaultWarningHandler(w Warning) {
	log.Printf("annex: %s: %s", w.Path, w.Message)
}

// SetWarningHandler routes non-fatal read warnings to fn. Must be called
// before the registry is used for dispatch.
func (r *Registry) SetWarningHandler(fn func(Warning)) {
	r.onWarn = fn
}

func (r *Registry) warn(path, message string) {
	if r.onWarn != nil {
		r.onWarn(Warning{Path: path, Message: message})
	}
}

// RegisterWrite registers a writer for values of the given kind on one
// backend. elem refines the key: an ElemNone registration is the bare
// fallback, and an exact (kind, elem) registration takes priority over it
// during lookup. The tag is stamped on every node the writer produces.
func (r *Registry) RegisterWrite(backend format.BackendKind, kind value.Kind, elem format.ElemKind, tag format.Tag, fn WriteFunc) {
	r.writers[writerKey{backend, kind, elem}] = writerEntry{tag: tag, fn: fn}
}

// registerWriteTagFn is RegisterWrite with a per-value tag, for shapes whose
// tag depends on the value (sparse csr vs csc).
func (r *Registry) registerWriteTagFn(backend format.BackendKind, kind value.Kind, elem format.ElemKind, tagFn func(value.Value) format.Tag, fn WriteFunc) {
	r.writers[writerKey{backend, kind, elem}] = writerEntry{tagFn: tagFn, fn: fn}
}

// RegisterRead registers a reader for nodes of the given kind and tag on one
// backend. Reader lookup is exact-match only.
func (r *Registry) RegisterRead(backend format.BackendKind, node storage.NodeKind, tag format.Tag, fn ReadFunc) {
	r.readers[readerKey{backend, node, tag}] = fn
}

// RegisterReadPartial registers a partial reader for nodes of the given kind
// and tag on one backend.
func (r *Registry) RegisterReadPartial(backend format.BackendKind, node storage.NodeKind, tag format.Tag, fn PartialFunc) {
	r.partials[readerKey{backend, node, tag}] = fn
}

// lookupWriter resolves the most specific writer for a value: an exact
// (kind, elem) registration wins over the bare (kind, ElemNone) one.
func (r *Registry) lookupWriter(backend format.BackendKind, v value.Value) (writerEntry, error) {
	kind := v.Kind()
	elem := value.ElemOf(v)

	if elem != format.ElemNone {
		if entry, ok := r.writers[writerKey{backend, kind, elem}]; ok {
			return entry, nil
		}
	}
	if entry, ok := r.writers[writerKey{backend, kind, format.ElemNone}]; ok {
		return entry, nil
	}

	return writerEntry{}, &NoWriterFoundError{ValueKind: kind, Elem: elem, Backend: backend}
}

func (r *Registry) lookupReader(n storage.Node, tag format.Tag) (ReadFunc, error) {
	if fn, ok := r.readers[readerKey{n.Backend(), n.Kind(), tag}]; ok {
		return fn, nil
	}

	return nil, &NoReaderFoundError{Tag: tag, Backend: n.Backend()}
}

func (r *Registry) lookupPartial(n storage.Node, tag format.Tag) (PartialFunc, error) {
	if fn, ok := r.partials[readerKey{n.Backend(), n.Kind(), tag}]; ok {
		return fn, nil
	}

	return nil, &NoPartialReaderFoundError{Tag: tag, Backend: n.Backend()}
}

// backends lists the backend kinds the built-in codecs serve. Codecs are
// backend-polymorphic: one implementation per shape, registered for both.
var backends = []format.BackendKind{format.BackendFile, format.BackendStore}

// registerBuiltins registers every built-in codec. This is the single,
// auditable list of all registrations; nothing registers itself elsewhere.
func registerBuiltins(r *Registry) {
	for _, b := range backends {
		// Writers. Arrays and scalars refine dispatch by element kind; the
		// ElemNone registration is the bare fallback.
		r.RegisterWrite(b, value.KindMapping, format.ElemNone, tagMapping, writeMapping)
		r.RegisterWrite(b, value.KindArray, format.ElemNone, tagArray, writeArray)
		r.RegisterWrite(b, value.KindArray, format.ElemNumeric, tagArray, writeArray)
		r.RegisterWrite(b, value.KindArray, format.ElemText, tagStringArray, writeArray)
		r.RegisterWrite(b, value.KindArray, format.ElemRecord, tagRecArray, writeArray)
		r.registerWriteTagFn(b, value.KindSparse, format.ElemNone, sparseTag, writeSparse)
		r.RegisterWrite(b, value.KindTable, format.ElemNone, tagTable, writeTable)
		r.RegisterWrite(b, value.KindCategorical, format.ElemNone, tagCategorical, writeCategorical)
		r.RegisterWrite(b, value.KindNullableInteger, format.ElemNone, tagNullableInteger, writeNullableInteger)
		r.RegisterWrite(b, value.KindNullableBoolean, format.ElemNone, tagNullableBoolean, writeNullableBoolean)
		r.RegisterWrite(b, value.KindContainer, format.ElemNone, tagContainer, writeContainer)
		r.RegisterWrite(b, value.KindRaw, format.ElemNone, tagRaw, writeRaw)

		// Scalar writers split by backend: the file backend rejects
		// compressed scalar datasets, so its writers strip compression.
		// Scalars always carry a concrete element kind, so there is no
		// bare registration; bytes scalars miss dispatch entirely because
		// the bytes encoding is read-only.
		if b == format.BackendFile {
			r.RegisterWrite(b, value.KindScalar, format.ElemNumeric, tagNumericScalar, writeScalarUncompressed)
			r.RegisterWrite(b, value.KindScalar, format.ElemText, tagString, writeScalarUncompressed)
		} else {
			r.RegisterWrite(b, value.KindScalar, format.ElemNumeric, tagNumericScalar, writeScalar)
			r.RegisterWrite(b, value.KindScalar, format.ElemText, tagString, writeScalar)
		}

		// Readers.
		r.RegisterRead(b, storage.NodeGroup, tagMapping, readMapping)
		r.RegisterRead(b, storage.NodeArray, tagArray, readArray)
		r.RegisterRead(b, storage.NodeArray, tagStringArray, readArray)
		r.RegisterRead(b, storage.NodeArray, tagRecArray, readArray)
		r.RegisterRead(b, storage.NodeGroup, tagCSR, readSparseAs(value.CSR))
		r.RegisterRead(b, storage.NodeGroup, tagCSC, readSparseAs(value.CSC))
		r.RegisterRead(b, storage.NodeGroup, tagTable, readTable)
		r.RegisterRead(b, storage.NodeGroup, tagTableLegacy, readTableLegacy)
		r.RegisterRead(b, storage.NodeGroup, tagCategorical, readCategorical)
		r.RegisterRead(b, storage.NodeGroup, tagNullableInteger, readNullableInteger)
		r.RegisterRead(b, storage.NodeGroup, tagNullableBoolean, readNullableBoolean)
		r.RegisterRead(b, storage.NodeArray, tagNumericScalar, readScalar)
		r.RegisterRead(b, storage.NodeArray, tagString, readScalar)
		r.RegisterRead(b, storage.NodeArray, tagBytes, readScalar)
		r.RegisterRead(b, storage.NodeGroup, tagContainer, readContainer)
		r.RegisterRead(b, storage.NodeGroup, tagRaw, readRaw)

		// Untagged legacy fallback, one structural handler per node kind.
		r.RegisterRead(b, storage.NodeGroup, format.Tag{}, readLegacyGroup)
		r.RegisterRead(b, storage.NodeArray, format.Tag{}, readLegacyArray)

		// Partial readers. Shapes without one fail partial dispatch rather
		// than silently reading in full.
		r.RegisterReadPartial(b, storage.NodeGroup, tagMapping, readMappingPartial)
		r.RegisterReadPartial(b, storage.NodeArray, tagArray, readArrayPartial)
		r.RegisterReadPartial(b, storage.NodeArray, tagStringArray, readArrayPartial)
		r.RegisterReadPartial(b, storage.NodeGroup, tagCSR, readSparsePartialAs(value.CSR))
		r.RegisterReadPartial(b, storage.NodeGroup, tagCSC, readSparsePartialAs(value.CSC))
		r.RegisterReadPartial(b, storage.NodeGroup, tagTable, readTablePartial)
		r.RegisterReadPartial(b, storage.NodeGroup, tagTableLegacy, readTableLegacyPartial)
		r.RegisterReadPartial(b, storage.NodeGroup, tagCategorical, readCategoricalPartial)
		r.RegisterReadPartial(b, storage.NodeGroup, tagNullableInteger, readNullableIntegerPartial)
		r.RegisterReadPartial(b, storage.NodeGroup, tagNullableBoolean, readNullableBooleanPartial)
	}
}

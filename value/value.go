// Package value models the closed set of in-memory shapes the codec can
// serialize: mappings, dense arrays, sparse matrices, tables, categorical
// and nullable columns, scalars, and the composite annotated container.
//
// The codec dispatches writers on a value's Kind plus an element-kind
// refinement (see ElemOf), so the variant set here is deliberately closed:
// arbitrary object graphs are out of scope.
package value

import (
	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/storage"
)

type Kind uint8

const (
	KindInvalid Kind = iota
	KindMapping
	KindArray
	KindSparse
	KindTable
	KindCategorical
	KindNullableInteger
	KindNullableBoolean
	KindScalar
	KindContainer
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindArray:
		return "array"
	case KindSparse:
		return "sparse"
	case KindTable:
		return "table"
	case KindCategorical:
		return "categorical"
	case KindNullableInteger:
		return "nullable-integer"
	case KindNullableBoolean:
		return "nullable-boolean"
	case KindScalar:
		return "scalar"
	case KindContainer:
		return "container"
	case KindRaw:
		return "raw"
	default:
		return "invalid"
	}
}

// Value is the closed tagged-variant interface implemented by every
// serializable shape.
type Value interface {
	Kind() Kind
}

// ElemOf returns the element-kind refinement used for writer dispatch.
// Only arrays and scalars carry a refinement; every other shape dispatches
// on its Kind alone.
func ElemOf(v Value) format.ElemKind {
	switch x := v.(type) {
	case *Array:
		return x.Data.Elem()
	case *Scalar:
		return x.Data.Elem()
	default:
		return format.ElemNone
	}
}

// Mapping is an insertion-ordered string-keyed mapping of values.
type Mapping struct {
	keys  []string
	items map[string]Value
}

var _ Value = (*Mapping)(nil)

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{items: make(map[string]Value)}
}

func (m *Mapping) Kind() Kind { return KindMapping }

// Set stores v under key, replacing any previous entry but keeping its
// original position.
func (m *Mapping) Set(key string, v Value) {
	if _, exists := m.items[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.items[key] = v
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Value, bool) {
	v, ok := m.items[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)

	return out
}

// Len returns the number of entries.
func (m *Mapping) Len() int { return len(m.keys) }

// Array is a dense n-dimensional array of a single dtype, including string
// and structured-record arrays.
type Array struct {
	Data storage.Buffer
}

var _ Value = (*Array)(nil)

// NewArray wraps a buffer as an array value.
func NewArray(buf storage.Buffer) *Array {
	return &Array{Data: buf}
}

func (a *Array) Kind() Kind { return KindArray }

// Scalar is a zero-dimensional value: a single number, bool, string or raw
// byte string.
type Scalar struct {
	Data storage.Buffer
}

var _ Value = (*Scalar)(nil)

// NewScalar wraps a zero-dimensional buffer as a scalar value.
func NewScalar(buf storage.Buffer) *Scalar {
	return &Scalar{Data: buf}
}

func (s *Scalar) Kind() Kind { return KindScalar }

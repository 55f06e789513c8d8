package value

import (
	"fmt"

	"github.com/arloliu/annex/storage"
)

// MissingCode is the categorical code sentinel marking a missing value.
const MissingCode = -1

// Categorical is a column of codes into a shared categories array.
// Codes are either MissingCode or valid indices into Categories.
type Categorical struct {
	Codes      []int64
	Categories storage.Buffer
	Ordered    bool
}

var _ Value = (*Categorical)(nil)

// NewCategorical builds a categorical column.
func NewCategorical(codes []int64, categories storage.Buffer, ordered bool) *Categorical {
	return &Categorical{Codes: codes, Categories: categories, Ordered: ordered}
}

func (c *Categorical) Kind() Kind { return KindCategorical }

// Validate checks the code-bounds invariant.
func (c *Categorical) Validate() error {
	n := c.Categories.Len()
	for i, code := range c.Codes {
		if code != MissingCode && (code < 0 || int(code) >= n) {
			return fmt.Errorf("code %d at row %d out of bounds for %d categories", code, i, n)
		}
	}

	return nil
}

// NullableInteger is an integer column with an optional missing-value mask.
// Mask[i] == true marks row i as missing; a nil mask means all rows are
// valid.
type NullableInteger struct {
	Values []int64
	Mask   []bool
}

var _ Value = (*NullableInteger)(nil)

func (n *NullableInteger) Kind() Kind { return KindNullableInteger }

// NullableBoolean is a boolean column with an optional missing-value mask.
type NullableBoolean struct {
	Values []bool
	Mask   []bool
}

var _ Value = (*NullableBoolean)(nil)

func (n *NullableBoolean) Kind() Kind { return KindNullableBoolean }

// Table is an ordered sequence of named columns plus a designated index
// column. Columns are arrays, categoricals or nullable arrays; the index is
// a plain array. An empty index name marks an anonymous index.
type Table struct {
	colNames  []string
	cols      map[string]Value
	index     Value
	indexName string
}

var _ Value = (*Table)(nil)

// NewTable creates an empty table with the given index column. An empty
// indexName denotes an anonymous index.
func NewTable(indexName string, idx Value) *Table {
	return &Table{
		cols:      make(map[string]Value),
		index:     idx,
		indexName: indexName,
	}
}

func (t *Table) Kind() Kind { return KindTable }

// AddCol appends a column, replacing any existing column of the same name
// in place.
func (t *Table) AddCol(name string, col Value) {
	if _, exists := t.cols[name]; !exists {
		t.colNames = append(t.colNames, name)
	}
	t.cols[name] = col
}

// ColNames returns the column names in order.
func (t *Table) ColNames() []string {
	out := make([]string, len(t.colNames))
	copy(out, t.colNames)

	return out
}

// Col returns the named column.
func (t *Table) Col(name string) (Value, bool) {
	v, ok := t.cols[name]
	return v, ok
}

// Index returns the index column.
func (t *Table) Index() Value { return t.index }

// IndexName returns the index column's name, empty for anonymous indexes.
func (t *Table) IndexName() string { return t.indexName }

// NRows returns the row count, taken from the index column.
func (t *Table) NRows() int {
	return ColLen(t.index)
}

// ColLen returns the row count of a column value, or 0 for non-columnar
// values.
func ColLen(v Value) int {
	switch c := v.(type) {
	case *Array:
		return c.Data.Rows()
	case *Categorical:
		return len(c.Codes)
	case *NullableInteger:
		return len(c.Values)
	case *NullableBoolean:
		return len(c.Values)
	default:
		return 0
	}
}

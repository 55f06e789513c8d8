package value

import "github.com/arloliu/annex/format"

// Container is the composite annotated-matrix object: a main matrix X with
// per-row (obs) and per-column (var) tables, aligned mappings of secondary
// arrays, unstructured metadata, and an optional frozen Raw snapshot.
type Container struct {
	X      Value // dense array or sparse matrix, may be nil
	Obs    *Table
	Var    *Table
	Obsm   *Mapping
	Varm   *Mapping
	Obsp   *Mapping
	Varp   *Mapping
	Layers *Mapping
	Uns    *Mapping
	Raw    *Raw

	// XDtype records X's element dtype, derived while reading.
	XDtype format.Dtype
}

var _ Value = (*Container)(nil)

func (c *Container) Kind() Kind { return KindContainer }

// NObs returns the number of observations (rows), taken from Obs.
func (c *Container) NObs() int {
	if c.Obs == nil {
		return 0
	}

	return c.Obs.NRows()
}

// NVars returns the number of variables (columns), taken from Var.
func (c *Container) NVars() int {
	if c.Var == nil {
		return 0
	}

	return c.Var.NRows()
}

// Raw is a frozen snapshot of the container's X and var-axis annotations,
// kept alongside a filtered container.
type Raw struct {
	X    Value
	Var  *Table
	Varm *Mapping
}

var _ Value = (*Raw)(nil)

func (r *Raw) Kind() Kind { return KindRaw }

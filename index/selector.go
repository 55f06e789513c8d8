package index

import "fmt"

type selectorKind uint8

const (
	selAll selectorKind = iota
	selSpec
	selMask
	selLabels
)

// Selector is a user-facing axis selection: a concrete Spec, a boolean mask,
// or a list of index labels. Selectors are normalized against the axis'
// index array into a Spec before use.
//
// The zero value selects the full axis.
type Selector struct {
	kind   selectorKind
	spec   Spec
	mask   []bool
	labels []string
}

// SelAll returns a Selector for the full axis.
func SelAll() Selector {
	return Selector{kind: selAll}
}

// SelSpec wraps an already-concrete Spec.
func SelSpec(s Spec) Selector {
	return Selector{kind: selSpec, spec: s}
}

// SelRange selects the half-open interval [start, stop).
func SelRange(start, stop int) Selector {
	return SelSpec(Range(start, stop))
}

// SelPoints selects explicit positions.
func SelPoints(points ...int) Selector {
	return SelSpec(Points(points...))
}

// SelMask selects positions where mask is true. The mask length must equal
// the axis length at normalization time.
func SelMask(mask []bool) Selector {
	return Selector{kind: selMask, mask: mask}
}

// SelLabels selects positions by their index labels, in the given order.
func SelLabels(labels ...string) Selector {
	return Selector{kind: selLabels, labels: labels}
}

// Normalize resolves the Selector into a concrete Spec for an axis with the
// given labels and length n. Labels may be nil when the selector does not
// reference labels.
func (sel Selector) Normalize(labels []string, n int) (Spec, error) {
	switch sel.kind {
	case selAll:
		return All(), nil
	case selSpec:
		if err := sel.spec.Validate(n); err != nil {
			return Spec{}, err
		}

		return sel.spec, nil
	case selMask:
		if len(sel.mask) != n {
			return Spec{}, fmt.Errorf("boolean mask length %d does not match axis length %d", len(sel.mask), n)
		}
		points := make([]int, 0, n)
		for i, m := range sel.mask {
			if m {
				points = append(points, i)
			}
		}

		return Points(points...), nil
	case selLabels:
		if labels == nil {
			return Spec{}, fmt.Errorf("label selection requires a string index")
		}
		byLabel := make(map[string]int, len(labels))
		for i, l := range labels {
			byLabel[l] = i
		}
		points := make([]int, 0, len(sel.labels))
		for _, l := range sel.labels {
			pos, ok := byLabel[l]
			if !ok {
				return Spec{}, fmt.Errorf("label %q not found in index", l)
			}
			points = append(points, pos)
		}

		return Points(points...), nil
	default:
		return Spec{}, fmt.Errorf("unknown selector kind %d", sel.kind)
	}
}

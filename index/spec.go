// Package index defines axis selections for partial reads.
//
// A Spec is a concrete, backend-independent selection along one axis: the
// full axis, a contiguous range, or an explicit point list. A Selector is a
// user-facing request (range, points, boolean mask or labels) that is
// normalized against an axis' index labels into a Spec before any dependent
// slot is read, so a single normalized selection can be shared across every
// array that follows the same axis.
package index

import "fmt"

type Kind uint8

const (
	// KindAll selects the full axis.
	KindAll Kind = iota
	// KindRange selects the half-open range [start, stop).
	KindRange
	// KindPoints selects an explicit list of positions, in order.
	KindPoints
)

// Spec selects positions along a single axis.
//
// The zero value selects the full axis.
type Spec struct {
	kind   Kind
	start  int
	stop   int
	points []int
}

// All returns a Spec selecting every position on the axis.
func All() Spec {
	return Spec{kind: KindAll}
}

// Range returns a Spec selecting the half-open interval [start, stop).
func Range(start, stop int) Spec {
	return Spec{kind: KindRange, start: start, stop: stop}
}

// Points returns a Spec selecting the given positions in the given order.
func Points(points ...int) Spec {
	return Spec{kind: KindPoints, points: points}
}

// Kind returns the selection kind.
func (s Spec) Kind() Kind { return s.kind }

// IsAll reports whether the Spec selects the full axis.
func (s Spec) IsAll() bool { return s.kind == KindAll }

// Bounds returns the [start, stop) interval of a range Spec clamped to an
// axis of length n. For KindAll it returns (0, n). For KindPoints the result
// is undefined; check Kind first.
func (s Spec) Bounds(n int) (start, stop int) {
	switch s.kind {
	case KindRange:
		start, stop = s.start, s.stop
		if start < 0 {
			start = 0
		}
		if stop > n {
			stop = n
		}
		if stop < start {
			stop = start
		}

		return start, stop
	default:
		return 0, n
	}
}

// Count returns the number of selected positions on an axis of length n.
func (s Spec) Count(n int) int {
	switch s.kind {
	case KindRange:
		start, stop := s.Bounds(n)
		return stop - start
	case KindPoints:
		return len(s.points)
	default:
		return n
	}
}

// Positions materializes the selected positions for an axis of length n.
// The returned slice is freshly allocated and owned by the caller.
func (s Spec) Positions(n int) []int {
	switch s.kind {
	case KindRange:
		start, stop := s.Bounds(n)
		pos := make([]int, 0, stop-start)
		for i := start; i < stop; i++ {
			pos = append(pos, i)
		}

		return pos
	case KindPoints:
		pos := make([]int, len(s.points))
		copy(pos, s.points)

		return pos
	default:
		pos := make([]int, n)
		for i := range pos {
			pos[i] = i
		}

		return pos
	}
}

// Validate checks that every selected position fits an axis of length n.
func (s Spec) Validate(n int) error {
	switch s.kind {
	case KindRange:
		if s.start < 0 || s.stop < s.start {
			return fmt.Errorf("invalid range [%d, %d)", s.start, s.stop)
		}
		if s.stop > n {
			return fmt.Errorf("range [%d, %d) exceeds axis length %d", s.start, s.stop, n)
		}
	case KindPoints:
		for _, p := range s.points {
			if p < 0 || p >= n {
				return fmt.Errorf("point %d out of bounds for axis length %d", p, n)
			}
		}
	}

	return nil
}

// Apply selects elements of a 1-D slice according to the Spec.
// For KindAll the input slice is returned unchanged without copying.
func Apply[T any](data []T, s Spec) []T {
	switch s.Kind() {
	case KindRange:
		start, stop := s.Bounds(len(data))
		return data[start:stop]
	case KindPoints:
		out := make([]T, 0, s.Count(len(data)))
		for _, p := range s.Positions(len(data)) {
			out = append(out, data[p])
		}

		return out
	default:
		return data
	}
}

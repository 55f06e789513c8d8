package value

import (
	"fmt"

	"github.com/arloliu/annex/index"
)

type SparseFormat uint8

const (
	// CSR stores rows as the compressed (major) axis.
	CSR SparseFormat = 0x1
	// CSC stores columns as the compressed (major) axis.
	CSC SparseFormat = 0x2
)

func (f SparseFormat) String() string {
	switch f {
	case CSR:
		return "csr"
	case CSC:
		return "csc"
	default:
		return "unknown"
	}
}

// Sparse is a compressed sparse matrix in CSR or CSC layout:
// Data/Indices hold the non-zero values and their minor-axis positions,
// Indptr delimits each major-axis slice. len(Indptr) == major+1.
type Sparse struct {
	Format  SparseFormat
	Rows    int
	Cols    int
	Data    []float64
	Indices []int64
	Indptr  []int64
}

var _ Value = (*Sparse)(nil)

// NewCSR builds a CSR matrix.
func NewCSR(rows, cols int, data []float64, indices, indptr []int64) *Sparse {
	return &Sparse{Format: CSR, Rows: rows, Cols: cols, Data: data, Indices: indices, Indptr: indptr}
}

// NewCSC builds a CSC matrix.
func NewCSC(rows, cols int, data []float64, indices, indptr []int64) *Sparse {
	return &Sparse{Format: CSC, Rows: rows, Cols: cols, Data: data, Indices: indices, Indptr: indptr}
}

func (s *Sparse) Kind() Kind { return KindSparse }

// NNZ returns the number of stored non-zero entries.
func (s *Sparse) NNZ() int { return len(s.Data) }

// major returns the compressed axis length.
func (s *Sparse) major() int {
	if s.Format == CSR {
		return s.Rows
	}

	return s.Cols
}

// At returns the element at (row, col), zero when not stored.
func (s *Sparse) At(row, col int) float64 {
	maj, min := row, col
	if s.Format == CSC {
		maj, min = col, row
	}
	for p := s.Indptr[maj]; p < s.Indptr[maj+1]; p++ {
		if int(s.Indices[p]) == min {
			return s.Data[p]
		}
	}

	return 0
}

// Dense materializes the matrix as a row-major dense slice. Intended for
// small matrices and tests.
func (s *Sparse) Dense() []float64 {
	out := make([]float64, s.Rows*s.Cols)
	for maj := 0; maj < s.major(); maj++ {
		for p := s.Indptr[maj]; p < s.Indptr[maj+1]; p++ {
			min := int(s.Indices[p])
			if s.Format == CSR {
				out[maj*s.Cols+min] = s.Data[p]
			} else {
				out[min*s.Cols+maj] = s.Data[p]
			}
		}
	}

	return out
}

// Validate checks structural invariants: indptr length and monotonicity,
// and minor-axis index bounds.
func (s *Sparse) Validate() error {
	minor := s.Cols
	if s.Format == CSC {
		minor = s.Rows
	}
	if len(s.Indptr) != s.major()+1 {
		return fmt.Errorf("indptr length %d does not match major axis %d", len(s.Indptr), s.major())
	}
	if len(s.Data) != len(s.Indices) {
		return fmt.Errorf("data length %d does not match indices length %d", len(s.Data), len(s.Indices))
	}
	for i := 1; i < len(s.Indptr); i++ {
		if s.Indptr[i] < s.Indptr[i-1] {
			return fmt.Errorf("indptr is not monotonic at %d", i)
		}
	}
	if int(s.Indptr[len(s.Indptr)-1]) != len(s.Data) {
		return fmt.Errorf("indptr end %d does not match nnz %d", s.Indptr[len(s.Indptr)-1], len(s.Data))
	}
	for _, idx := range s.Indices {
		if idx < 0 || int(idx) >= minor {
			return fmt.Errorf("index %d out of bounds for minor axis %d", idx, minor)
		}
	}

	return nil
}

// Slice selects rows and columns through the sparse structure without
// densifying. The result keeps the receiver's format; selected positions are
// renumbered in selection order.
func (s *Sparse) Slice(rowSpec, colSpec index.Spec) (*Sparse, error) {
	if err := rowSpec.Validate(s.Rows); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if err := colSpec.Validate(s.Cols); err != nil {
		return nil, fmt.Errorf("cols: %w", err)
	}

	majSpec, minSpec := rowSpec, colSpec
	majLen, minLen := s.Rows, s.Cols
	if s.Format == CSC {
		majSpec, minSpec = colSpec, rowSpec
		majLen, minLen = s.Cols, s.Rows
	}

	majSel := majSpec.Positions(majLen)

	// Minor-axis remap table; nil means identity (full axis).
	var minPos map[int]int
	newMinor := minLen
	if !minSpec.IsAll() {
		sel := minSpec.Positions(minLen)
		minPos = make(map[int]int, len(sel))
		for newIdx, oldIdx := range sel {
			minPos[oldIdx] = newIdx
		}
		newMinor = len(sel)
	}

	out := &Sparse{Format: s.Format}
	out.Indptr = make([]int64, 0, len(majSel)+1)
	out.Indptr = append(out.Indptr, 0)
	for _, maj := range majSel {
		for p := s.Indptr[maj]; p < s.Indptr[maj+1]; p++ {
			min := int(s.Indices[p])
			if minPos != nil {
				newIdx, ok := minPos[min]
				if !ok {
					continue
				}
				min = newIdx
			}
			out.Data = append(out.Data, s.Data[p])
			out.Indices = append(out.Indices, int64(min))
		}
		out.Indptr = append(out.Indptr, int64(len(out.Data)))
	}

	if s.Format == CSR {
		out.Rows, out.Cols = len(majSel), newMinor
	} else {
		out.Rows, out.Cols = newMinor, len(majSel)
	}

	return out, nil
}

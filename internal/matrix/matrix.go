// Package matrix provides the dense species-by-resource coefficient matrix
// and the structured random generator that produces it. Positive entries are
// consumption yields, negative entries are production yields, zero means no
// interaction; an entry's sign is fixed for the lifetime of a run.
package matrix

import (
	"fmt"
	"math"
)

// Matrix is a dense row-major matrix with declared dimensions. Rows index
// species, columns index resources.
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

func New(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// FromRows builds a matrix from explicit row slices; every row must have the
// same length.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("matrix: rows must be non-empty")
	}
	m := New(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != m.Cols {
			return nil, fmt.Errorf("matrix: row %d has %d entries, want %d", i, len(row), m.Cols)
		}
		copy(m.Data[i*m.Cols:], row)
	}
	return m, nil
}

// Constant builds a matrix with every entry set to v; used for uniform Monod
// constants.
func Constant(rows, cols int, v float64) *Matrix {
	m := New(rows, cols)
	for i := range m.Data {
		m.Data[i] = v
	}
	return m
}

func (m *Matrix) At(i, j int) float64     { return m.Data[i*m.Cols+j] }
func (m *Matrix) Set(i, j int, v float64) { m.Data[i*m.Cols+j] = v }

// Row returns row i (aliases the backing array, no copy).
func (m *Matrix) Row(i int) []float64 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

func (m *Matrix) Clone() *Matrix {
	c := New(m.Rows, m.Cols)
	copy(c.Data, m.Data)
	return c
}

// Validate checks a caller-supplied coefficient matrix: positive dimensions
// and finite entries. Sign stability over a run follows from the matrix
// being cloned at construction and never mutated afterwards.
func Validate(m *Matrix) error {
	if m == nil || m.Rows <= 0 || m.Cols <= 0 {
		return fmt.Errorf("matrix: dimensions must be positive")
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("matrix: backing array length %d, want %d", len(m.Data), m.Rows*m.Cols)
	}
	for _, v := range m.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("matrix: entries must be finite")
		}
	}
	return nil
}

// Stack concatenates the rows of several matrices with equal column counts.
// This is how non-linear cross-feeding topologies are assembled: one
// generator call per node, then Stack the per-node rows into the full E.
func Stack(blocks ...*Matrix) (*Matrix, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("matrix: nothing to stack")
	}
	cols := blocks[0].Cols
	rows := 0
	for _, b := range blocks {
		if b.Cols != cols {
			return nil, fmt.Errorf("matrix: column count mismatch (%d vs %d)", b.Cols, cols)
		}
		rows += b.Rows
	}
	out := New(rows, cols)
	offset := 0
	for _, b := range blocks {
		copy(out.Data[offset:], b.Data)
		offset += len(b.Data)
	}
	return out, nil
}

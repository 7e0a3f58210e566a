package pricetable

import (
	"time"

	"github.com/guregu/null/v6"
)

// Matrix is an aligned symbol-by-date table. All rows share the same column
// set; columns are strictly ascending week-ending dates. A cell is either a
// finite value or explicitly absent; absence and zero are never conflated.
type Matrix struct {
	Symbols []string       `json:"symbols"`
	Dates   []time.Time    `json:"dates"`
	Cells   [][]null.Float `json:"cells"` // rows follow Symbols, columns follow Dates
}

// NewMatrix allocates an all-absent matrix for the given rows and columns.
func NewMatrix(symbols []string, dates []time.Time) *Matrix {
	cells := make([][]null.Float, len(symbols))
	for i := range cells {
		cells[i] = make([]null.Float, len(dates))
	}
	return &Matrix{
		Symbols: symbols,
		Dates:   dates,
		Cells:   cells,
	}
}

// Rows returns the number of symbol rows.
func (m *Matrix) Rows() int {
	return len(m.Symbols)
}

// Cols returns the number of date columns.
func (m *Matrix) Cols() int {
	return len(m.Dates)
}

// At returns the cell for row r, column c.
func (m *Matrix) At(r, c int) null.Float {
	return m.Cells[r][c]
}

// Set assigns the cell for row r, column c.
func (m *Matrix) Set(r, c int, v null.Float) {
	m.Cells[r][c] = v
}

// Row returns the cell slice for a symbol, or false when the symbol is not
// part of the matrix.
func (m *Matrix) Row(symbol string) ([]null.Float, bool) {
	for i, s := range m.Symbols {
		if s == symbol {
			return m.Cells[i], true
		}
	}
	return nil, false
}

// Labels renders the column dates as YYYY-MM-DD strings, the canonical
// form consumed by tables and exports.
func (m *Matrix) Labels() []string {
	labels := make([]string, len(m.Dates))
	for i, d := range m.Dates {
		labels[i] = d.Format("2006-01-02")
	}
	return labels
}

// PresentCount returns the number of non-absent cells in row r.
func (m *Matrix) PresentCount(r int) int {
	count := 0
	for _, v := range m.Cells[r] {
		if v.Valid {
			count++
		}
	}
	return count
}

// Clone returns a deep copy. Derived-table computations never mutate their
// input.
func (m *Matrix) Clone() *Matrix {
	out := NewMatrix(append([]string(nil), m.Symbols...), append([]time.Time(nil), m.Dates...))
	for i := range m.Cells {
		copy(out.Cells[i], m.Cells[i])
	}
	return out
}

// dropLastColumn removes the trailing column from every row.
func (m *Matrix) dropLastColumn() {
	if len(m.Dates) == 0 {
		return
	}
	m.Dates = m.Dates[:len(m.Dates)-1]
	for i := range m.Cells {
		m.Cells[i] = m.Cells[i][:len(m.Cells[i])-1]
	}
}

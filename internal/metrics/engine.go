package metrics

import (
	"github.com/guregu/null/v6"

	"github.com/jlindqvist/weektrack/internal/pricetable"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

// Engine computes derived tables from an aligned weekly price matrix. All
// transforms are pure: inputs are cloned, never mutated, and a call with the
// same matrix always yields the same output.
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a new metrics engine.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{
		logger: log.WithField("module", "metrics"),
	}
}

// PercentChange returns the row-wise week-over-week percent difference.
// A cell is absent when either operand is missing or the previous value is
// zero. The first column is always absent since it has no predecessor.
func (e *Engine) PercentChange(m *pricetable.Matrix) *pricetable.Matrix {
	out := pricetable.NewMatrix(m.Symbols, m.Dates)
	for r := 0; r < m.Rows(); r++ {
		for c := 1; c < m.Cols(); c++ {
			prev, cur := m.At(r, c-1), m.At(r, c)
			if !prev.Valid || !cur.Valid || prev.Float64 == 0 {
				continue
			}
			change := (cur.Float64 - prev.Float64) / prev.Float64 * 100
			out.Set(r, c, null.FloatFrom(change))
		}
	}
	return out
}

// Normalize rebases every row to 100 at its first present value. When the
// base is missing or zero the entire row stays absent instead of producing
// a division error.
func (e *Engine) Normalize(m *pricetable.Matrix) *pricetable.Matrix {
	out := pricetable.NewMatrix(m.Symbols, m.Dates)
	for r := 0; r < m.Rows(); r++ {
		base := firstPresent(m.Cells[r])
		if !base.Valid || base.Float64 == 0 {
			e.logger.WithField("symbol", m.Symbols[r]).
				Debug("No usable base value, normalized row left absent")
			continue
		}
		for c := 0; c < m.Cols(); c++ {
			if v := m.At(r, c); v.Valid {
				out.Set(r, c, null.FloatFrom(v.Float64/base.Float64*100))
			}
		}
	}
	return out
}

// MaxDrawdown returns the running-maximum drawdown of a row in percent,
// always <= 0. Rows with fewer than two present values return an absent
// result: "no drawdown" is a legitimate zero and must stay distinguishable
// from "not enough data".
func (e *Engine) MaxDrawdown(row []null.Float) null.Float {
	var (
		runMax   float64
		worst    float64
		observed int
	)
	for _, v := range row {
		if !v.Valid {
			continue
		}
		observed++
		if v.Float64 > runMax {
			runMax = v.Float64
		}
		if runMax > 0 {
			if dd := (v.Float64/runMax - 1) * 100; dd < worst {
				worst = dd
			}
		}
	}
	if observed < 2 {
		return null.Float{}
	}
	return null.FloatFrom(worst)
}

// DrawdownBySymbol computes MaxDrawdown for every row of the matrix.
func (e *Engine) DrawdownBySymbol(m *pricetable.Matrix) map[string]null.Float {
	out := make(map[string]null.Float, m.Rows())
	for r, symbol := range m.Symbols {
		out[symbol] = e.MaxDrawdown(m.Cells[r])
	}
	return out
}

// firstPresent returns the first non-absent value of a row.
func firstPresent(row []null.Float) null.Float {
	for _, v := range row {
		if v.Valid {
			return v
		}
	}
	return null.Float{}
}

// lastPresent returns the last non-absent value of a row.
func lastPresent(row []null.Float) null.Float {
	for i := len(row) - 1; i >= 0; i-- {
		if row[i].Valid {
			return row[i]
		}
	}
	return null.Float{}
}

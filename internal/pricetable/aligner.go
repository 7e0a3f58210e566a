package pricetable

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"

	"github.com/jlindqvist/weektrack/internal/calendar"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

// Aligner reindexes heterogeneous per-symbol weekly series onto one shared
// column set. Alignment is batch-wide: every surviving row ends up with
// identical columns so downstream matrix operations stay well-defined.
type Aligner struct {
	cal    *calendar.Calendar
	logger *logger.Logger
}

// NewAligner creates an Aligner for the given week calendar.
func NewAligner(cal *calendar.Calendar, log *logger.Logger) *Aligner {
	return &Aligner{
		cal:    cal,
		logger: log.WithField("module", "aligner"),
	}
}

// minObservations is the smallest number of present weekly values a row
// needs to support percent-change and drawdown.
const minObservations = 2

// AlignAndTrim aligns every series in seriesMap onto the union of their
// week-ending dates, trimmed to the most recent windowSize columns, and
// reports symbols left with fewer than two present values. Row order follows
// the order slice; symbols without a series entry are ignored (the caller
// records those skips at fetch time).
//
// A trailing open-bucket column that merely restates the prior column is
// dropped before the insufficient-data check: an in-progress week that has
// produced no new close is not a meaningful weekly change.
func (a *Aligner) AlignAndTrim(order []string, seriesMap map[string]WeeklySeries, windowSize int, asOf time.Time) (*Matrix, []string) {
	// Union of present dates across all series.
	dateSet := make(map[time.Time]struct{})
	for _, series := range seriesMap {
		for _, d := range series.Dates {
			dateSet[d] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	// Keep only the most recent windowSize columns.
	if windowSize > 0 && len(dates) > windowSize {
		dates = dates[len(dates)-windowSize:]
	}

	// Reindex every row onto the shared columns.
	rows := make([]string, 0, len(order))
	for _, symbol := range order {
		if _, ok := seriesMap[symbol]; ok {
			rows = append(rows, symbol)
		}
	}

	matrix := NewMatrix(rows, dates)
	for r, symbol := range rows {
		series := seriesMap[symbol]
		i := 0
		for c, d := range dates {
			for i < len(series.Dates) && series.Dates[i].Before(d) {
				i++
			}
			if i < len(series.Dates) && series.Dates[i].Equal(d) {
				matrix.Set(r, c, null.FloatFrom(series.Closes[i]))
			}
		}
	}

	a.dropDegenerateTrailingColumn(matrix, asOf)

	return a.filterInsufficient(matrix)
}

// dropDegenerateTrailingColumn removes the last column when it belongs to a
// still-open week and restates the prior column. A flat open bucket is
// indistinguishable from "no trading yet" and would otherwise read as a
// 0% week.
func (a *Aligner) dropDegenerateTrailingColumn(m *Matrix, asOf time.Time) {
	if m.Cols() < 2 {
		return
	}

	lastCompleted := a.cal.MostRecentAnchor(asOf)
	lastCol := m.Dates[m.Cols()-1]
	if !lastCol.After(lastCompleted) {
		return // last column is a completed week
	}

	start, end := a.cal.CurrentPeriodBounds(asOf)
	labelCollapsed := start.Equal(end)

	restated := true
	last, prev := m.Cols()-1, m.Cols()-2
	for r := 0; r < m.Rows(); r++ {
		lv, pv := m.At(r, last), m.At(r, prev)
		if lv.Valid != pv.Valid || (lv.Valid && lv.Float64 != pv.Float64) {
			restated = false
			break
		}
	}

	if labelCollapsed || restated {
		a.logger.WithField("date", lastCol.Format("2006-01-02")).
			Debug("Dropping degenerate trailing week column")
		m.dropLastColumn()
	}
}

// filterInsufficient removes rows with fewer than minObservations present
// values and reports them as skipped.
func (a *Aligner) filterInsufficient(m *Matrix) (*Matrix, []string) {
	var skipped []string
	keepSymbols := make([]string, 0, m.Rows())
	keepCells := make([][]null.Float, 0, m.Rows())

	for r, symbol := range m.Symbols {
		if m.PresentCount(r) < minObservations {
			skipped = append(skipped, symbol)
			continue
		}
		keepSymbols = append(keepSymbols, symbol)
		keepCells = append(keepCells, m.Cells[r])
	}

	return &Matrix{
		Symbols: keepSymbols,
		Dates:   m.Dates,
		Cells:   keepCells,
	}, skipped
}

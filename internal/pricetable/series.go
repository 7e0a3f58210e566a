package pricetable

import (
	"time"

	"github.com/jlindqvist/weektrack/internal/marketdata"
)

// WeeklySeries holds the present weekly observations for one symbol as
// parallel arrays with strictly ascending dates. Week-ending dates without
// an observation simply do not appear.
type WeeklySeries struct {
	Dates  []time.Time
	Closes []float64
}

// Len returns the number of present observations.
func (s WeeklySeries) Len() int {
	return len(s.Dates)
}

// BuildWeeklySeries resamples daily closes onto the given week-ending dates:
// for each target date the last daily close on or before it wins
// (last-observation-in-bucket with forward-fill from the most recent prior
// close). Dates with no close at or before them stay absent.
//
// dailyCloses must be ascending by date; weekEndings must be ascending.
func BuildWeeklySeries(dailyCloses []marketdata.DailyClose, weekEndings []time.Time) WeeklySeries {
	var series WeeklySeries
	if len(dailyCloses) == 0 || len(weekEndings) == 0 {
		return series
	}

	i := 0
	var last *marketdata.DailyClose
	for _, anchor := range weekEndings {
		for i < len(dailyCloses) && !dailyCloses[i].Date.After(anchor) {
			last = &dailyCloses[i]
			i++
		}
		if last == nil || last.Close <= 0 {
			continue
		}
		series.Dates = append(series.Dates, anchor)
		series.Closes = append(series.Closes, last.Close)
	}

	return series
}

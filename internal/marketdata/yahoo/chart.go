package yahoo

import (
	"time"

	"github.com/jlindqvist/weektrack/internal/calendar"
	"github.com/jlindqvist/weektrack/internal/marketdata"
)

// chartResponse mirrors the Yahoo v8 chart API payload.
type chartResponse struct {
	Chart chartData `json:"chart"`
}

type chartData struct {
	Result []chartResult `json:"result"`
	Error  any           `json:"error"`
}

type chartResult struct {
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type indicators struct {
	Quote []quote `json:"quote"`
}

// quote holds parallel arrays aligned with Timestamp. Yahoo encodes missing
// observations as JSON null, which decodes to zero here; zeros are dropped
// during conversion since a real close is always positive.
type quote struct {
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []int64   `json:"volume"`
}

// dailyCloses converts the parallel timestamp/close arrays into dated
// closing prices. Timestamps carry exchange-local session times; they are
// collapsed to UTC calendar dates so week bucketing can never shift.
func (r *chartResult) dailyCloses() []marketdata.DailyClose {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}

	closes := r.Indicators.Quote[0].Close
	n := len(r.Timestamp)
	if len(closes) < n {
		n = len(closes)
	}

	out := make([]marketdata.DailyClose, 0, n)
	var lastDate time.Time
	for i := 0; i < n; i++ {
		if closes[i] <= 0 {
			continue
		}
		date := calendar.Truncate(time.Unix(r.Timestamp[i], 0))
		// Intraday ticks inside one session collapse to a single close.
		if !lastDate.IsZero() && date.Equal(lastDate) {
			out[len(out)-1].Close = closes[i]
			continue
		}
		out = append(out, marketdata.DailyClose{Date: date, Close: closes[i]})
		lastDate = date
	}
	return out
}

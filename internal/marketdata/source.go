package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/guregu/null/v6"
)

// ErrSourceUnavailable marks genuine transport, auth or timeout failures of
// the upstream source. "Unknown symbol" and "no data" are NOT this error;
// they come back as empty results. The pipeline's retry/skip policy depends
// on this distinction.
var ErrSourceUnavailable = errors.New("market data source unavailable")

// DailyClose is one daily closing observation. Date is a plain UTC calendar
// date with no time-of-day component.
type DailyClose struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// LiveQuote is a point-in-time snapshot for one symbol, captured once per
// build. Either field may be absent when the upstream has no recent trade.
type LiveQuote struct {
	Price         null.Float `json:"price"`
	PreviousClose null.Float `json:"previous_close"`
}

// IntradayChangePct derives the intraday percent change against the previous
// close. Absent when either operand is missing or the previous close is not
// positive.
func (q LiveQuote) IntradayChangePct() null.Float {
	if !q.Price.Valid || !q.PreviousClose.Valid || q.PreviousClose.Float64 <= 0 {
		return null.Float{}
	}
	change := (q.Price.Float64 - q.PreviousClose.Float64) / q.PreviousClose.Float64 * 100.0
	return null.FloatFrom(change)
}

// PriceSource abstracts one upstream market-data provider.
//
// Contract: implementations never return an error for unknown symbols or
// empty histories; those yield empty results. Errors wrapping
// ErrSourceUnavailable are reserved for connectivity/auth/timeout failures.
// Returned dates are UTC calendar dates.
type PriceSource interface {
	// FetchDailyCloses returns daily closing prices for [from, to],
	// ascending by date. An unknown symbol returns an empty slice.
	FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]DailyClose, error)

	// FetchLiveQuote returns the latest price snapshot for a symbol.
	FetchLiveQuote(ctx context.Context, symbol string) (LiveQuote, error)
}

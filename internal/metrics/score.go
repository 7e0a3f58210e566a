package metrics

import (
	"math"
	"sort"

	"github.com/guregu/null/v6"

	"github.com/jlindqvist/weektrack/internal/pricetable"
)

// Scorecard is the per-symbol summary derived from the normalized matrix.
// Missing inputs contribute zero to each sub-score so a sparse row still
// produces a finite card instead of NaN.
type Scorecard struct {
	Symbol         string            `json:"symbol"`
	Momentum       float64           `json:"momentum"`
	Volatility     float64           `json:"volatility"`
	Trend          int               `json:"trend"`
	TotalReturnPct float64           `json:"total_return_pct"`
	AllAround      float64           `json:"all_around"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Score builds a scorecard per row of the normalized matrix, joined with the
// caller's metadata by symbol. Symbols without metadata still get a card
// with empty metadata. Row order is preserved.
func (e *Engine) Score(normalized *pricetable.Matrix, metadata map[string]map[string]string) []Scorecard {
	cards := make([]Scorecard, 0, normalized.Rows())
	for r, symbol := range normalized.Symbols {
		row := normalized.Cells[r]
		card := Scorecard{
			Symbol:         symbol,
			Momentum:       momentum(row),
			Volatility:     volatility(row),
			Trend:          trend(row),
			TotalReturnPct: totalReturn(row),
		}
		card.AllAround = card.Momentum + card.Volatility + float64(card.Trend) + card.TotalReturnPct
		if meta, ok := metadata[symbol]; ok {
			card.Metadata = meta
		}
		cards = append(cards, card)
	}

	e.logger.WithField("symbols", len(cards)).Debug("Scorecard computed")
	return cards
}

// Rank orders symbols by total return descending, breaking ties by symbol
// name, and returns at most topN identifiers. topN <= 0 returns all. The
// input matrix is not modified.
func (e *Engine) Rank(normalized *pricetable.Matrix, topN int) []string {
	type entry struct {
		symbol string
		ret    float64
	}
	entries := make([]entry, 0, normalized.Rows())
	for r, symbol := range normalized.Symbols {
		entries = append(entries, entry{symbol: symbol, ret: totalReturn(normalized.Cells[r])})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ret != entries[j].ret {
			return entries[i].ret > entries[j].ret
		}
		return entries[i].symbol < entries[j].symbol
	})

	if topN > 0 && topN < len(entries) {
		entries = entries[:topN]
	}

	out := make([]string, len(entries))
	for i, en := range entries {
		out[i] = en.symbol
	}
	return out
}

// momentum is the difference between the last two present values, zero when
// fewer than two are present.
func momentum(row []null.Float) float64 {
	var last, prev float64
	count := 0
	for _, v := range row {
		if !v.Valid {
			continue
		}
		prev, last = last, v.Float64
		count++
	}
	if count < 2 {
		return 0
	}
	return last - prev
}

// volatility is the sample standard deviation of the present values, zero
// when fewer than two are present.
func volatility(row []null.Float) float64 {
	var sum float64
	count := 0
	for _, v := range row {
		if v.Valid {
			sum += v.Float64
			count++
		}
	}
	if count < 2 {
		return 0
	}
	mean := sum / float64(count)

	var sq float64
	for _, v := range row {
		if v.Valid {
			d := v.Float64 - mean
			sq += d * d
		}
	}
	return math.Sqrt(sq / float64(count-1))
}

// trend counts week-over-week increases across adjacent present columns.
func trend(row []null.Float) int {
	count := 0
	for c := 1; c < len(row); c++ {
		if row[c].Valid && row[c-1].Valid && row[c].Float64 > row[c-1].Float64 {
			count++
		}
	}
	return count
}

// totalReturn is (last/first - 1) * 100 over the present values, zero when
// fewer than two are present or the first value is zero.
func totalReturn(row []null.Float) float64 {
	first, last := firstPresent(row), lastPresent(row)
	if !first.Valid || first.Float64 == 0 || presentCount(row) < 2 {
		return 0
	}
	return (last.Float64/first.Float64 - 1) * 100
}

// presentCount returns the number of non-absent values in a row.
func presentCount(row []null.Float) int {
	count := 0
	for _, v := range row {
		if v.Valid {
			count++
		}
	}
	return count
}

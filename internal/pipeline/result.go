package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/jlindqvist/weektrack/internal/marketdata"
	"github.com/jlindqvist/weektrack/internal/metrics"
	"github.com/jlindqvist/weektrack/internal/pricetable"
)

// SkipReason explains why a symbol is absent from the built tables.
type SkipReason string

const (
	// SkipSourceUnavailable marks a symbol whose upstream fetch failed
	// twice with a transport-level error.
	SkipSourceUnavailable SkipReason = "source_unavailable"
	// SkipInsufficientData marks a symbol left with fewer than two weekly
	// observations after alignment, including "no data at all".
	SkipInsufficientData SkipReason = "insufficient_data"
)

// SkippedSymbol pairs a skipped symbol with its reason.
type SkippedSymbol struct {
	Symbol string     `json:"symbol"`
	Reason SkipReason `json:"reason"`
}

// BuildResult is the immutable bundle produced by one pipeline run. The
// pipeline constructs it fresh per invocation and never retains a reference;
// consumers must not mutate it. Re-derivation with different parameters goes
// through the metrics engine on Prices, not through a refetch.
type BuildResult struct {
	Prices        *pricetable.Matrix               `json:"prices"`
	PercentChange *pricetable.Matrix               `json:"percent_change"`
	Normalized    *pricetable.Matrix               `json:"normalized"`
	Drawdowns     map[string]null.Float            `json:"drawdowns"`
	Scorecards    []metrics.Scorecard              `json:"scorecards"`
	TopSymbols    []string                         `json:"top_symbols"`
	LiveQuotes    map[string]marketdata.LiveQuote  `json:"live_quotes"`
	Skipped       []SkippedSymbol                  `json:"skipped"`
	Labels        []string                         `json:"labels"`
	BuiltAt       time.Time                        `json:"built_at"`
}

// Symbols returns the surviving row symbols in table order.
func (r *BuildResult) Symbols() []string {
	return r.Prices.Symbols
}

// skippedSampleLimit caps how many skipped symbols a summary line names.
const skippedSampleLimit = 10

// SkippedSummary renders a one-line human-readable account of the skips,
// naming at most ten symbols. Empty string when nothing was skipped.
func (r *BuildResult) SkippedSummary() string {
	if len(r.Skipped) == 0 {
		return ""
	}

	names := make([]string, 0, skippedSampleLimit)
	for _, s := range r.Skipped {
		if len(names) == skippedSampleLimit {
			break
		}
		names = append(names, fmt.Sprintf("%s (%s)", s.Symbol, s.Reason))
	}

	summary := fmt.Sprintf("%d symbol(s) skipped: %s", len(r.Skipped), strings.Join(names, ", "))
	if len(r.Skipped) > skippedSampleLimit {
		summary += fmt.Sprintf(" and %d more", len(r.Skipped)-skippedSampleLimit)
	}
	return summary
}

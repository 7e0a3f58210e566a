package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jlindqvist/weektrack/internal/calendar"
	"github.com/jlindqvist/weektrack/internal/marketdata"
	"github.com/jlindqvist/weektrack/internal/metrics"
	"github.com/jlindqvist/weektrack/internal/pricetable"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

// State names the phase a build is in. Each invocation walks
// Idle -> Fetching -> Aligning -> Deriving -> Done, or stops at Failed.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateAligning State = "aligning"
	StateDeriving State = "deriving"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

const (
	// maxLookbackWeeks caps the window at ten years of weekly buckets.
	maxLookbackWeeks = 520
	// fetchWindowBufferDays pads the daily fetch window so holidays and
	// listing gaps at the window edge cannot starve the oldest buckets.
	fetchWindowBufferDays = 42
)

// Options parameterizes a single build.
type Options struct {
	// LookbackWeeks is the number of week-ending columns, 1..520.
	LookbackWeeks int
	// BatchSize bounds concurrent upstream fetches. Batching only limits
	// peak load; the result is identical for any batch size.
	BatchSize int
	// TopN limits the ranked symbol list; <= 0 keeps all.
	TopN int
	// AsOf anchors the window; zero means now.
	AsOf time.Time
	// Metadata is joined into the scorecard by symbol. Optional.
	Metadata map[string]map[string]string
}

func (o Options) validate() error {
	if o.LookbackWeeks < 1 {
		return &ConfigError{Field: "lookback_weeks", Reason: "must be positive"}
	}
	if o.LookbackWeeks > maxLookbackWeeks {
		return &ConfigError{Field: "lookback_weeks", Reason: "exceeds 520 week maximum"}
	}
	if o.BatchSize < 1 {
		return &ConfigError{Field: "batch_size", Reason: "must be positive"}
	}
	return nil
}

// Pipeline assembles weekly price tables and their derived analytics from a
// PriceSource. It holds no per-build state; concurrent Build calls are safe
// as long as the source is.
type Pipeline struct {
	source  marketdata.PriceSource
	cal     *calendar.Calendar
	aligner *pricetable.Aligner
	engine  *metrics.Engine
	logger  *logger.Logger
}

// New creates a Pipeline over the given source and week calendar.
func New(source marketdata.PriceSource, cal *calendar.Calendar, log *logger.Logger) *Pipeline {
	return &Pipeline{
		source:  source,
		cal:     cal,
		aligner: pricetable.NewAligner(cal, log),
		engine:  metrics.NewEngine(log),
		logger:  log.WithField("module", "pipeline"),
	}
}

// fetchResult carries one symbol's upstream data to the alignment barrier.
type fetchResult struct {
	symbol      string
	closes      []marketdata.DailyClose
	quote       marketdata.LiveQuote
	hasQuote    bool
	unavailable bool
}

// Build runs one full pipeline invocation and returns an immutable
// BuildResult. Per-symbol problems become skip entries; Build itself fails
// only on invalid options, cancellation, or when no symbol at all yields
// two usable weekly observations.
func (p *Pipeline) Build(ctx context.Context, symbols []string, opts Options) (*BuildResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	deduped := dedupeSymbols(symbols)
	if len(deduped) == 0 {
		return nil, ErrNoDataAvailable
	}

	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	state := StateIdle
	p.transition(&state, StateFetching)

	to := calendar.Truncate(asOf)
	from := to.AddDate(0, 0, -(opts.LookbackWeeks*7 + fetchWindowBufferDays))

	fetched, err := p.fetchAll(ctx, deduped, from, to, opts.BatchSize)
	if err != nil {
		p.transition(&state, StateFailed)
		return nil, err
	}

	p.transition(&state, StateAligning)

	anchors := p.cal.WeekEndingDates(opts.LookbackWeeks, asOf)
	if next := p.cal.NextAnchor(asOf); next.After(anchors[len(anchors)-1]) {
		anchors = append(anchors, next)
	}

	var skipped []SkippedSymbol
	seriesMap := make(map[string]pricetable.WeeklySeries, len(deduped))
	for _, symbol := range deduped {
		res := fetched[symbol]
		if res.unavailable {
			skipped = append(skipped, SkippedSymbol{Symbol: symbol, Reason: SkipSourceUnavailable})
			continue
		}
		seriesMap[symbol] = pricetable.BuildWeeklySeries(res.closes, anchors)
	}

	prices, insufficient := p.aligner.AlignAndTrim(deduped, seriesMap, opts.LookbackWeeks, asOf)
	for _, symbol := range insufficient {
		skipped = append(skipped, SkippedSymbol{Symbol: symbol, Reason: SkipInsufficientData})
	}

	if prices.Rows() == 0 {
		p.transition(&state, StateFailed)
		p.logger.WithField("requested", len(deduped)).Warn("Build failed, no symbol produced data")
		return nil, ErrNoDataAvailable
	}

	p.transition(&state, StateDeriving)

	normalized := p.engine.Normalize(prices)
	quotes := make(map[string]marketdata.LiveQuote, prices.Rows())
	for _, symbol := range prices.Symbols {
		if res := fetched[symbol]; res.hasQuote {
			quotes[symbol] = res.quote
		}
	}

	result := &BuildResult{
		Prices:        prices,
		PercentChange: p.engine.PercentChange(prices),
		Normalized:    normalized,
		Drawdowns:     p.engine.DrawdownBySymbol(prices),
		Scorecards:    p.engine.Score(normalized, opts.Metadata),
		TopSymbols:    p.engine.Rank(normalized, opts.TopN),
		LiveQuotes:    quotes,
		Skipped:       skipped,
		Labels:        prices.Labels(),
		BuiltAt:       time.Now().UTC(),
	}

	p.transition(&state, StateDone)
	p.logger.WithFields(map[string]interface{}{
		"symbols": prices.Rows(),
		"weeks":   prices.Cols(),
		"skipped": len(skipped),
	}).Info("Build completed")

	return result, nil
}

// fetchAll fans each batch out to a bounded worker pool and waits for the
// whole batch before starting the next. The gap between batches is the only
// cancellation point; once cancelled, nothing partial is returned.
func (p *Pipeline) fetchAll(ctx context.Context, symbols []string, from, to time.Time, batchSize int) (map[string]fetchResult, error) {
	results := make(map[string]fetchResult, len(symbols))

	for start := 0; start < len(symbols); start += batchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := start + batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		jobCh := make(chan string, len(batch))
		resultCh := make(chan fetchResult, len(batch))

		var wg sync.WaitGroup
		for i := 0; i < len(batch); i++ {
			wg.Add(1)
			go func(workerID int) {
				defer wg.Done()
				p.fetchWorker(ctx, workerID, jobCh, resultCh, from, to)
			}(i)
		}

		for _, symbol := range batch {
			jobCh <- symbol
		}
		close(jobCh)

		wg.Wait()
		close(resultCh)
		for res := range resultCh {
			results[res.symbol] = res
		}
	}

	return results, nil
}

// fetchWorker processes symbols from jobCh until it is drained.
func (p *Pipeline) fetchWorker(ctx context.Context, workerID int, jobCh <-chan string, resultCh chan<- fetchResult, from, to time.Time) {
	for symbol := range jobCh {
		closes, err := p.fetchCloses(ctx, symbol, from, to)
		if err != nil {
			p.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Warn("Daily closes unavailable after retry, skipping symbol")
			resultCh <- fetchResult{symbol: symbol, unavailable: true}
			continue
		}

		quote, hasQuote := p.fetchQuote(ctx, symbol)
		resultCh <- fetchResult{
			symbol:   symbol,
			closes:   closes,
			quote:    quote,
			hasQuote: hasQuote,
		}
	}
}

// fetchCloses retries exactly once when the source reports a transport
// failure. "No data" is an empty slice and needs no retry.
func (p *Pipeline) fetchCloses(ctx context.Context, symbol string, from, to time.Time) ([]marketdata.DailyClose, error) {
	closes, err := p.source.FetchDailyCloses(ctx, symbol, from, to)
	if err != nil && errors.Is(err, marketdata.ErrSourceUnavailable) {
		p.logger.WithField("symbol", symbol).Debug("Retrying daily close fetch")
		closes, err = p.source.FetchDailyCloses(ctx, symbol, from, to)
	}
	return closes, err
}

// fetchQuote fetches the live quote with the same single retry. A quote
// failure never skips the symbol; the weekly table stands on its own.
func (p *Pipeline) fetchQuote(ctx context.Context, symbol string) (marketdata.LiveQuote, bool) {
	quote, err := p.source.FetchLiveQuote(ctx, symbol)
	if err != nil && errors.Is(err, marketdata.ErrSourceUnavailable) {
		quote, err = p.source.FetchLiveQuote(ctx, symbol)
	}
	if err != nil {
		p.logger.WithError(err).WithField("symbol", symbol).Warn("Live quote unavailable")
		return marketdata.LiveQuote{}, false
	}
	return quote, true
}

func (p *Pipeline) transition(state *State, to State) {
	*state = to
	p.logger.WithField("state", string(to)).Debug("Pipeline state changed")
}

// dedupeSymbols trims whitespace and drops empties and duplicates while
// preserving first-seen order.
func dedupeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

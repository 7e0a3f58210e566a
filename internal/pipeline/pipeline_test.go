package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"

	"github.com/jlindqvist/weektrack/internal/calendar"
	"github.com/jlindqvist/weektrack/internal/marketdata"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

// fakeSource is an in-memory PriceSource. failures[symbol] makes that many
// leading FetchDailyCloses calls fail with ErrSourceUnavailable.
type fakeSource struct {
	mu       sync.Mutex
	closes   map[string][]marketdata.DailyClose
	quotes   map[string]marketdata.LiveQuote
	failures map[string]int
	calls    map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		closes:   make(map[string][]marketdata.DailyClose),
		quotes:   make(map[string]marketdata.LiveQuote),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (f *fakeSource) FetchDailyCloses(_ context.Context, symbol string, _, _ time.Time) ([]marketdata.DailyClose, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[symbol]++
	if f.failures[symbol] > 0 {
		f.failures[symbol]--
		return nil, fmt.Errorf("fetch %s: %w", symbol, marketdata.ErrSourceUnavailable)
	}
	return f.closes[symbol], nil
}

func (f *fakeSource) FetchLiveQuote(_ context.Context, symbol string) (marketdata.LiveQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quotes[symbol], nil
}

var asOf = time.Date(2026, time.August, 21, 0, 0, 0, 0, time.UTC) // a Friday

// sixFridayCloses places one close on each of the six Fridays ending asOf.
func sixFridayCloses(values []float64) []marketdata.DailyClose {
	closes := make([]marketdata.DailyClose, len(values))
	for i, v := range values {
		closes[i] = marketdata.DailyClose{
			Date:  asOf.AddDate(0, 0, -7*(len(values)-1-i)),
			Close: v,
		}
	}
	return closes
}

func newTestPipeline(source marketdata.PriceSource) *Pipeline {
	return New(source, calendar.New(time.Friday), logger.NewNop())
}

func defaultOptions() Options {
	return Options{LookbackWeeks: 6, BatchSize: 2, AsOf: asOf}
}

func TestBuildScenario(t *testing.T) {
	source := newFakeSource()
	source.closes["AAA"] = sixFridayCloses([]float64{10, 11, 12, 11, 13, 14})
	source.quotes["AAA"] = marketdata.LiveQuote{
		Price:         null.FloatFrom(14),
		PreviousClose: null.FloatFrom(13),
	}
	// BBB exists but has no history at all.
	source.closes["BBB"] = nil

	p := newTestPipeline(source)
	result, err := p.Build(context.Background(), []string{"AAA", "BBB"}, defaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := result.Symbols(); len(got) != 1 || got[0] != "AAA" {
		t.Fatalf("Symbols = %v, want [AAA]", got)
	}

	wantNormalized := []float64{100, 110, 120, 110, 130, 140}
	row, ok := result.Normalized.Row("AAA")
	if !ok || len(row) != len(wantNormalized) {
		t.Fatalf("Normalized row missing or wrong width: %v", row)
	}
	for c, want := range wantNormalized {
		if !row[c].Valid || math.Abs(row[c].Float64-want) > 1e-9 {
			t.Errorf("Normalized[%d] = %v, want %v", c, row[c], want)
		}
	}

	dd := result.Drawdowns["AAA"]
	if !dd.Valid || math.Abs(dd.Float64-(-8.333333)) > 1e-5 {
		t.Errorf("Drawdown = %v, want about -8.33", dd)
	}

	if len(result.Skipped) != 1 || result.Skipped[0].Symbol != "BBB" ||
		result.Skipped[0].Reason != SkipInsufficientData {
		t.Errorf("Skipped = %v, want BBB insufficient_data", result.Skipped)
	}

	quote, ok := result.LiveQuotes["AAA"]
	if !ok {
		t.Fatal("Live quote for AAA missing")
	}
	if pct := quote.IntradayChangePct(); !pct.Valid || math.Abs(pct.Float64-7.692307) > 1e-5 {
		t.Errorf("Intraday change = %v, want about 7.69", pct)
	}

	if len(result.Labels) != 6 || result.Labels[5] != "2026-08-21" {
		t.Errorf("Labels = %v", result.Labels)
	}
}

func TestBuildBatchSizeInvariance(t *testing.T) {
	symbols := []string{"AAA", "BBB", "CCC", "DDD", "EEE"}
	values := [][]float64{
		{10, 11, 12, 11, 13, 14},
		{20, 21, 19, 22, 23, 25},
		{5, 5, 6, 6, 7, 7},
		{100, 90, 95, 92, 97, 99},
		{1, 2, 3, 4, 5, 6},
	}

	build := func(batchSize int) *BuildResult {
		source := newFakeSource()
		for i, s := range symbols {
			source.closes[s] = sixFridayCloses(values[i])
		}
		opts := defaultOptions()
		opts.BatchSize = batchSize

		result, err := newTestPipeline(source).Build(context.Background(), symbols, opts)
		if err != nil {
			t.Fatalf("Build(batch=%d) failed: %v", batchSize, err)
		}
		return result
	}

	one := build(1)
	all := build(len(symbols))

	if !reflect.DeepEqual(one.Prices, all.Prices) {
		t.Error("Price table differs between batch sizes")
	}
	if !reflect.DeepEqual(one.Normalized, all.Normalized) {
		t.Error("Normalized table differs between batch sizes")
	}
	if !reflect.DeepEqual(one.Scorecards, all.Scorecards) {
		t.Error("Scorecards differ between batch sizes")
	}
}

func TestBuildRowOrderFollowsInput(t *testing.T) {
	source := newFakeSource()
	for _, s := range []string{"ZZZ", "MMM", "AAA"} {
		source.closes[s] = sixFridayCloses([]float64{10, 11, 12, 11, 13, 14})
	}

	p := newTestPipeline(source)
	result, err := p.Build(context.Background(), []string{"ZZZ", "MMM", "AAA"}, defaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := result.Symbols(); !reflect.DeepEqual(got, []string{"ZZZ", "MMM", "AAA"}) {
		t.Errorf("Row order = %v, want input order", got)
	}
}

func TestBuildDeduplicatesAndTrims(t *testing.T) {
	source := newFakeSource()
	source.closes["AAA"] = sixFridayCloses([]float64{10, 11, 12, 11, 13, 14})

	p := newTestPipeline(source)
	result, err := p.Build(context.Background(), []string{" AAA ", "AAA", "", "AAA"}, defaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if result.Prices.Rows() != 1 {
		t.Errorf("Expected 1 row after dedupe, got %d", result.Prices.Rows())
	}
	if source.calls["AAA"] != 1 {
		t.Errorf("AAA fetched %d times, want 1", source.calls["AAA"])
	}
}

func TestBuildRetriesSourceUnavailableOnce(t *testing.T) {
	source := newFakeSource()
	source.closes["AAA"] = sixFridayCloses([]float64{10, 11, 12, 11, 13, 14})
	source.failures["AAA"] = 1

	p := newTestPipeline(source)
	result, err := p.Build(context.Background(), []string{"AAA"}, defaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if result.Prices.Rows() != 1 {
		t.Fatalf("AAA should survive after one retry, rows=%d", result.Prices.Rows())
	}
	if source.calls["AAA"] != 2 {
		t.Errorf("AAA fetched %d times, want 2", source.calls["AAA"])
	}
}

func TestBuildSkipsAfterSecondFailure(t *testing.T) {
	source := newFakeSource()
	source.closes["AAA"] = sixFridayCloses([]float64{10, 11, 12, 11, 13, 14})
	source.closes["BAD"] = sixFridayCloses([]float64{10, 11, 12, 11, 13, 14})
	source.failures["BAD"] = 2

	p := newTestPipeline(source)
	result, err := p.Build(context.Background(), []string{"AAA", "BAD"}, defaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Symbol != "BAD" ||
		result.Skipped[0].Reason != SkipSourceUnavailable {
		t.Errorf("Skipped = %v, want BAD source_unavailable", result.Skipped)
	}
	if source.calls["BAD"] != 2 {
		t.Errorf("BAD fetched %d times, want 2 (one retry)", source.calls["BAD"])
	}
}

func TestBuildNoDataAvailable(t *testing.T) {
	source := newFakeSource()
	p := newTestPipeline(source)

	_, err := p.Build(context.Background(), []string{"AAA", "BBB"}, defaultOptions())
	if err != ErrNoDataAvailable {
		t.Errorf("err = %v, want ErrNoDataAvailable", err)
	}
}

func TestBuildEmptySymbolList(t *testing.T) {
	p := newTestPipeline(newFakeSource())
	_, err := p.Build(context.Background(), []string{"", "  "}, defaultOptions())
	if err != ErrNoDataAvailable {
		t.Errorf("err = %v, want ErrNoDataAvailable", err)
	}
}

func TestBuildValidatesOptions(t *testing.T) {
	p := newTestPipeline(newFakeSource())

	tests := []struct {
		name string
		opts Options
	}{
		{name: "zero lookback", opts: Options{LookbackWeeks: 0, BatchSize: 1}},
		{name: "excessive lookback", opts: Options{LookbackWeeks: 521, BatchSize: 1}},
		{name: "zero batch", opts: Options{LookbackWeeks: 26, BatchSize: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Build(context.Background(), []string{"AAA"}, tt.opts)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("err = %v, want *ConfigError", err)
			}
		})
	}
}

func TestBuildCancelledContext(t *testing.T) {
	source := newFakeSource()
	source.closes["AAA"] = sixFridayCloses([]float64{10, 11, 12, 11, 13, 14})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(source)
	result, err := p.Build(ctx, []string{"AAA"}, defaultOptions())
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if result != nil {
		t.Error("No partial result may escape a cancelled build")
	}
}

func TestSkippedSummaryCapsSample(t *testing.T) {
	result := &BuildResult{}
	for i := 0; i < 12; i++ {
		result.Skipped = append(result.Skipped, SkippedSymbol{
			Symbol: fmt.Sprintf("S%02d", i),
			Reason: SkipInsufficientData,
		})
	}

	summary := result.SkippedSummary()
	if summary == "" {
		t.Fatal("Expected non-empty summary")
	}
	if !strings.HasPrefix(summary, "12 symbol(s) skipped") {
		t.Errorf("Summary = %q, want count prefix", summary)
	}
	if !strings.Contains(summary, "and 2 more") {
		t.Errorf("Summary should cap the sample at 10: %q", summary)
	}
	if strings.Contains(summary, "S10") {
		t.Errorf("Summary names more than 10 symbols: %q", summary)
	}
}

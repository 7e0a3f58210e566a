package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/guregu/null/v6"

	"github.com/jlindqvist/weektrack/internal/marketdata"
	"github.com/jlindqvist/weektrack/internal/metrics"
	"github.com/jlindqvist/weektrack/internal/pipeline"
	"github.com/jlindqvist/weektrack/internal/pricetable"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

// Writer renders a BuildResult's tables as CSV files in one directory.
type Writer struct {
	dir    string
	logger *logger.Logger
}

// NewWriter creates a Writer targeting dir, which is created if missing.
func NewWriter(dir string, log *logger.Logger) *Writer {
	return &Writer{
		dir:    dir,
		logger: log.WithField("module", "export"),
	}
}

// WriteAll writes every table of the result and returns the created paths.
func (w *Writer) WriteAll(result *pipeline.BuildResult) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"prices.csv", func(out io.Writer) error { return MatrixCSV(out, result.Prices) }},
		{"percent_change.csv", func(out io.Writer) error { return MatrixCSV(out, result.PercentChange) }},
		{"normalized.csv", func(out io.Writer) error { return MatrixCSV(out, result.Normalized) }},
		{"live_quotes.csv", func(out io.Writer) error { return QuotesCSV(out, result.LiveQuotes) }},
		{"scorecard.csv", func(out io.Writer) error {
			return ScorecardCSV(out, result.Scorecards, result.Drawdowns)
		}},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(w.dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}

	w.logger.WithFields(map[string]interface{}{
		"dir":   w.dir,
		"files": len(paths),
	}).Info("Exported build result")
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// MatrixCSV writes one aligned table: a Symbol column followed by one
// column per week-ending date. Absent cells stay empty.
func MatrixCSV(out io.Writer, m *pricetable.Matrix) error {
	cw := csv.NewWriter(out)

	header := append([]string{"Symbol"}, m.Labels()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for r, symbol := range m.Symbols {
		record := make([]string, 0, m.Cols()+1)
		record = append(record, symbol)
		for c := 0; c < m.Cols(); c++ {
			record = append(record, formatCell(m.At(r, c)))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// QuotesCSV writes the live quote snapshot, symbols sorted for stable
// output.
func QuotesCSV(out io.Writer, quotes map[string]marketdata.LiveQuote) error {
	cw := csv.NewWriter(out)
	if err := cw.Write([]string{"Symbol", "Price", "PreviousClose", "IntradayChangePct"}); err != nil {
		return err
	}

	symbols := make([]string, 0, len(quotes))
	for s := range quotes {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		q := quotes[symbol]
		record := []string{
			symbol,
			formatCell(q.Price),
			formatCell(q.PreviousClose),
			formatCell(q.IntradayChangePct()),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ScorecardCSV writes the per-symbol scorecard joined with drawdowns and
// any metadata attributes. Metadata columns are the sorted union of
// attribute names across all cards.
func ScorecardCSV(out io.Writer, cards []metrics.Scorecard, drawdowns map[string]null.Float) error {
	cw := csv.NewWriter(out)

	metaCols := metadataColumns(cards)
	header := []string{"Symbol", "Momentum", "Volatility", "Trend", "TotalReturnPct", "AllAround", "MaxDrawdownPct"}
	header = append(header, metaCols...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, card := range cards {
		record := []string{
			card.Symbol,
			formatFloat(card.Momentum),
			formatFloat(card.Volatility),
			strconv.Itoa(card.Trend),
			formatFloat(card.TotalReturnPct),
			formatFloat(card.AllAround),
			formatCell(drawdowns[card.Symbol]),
		}
		for _, col := range metaCols {
			record = append(record, card.Metadata[col])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func metadataColumns(cards []metrics.Scorecard) []string {
	set := make(map[string]struct{})
	for _, card := range cards {
		for name := range card.Metadata {
			set[name] = struct{}{}
		}
	}
	cols := make([]string, 0, len(set))
	for name := range set {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}

func formatCell(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Float64)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

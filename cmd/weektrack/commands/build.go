package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlindqvist/weektrack/internal/calendar"
	"github.com/jlindqvist/weektrack/internal/export"
	"github.com/jlindqvist/weektrack/internal/marketdata"
	"github.com/jlindqvist/weektrack/internal/marketdata/cached"
	"github.com/jlindqvist/weektrack/internal/marketdata/yahoo"
	"github.com/jlindqvist/weektrack/internal/pipeline"
	"github.com/jlindqvist/weektrack/internal/symbols"
	"github.com/jlindqvist/weektrack/pkg/config"
	"github.com/jlindqvist/weektrack/pkg/database"
	"github.com/jlindqvist/weektrack/pkg/httputil"
	"github.com/jlindqvist/weektrack/pkg/logger"
	"github.com/jlindqvist/weektrack/pkg/redis"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a weekly price table once",
	Long: `Fetches daily closes for the requested symbols, buckets them into
week-ending columns and prints the derived analytics.

Symbols come from exactly one of --symbols, --file or --list.

Examples:
  weektrack build --symbols "AAPL, MSFT, GOOG"
  weektrack build --file watchlist.txt --weeks 13 --top 5
  weektrack build --list mylist --out ./exports`,
	RunE: runBuild,
}

var (
	buildSymbols string
	buildFile    string
	buildList    string
	buildWeeks   int
	buildBatch   int
	buildTop     int
	buildOut     string
	buildScrape  bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildSymbols, "symbols", "", "symbols as free-form text (comma/space separated)")
	buildCmd.Flags().StringVar(&buildFile, "file", "", "path to a symbol list file")
	buildCmd.Flags().StringVar(&buildList, "list", "", "named watchlist stored in the database")
	buildCmd.Flags().IntVar(&buildWeeks, "weeks", 0, "lookback window in weeks (default from config)")
	buildCmd.Flags().IntVar(&buildBatch, "batch", 0, "concurrent fetch batch size (default from config)")
	buildCmd.Flags().IntVar(&buildTop, "top", 0, "limit the ranked symbol list to N entries")
	buildCmd.Flags().StringVar(&buildOut, "out", "", "directory to export CSV tables into")
	buildCmd.Flags().BoolVar(&buildScrape, "scrape-meta", false, "scrape sector/industry metadata for the scorecard")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	ctx := cmd.Context()

	provider, repo, cleanup, err := resolveProvider(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	list, err := provider.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("resolve symbols: %w", err)
	}

	source, closeSource, err := newPriceSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	opts := pipeline.Options{
		LookbackWeeks: buildWeeks,
		BatchSize:     buildBatch,
		TopN:          buildTop,
	}
	if opts.LookbackWeeks == 0 {
		opts.LookbackWeeks = cfg.Pipeline.LookbackWeeks
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = cfg.Pipeline.BatchSize
	}
	if buildScrape {
		scraper := symbols.NewScraper(httputil.New(log, cfg.Yahoo.Timeout), log)
		opts.Metadata = scraper.FetchAll(ctx, list)
		if repo != nil {
			for symbol, attrs := range opts.Metadata {
				if err := repo.UpsertMetadata(ctx, symbol, attrs); err != nil {
					log.WithError(err).WithField("symbol", symbol).Warn("Failed to persist scraped metadata")
				}
			}
		}
	}

	cal := calendar.New(cfg.Pipeline.AnchorWeekday)
	pipe := pipeline.New(source, cal, log)
	started := time.Now()
	result, err := pipe.Build(ctx, list, opts)
	if err != nil {
		return fmt.Errorf("build table: %w", err)
	}

	printResult(result, cal.Anchor(), time.Since(started))

	if buildOut != "" {
		paths, err := export.NewWriter(buildOut, log).WriteAll(result)
		if err != nil {
			return fmt.Errorf("export tables: %w", err)
		}
		fmt.Printf("\nExported %d files to %s\n", len(paths), buildOut)
	}

	return nil
}

// resolveProvider picks the symbol source from the mutually exclusive
// --symbols/--file/--list flags. The repository is non-nil only for --list,
// which is the only mode with a database connection.
func resolveProvider(cfg *config.Config, log *logger.Logger) (symbols.Provider, *symbols.Repository, func(), error) {
	set := 0
	for _, v := range []string{buildSymbols, buildFile, buildList} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, nil, nil, fmt.Errorf("exactly one of --symbols, --file or --list is required")
	}

	switch {
	case buildSymbols != "":
		return symbols.FromText(buildSymbols), nil, func() {}, nil
	case buildFile != "":
		return symbols.FileProvider{Path: buildFile}, nil, func() {}, nil
	default:
		db, err := database.New(cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		repo := symbols.NewRepository(db.Pool, log)
		return symbols.ListProvider{Repo: repo, Name: buildList}, repo, db.Close, nil
	}
}

// newPriceSource builds the Yahoo chart client, wrapped in the Redis
// cache-aside decorator when a cache is configured.
func newPriceSource(cfg *config.Config, log *logger.Logger) (marketdata.PriceSource, func(), error) {
	client := yahoo.NewClient(cfg, log)
	if !cfg.Redis.Enabled {
		return client, func() {}, nil
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(rdb, "weektrack")
	source := cached.New(client, cache, cfg.Yahoo.CacheTTL, log)
	return source, func() { rdb.Close() }, nil
}

func printResult(result *pipeline.BuildResult, anchor time.Weekday, took time.Duration) {
	fmt.Printf("Built %d symbol(s) x %d week(s) in %s\n",
		len(result.Symbols()), len(result.Labels), took.Round(time.Millisecond))
	fmt.Printf("Window: %s .. %s (weeks ending %s)\n",
		result.Labels[0], result.Labels[len(result.Labels)-1], anchor)

	if summary := result.SkippedSummary(); summary != "" {
		fmt.Println(summary)
	}

	if len(result.TopSymbols) > 0 {
		fmt.Printf("Ranking: %s\n", strings.Join(result.TopSymbols, ", "))
	}

	fmt.Println("\nScorecard:")
	for _, card := range result.Scorecards {
		dd := result.Drawdowns[card.Symbol]
		drawdown := "n/a"
		if dd.Valid {
			drawdown = fmt.Sprintf("%.2f%%", dd.Float64)
		}
		fmt.Printf("  %-8s momentum %8.2f  volatility %8.2f  trend %2d  return %8.2f%%  drawdown %s\n",
			card.Symbol, card.Momentum, card.Volatility, card.Trend, card.TotalReturnPct, drawdown)
	}
}

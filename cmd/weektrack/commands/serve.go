package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlindqvist/weektrack/internal/api"
	"github.com/jlindqvist/weektrack/internal/api/handlers"
	"github.com/jlindqvist/weektrack/internal/calendar"
	"github.com/jlindqvist/weektrack/internal/pipeline"
	"github.com/jlindqvist/weektrack/internal/scheduler"
	"github.com/jlindqvist/weektrack/internal/scheduler/jobs"
	"github.com/jlindqvist/weektrack/internal/symbols"
	"github.com/jlindqvist/weektrack/pkg/config"
	"github.com/jlindqvist/weektrack/pkg/database"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the REST API server, optionally with the cron scheduler that
rebuilds a configured watchlist periodically.

Endpoints:
  GET  /health              - Health check
  POST /api/build           - Run a table build
  GET  /api/latest          - Latest build result
  GET  /api/latest/rank     - Re-rank the latest build
  GET  /api/lists           - Watchlist names (needs database)
  GET  /api/lists/{name}    - Watchlist symbols (needs database)
  PUT  /api/lists/{name}    - Replace a watchlist (needs database)
  GET  /api/jobs            - Scheduled job statistics (needs scheduler)
  POST /api/jobs/{name}/run - Trigger a job now (needs scheduler)

Example:
  weektrack serve
  weektrack serve --port 8090`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	source, closeSource, err := newPriceSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	pipe := pipeline.New(source, calendar.New(cfg.Pipeline.AnchorWeekday), log)
	store := pipeline.NewStore()

	// Watchlists and metadata need Postgres; without it the API still
	// serves ad-hoc builds.
	var repo *symbols.Repository
	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		repo = symbols.NewRepository(db.Pool, log)
		log.Info("Connected to database")
	}

	var metadata handlers.MetadataFunc
	if repo != nil {
		metadata = func(ctx context.Context, list []string) map[string]map[string]string {
			m, err := repo.GetMetadata(ctx, list)
			if err != nil {
				log.WithError(err).Warn("Metadata lookup failed")
				return nil
			}
			return m
		}
	}

	var sched *scheduler.Scheduler
	if cfg.Schedule.Enabled {
		if repo == nil {
			return fmt.Errorf("scheduled rebuilds need a database for the %q watchlist", cfg.Schedule.List)
		}
		sched = scheduler.New(log)
		job := jobs.NewRebuildJob(
			symbols.ListProvider{Repo: repo, Name: cfg.Schedule.List},
			pipe,
			store,
			pipeline.Options{
				LookbackWeeks: cfg.Pipeline.LookbackWeeks,
				BatchSize:     cfg.Pipeline.BatchSize,
			},
			cfg.Schedule.CronSpec,
			log,
		)
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("schedule rebuild job: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	buildHandler := handlers.NewBuildHandler(pipe, store, cfg.Pipeline, metadata, log)
	var listsHandler *handlers.ListsHandler
	if repo != nil {
		listsHandler = handlers.NewListsHandler(repo, log)
	}
	var jobsHandler *handlers.JobsHandler
	if sched != nil {
		jobsHandler = handlers.NewJobsHandler(sched, log)
	}
	router := api.NewRouter(buildHandler, listsHandler, jobsHandler, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jlindqvist/weektrack/internal/pipeline"
	"github.com/jlindqvist/weektrack/internal/symbols"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

// rebuildTimeout bounds one scheduled rebuild end to end.
const rebuildTimeout = 10 * time.Minute

// RebuildJob rebuilds the weekly price table for a symbol provider on a
// cron schedule and publishes the result to the shared store.
type RebuildJob struct {
	provider symbols.Provider
	pipe     *pipeline.Pipeline
	store    *pipeline.Store
	opts     pipeline.Options
	schedule string
	logger   *logger.Logger
}

// NewRebuildJob creates a rebuild job.
func NewRebuildJob(
	provider symbols.Provider,
	pipe *pipeline.Pipeline,
	store *pipeline.Store,
	opts pipeline.Options,
	schedule string,
	log *logger.Logger,
) *RebuildJob {
	return &RebuildJob{
		provider: provider,
		pipe:     pipe,
		store:    store,
		opts:     opts,
		schedule: schedule,
		logger:   log.WithField("job", "rebuild"),
	}
}

// Name returns the job name.
func (j *RebuildJob) Name() string {
	return "table_rebuild"
}

// Schedule returns the cron expression.
func (j *RebuildJob) Schedule() string {
	return j.schedule
}

// Run rebuilds the table and stores the fresh result.
func (j *RebuildJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, rebuildTimeout)
	defer cancel()

	list, err := j.provider.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("load symbol list: %w", err)
	}

	result, err := j.pipe.Build(ctx, list, j.opts)
	if err != nil {
		return fmt.Errorf("rebuild table: %w", err)
	}

	j.store.Set(result)

	if summary := result.SkippedSummary(); summary != "" {
		j.logger.Warn(summary)
	}
	j.logger.WithFields(map[string]interface{}{
		"symbols": len(result.Symbols()),
		"weeks":   len(result.Labels),
	}).Info("Scheduled rebuild published")

	return nil
}

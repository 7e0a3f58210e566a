package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jlindqvist/weektrack/internal/scheduler"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

// JobRunner is the scheduler surface the API needs.
type JobRunner interface {
	GetJobStats() map[string]scheduler.JobStats
	RunJob(jobName string) error
}

// JobsHandler exposes scheduled job statistics and manual triggering.
type JobsHandler struct {
	sched  JobRunner
	logger *logger.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(sched JobRunner, log *logger.Logger) *JobsHandler {
	return &JobsHandler{
		sched:  sched,
		logger: log,
	}
}

// Stats returns run statistics for every registered job.
// GET /api/jobs
func (h *JobsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.sched.GetJobStats())
}

// Run triggers a job immediately, outside its schedule.
// POST /api/jobs/{name}/run
func (h *JobsHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := h.sched.RunJob(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.logger.WithField("job", name).Info("Job triggered via API")
	respondJSON(w, http.StatusAccepted, map[string]string{"job": name, "status": "triggered"})
}

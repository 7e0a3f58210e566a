package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jlindqvist/weektrack/internal/metrics"
	"github.com/jlindqvist/weektrack/internal/pipeline"
	"github.com/jlindqvist/weektrack/internal/symbols"
	"github.com/jlindqvist/weektrack/pkg/config"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

// MetadataFunc supplies scorecard metadata for the requested symbols.
// Optional; nil means no metadata join.
type MetadataFunc func(ctx context.Context, symbols []string) map[string]map[string]string

// BuildHandler serves table builds and the latest build result.
type BuildHandler struct {
	pipe     *pipeline.Pipeline
	store    *pipeline.Store
	engine   *metrics.Engine
	defaults config.PipelineConfig
	metadata MetadataFunc
	logger   *logger.Logger
}

// NewBuildHandler creates a new build handler.
func NewBuildHandler(
	pipe *pipeline.Pipeline,
	store *pipeline.Store,
	defaults config.PipelineConfig,
	metadata MetadataFunc,
	log *logger.Logger,
) *BuildHandler {
	return &BuildHandler{
		pipe:     pipe,
		store:    store,
		engine:   metrics.NewEngine(log),
		defaults: defaults,
		metadata: metadata,
		logger:   log,
	}
}

// BuildRequest represents a table build request. Either Symbols or Text
// must carry at least one symbol.
type BuildRequest struct {
	Symbols   []string `json:"symbols"`
	Text      string   `json:"text"`
	Weeks     int      `json:"weeks"`
	BatchSize int      `json:"batch_size"`
	TopN      int      `json:"top_n"`
}

// Build runs one pipeline invocation and stores the result.
// POST /api/build
func (h *BuildHandler) Build(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	list := req.Symbols
	if len(list) == 0 {
		list = symbols.ParseSymbols(req.Text)
	}

	opts := pipeline.Options{
		LookbackWeeks: req.Weeks,
		BatchSize:     req.BatchSize,
		TopN:          req.TopN,
	}
	if opts.LookbackWeeks == 0 {
		opts.LookbackWeeks = h.defaults.LookbackWeeks
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = h.defaults.BatchSize
	}
	if h.metadata != nil {
		opts.Metadata = h.metadata(ctx, list)
	}

	result, err := h.pipe.Build(ctx, list, opts)
	if err != nil {
		var cfgErr *pipeline.ConfigError
		switch {
		case errors.As(err, &cfgErr):
			respondError(w, http.StatusBadRequest, cfgErr.Error())
		case errors.Is(err, pipeline.ErrNoDataAvailable):
			respondError(w, http.StatusUnprocessableEntity, "No data available for any requested symbol")
		default:
			h.logger.WithError(err).Error("Build failed")
			respondError(w, http.StatusInternalServerError, "Build failed")
		}
		return
	}

	h.store.Set(result)
	respondJSON(w, http.StatusOK, result)
}

// Latest returns the most recent build result.
// GET /api/latest
func (h *BuildHandler) Latest(w http.ResponseWriter, r *http.Request) {
	result, ok := h.store.Latest()
	if !ok {
		respondError(w, http.StatusNotFound, "No build available yet")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Rank re-derives the top-N ranking from the latest build without
// refetching prices.
// GET /api/latest/rank?top=N
func (h *BuildHandler) Rank(w http.ResponseWriter, r *http.Request) {
	result, ok := h.store.Latest()
	if !ok {
		respondError(w, http.StatusNotFound, "No build available yet")
		return
	}

	top := 0
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "Invalid top parameter")
			return
		}
		top = n
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"top":     top,
		"symbols": h.engine.Rank(result.Normalized, top),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

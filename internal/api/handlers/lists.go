package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jlindqvist/weektrack/internal/symbols"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

// ListStore is the watchlist persistence surface the API needs.
type ListStore interface {
	GetList(ctx context.Context, name string) ([]string, error)
	SaveList(ctx context.Context, name string, symbols []string) error
	ListNames(ctx context.Context) ([]string, error)
}

// ListsHandler manages named watchlists.
type ListsHandler struct {
	store  ListStore
	logger *logger.Logger
}

// NewListsHandler creates a new watchlist handler.
func NewListsHandler(store ListStore, log *logger.Logger) *ListsHandler {
	return &ListsHandler{
		store:  store,
		logger: log,
	}
}

// Names returns all stored watchlist names.
// GET /api/lists
func (h *ListsHandler) Names(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListNames(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list watchlists")
		respondError(w, http.StatusInternalServerError, "Failed to list watchlists")
		return
	}
	if names == nil {
		names = []string{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"lists": names})
}

// Get returns the symbols of one watchlist in stored order.
// GET /api/lists/{name}
func (h *ListsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	list, err := h.store.GetList(r.Context(), name)
	if err != nil {
		h.logger.WithError(err).WithField("list", name).Error("Failed to load watchlist")
		respondError(w, http.StatusInternalServerError, "Failed to load watchlist")
		return
	}
	if len(list) == 0 {
		respondError(w, http.StatusNotFound, "Watchlist not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"name": name, "symbols": list})
}

// SaveListRequest represents a watchlist save request. Either Symbols or
// Text must carry at least one symbol.
type SaveListRequest struct {
	Symbols []string `json:"symbols"`
	Text    string   `json:"text"`
}

// Save replaces a watchlist with the submitted symbols.
// PUT /api/lists/{name}
func (h *ListsHandler) Save(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req SaveListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	list := req.Symbols
	if len(list) == 0 {
		list = symbols.ParseSymbols(req.Text)
	}
	if len(list) == 0 {
		respondError(w, http.StatusBadRequest, "At least one symbol is required")
		return
	}

	if err := h.store.SaveList(r.Context(), name, list); err != nil {
		h.logger.WithError(err).WithField("list", name).Error("Failed to save watchlist")
		respondError(w, http.StatusInternalServerError, "Failed to save watchlist")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"name": name, "symbols": list})
}

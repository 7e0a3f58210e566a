package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jlindqvist/weektrack/internal/api/handlers"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

// NewRouter creates and configures the HTTP router. The lists and jobs
// handlers are optional; nil leaves their routes unregistered (no database
// or no scheduler).
func NewRouter(buildHandler *handlers.BuildHandler, listsHandler *handlers.ListsHandler, jobsHandler *handlers.JobsHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/build", buildHandler.Build).Methods("POST")
	api.HandleFunc("/latest", buildHandler.Latest).Methods("GET")
	api.HandleFunc("/latest/rank", buildHandler.Rank).Methods("GET")

	if listsHandler != nil {
		api.HandleFunc("/lists", listsHandler.Names).Methods("GET")
		api.HandleFunc("/lists/{name}", listsHandler.Get).Methods("GET")
		api.HandleFunc("/lists/{name}", listsHandler.Save).Methods("PUT")
	}

	if jobsHandler != nil {
		api.HandleFunc("/jobs", jobsHandler.Stats).Methods("GET")
		api.HandleFunc("/jobs/{name}/run", jobsHandler.Run).Methods("POST")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "weektrack-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

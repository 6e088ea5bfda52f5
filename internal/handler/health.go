package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/omi/internal/repository"
)

// pingTimeout bounds the database check so a stuck pool cannot hang the
// platform's health probe.
const pingTimeout = time.Second

// HealthHandler serves the liveness endpoints and the root banner.
type HealthHandler struct {
	db      repository.Pinger
	env     string
	version string
	started time.Time
	logger  *slog.Logger
}

func NewHealthHandler(db repository.Pinger, env, version string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		env:     env,
		version: version,
		started: time.Now(),
		logger:  logger,
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Env       string `json:"env"`
	Version   string `json:"version"`
	Uptime    int64  `json:"uptime"` // seconds
	Database  string `json:"database"`
}

// HandleHealth reports process and database state.
//
// HTTP: GET /health, GET /api/health
//
// The status code is always 200 so a liveness probe does not restart the
// process while the database is briefly away; a failed ping shows up as
// status ERROR and database "disconnected" in the body.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "OK",
		Message:   "OMI API is running",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Env:       h.env,
		Version:   h.version,
		Uptime:    int64(time.Since(h.started).Seconds()),
		Database:  "connected",
	}

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check: database unreachable", slog.String("error", err.Error()))
		resp.Status = "ERROR"
		resp.Message = "Database unreachable"
		resp.Database = "disconnected"
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, http.StatusOK, resp)
}

// HandleRoot is the service banner at GET /.
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "OMI API Server",
		"status":    "running",
		"health":    "/api/health",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// NotFound answers unknown routes with the standard error body.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Route not found"})
}

// MethodNotAllowed answers a known path requested with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method_not_allowed", Message: "Method not allowed"})
}

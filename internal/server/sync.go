package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/workflow"
)

// SyncHandler exposes workflow submission and status over HTTP. Implements
// the [Handler] interface for registration with a [Router].
type SyncHandler struct {
	backend workflow.Backend
	logger  *log.Logger
}

// NewSyncHandler creates a handler over the given execution backend.
func NewSyncHandler(backend workflow.Backend, logger *log.Logger) *SyncHandler {
	return &SyncHandler{backend: backend, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *SyncHandler) Routes() []string {
	return []string{
		"POST /api/v1/sync",
		"GET /api/v1/sync/{id}",
	}
}

// ServeHTTP dispatches to submit or status by method.
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.submit(w, r)
	case http.MethodGet:
		h.status(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// submit validates the request body and starts a workflow, responding 202
// with the workflow id before the pipeline completes.
func (h *SyncHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req models.SongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.backend.Submit(r.Context(), req)
	if err != nil {
		h.logger.Error("submission failed", "song", req.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start workflow")
		return
	}

	writeJSON(w, http.StatusAccepted, models.SubmitResponse{
		WorkflowID: id,
		Status:     "accepted",
		Message:    fmt.Sprintf("Sync started for %s", req),
		StatusURL:  "/api/v1/sync/" + id,
	})
}

// status reports the current state of a workflow.
func (h *SyncHandler) status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing workflow id")
		return
	}

	status, err := h.backend.Status(r.Context(), id)
	if err != nil {
		h.logger.Error("status lookup failed", "workflow_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query workflow")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// validate enforces the submission boundary: required fields present,
// threshold inside [0,1].
func validate(req models.SongRequest) error {
	var missing []string
	if strings.TrimSpace(req.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(req.Artist) == "" {
		missing = append(missing, "artist")
	}
	if strings.TrimSpace(req.PlaylistID) == "" {
		missing = append(missing, "playlist_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	if req.Threshold < 0 || req.Threshold > 1 {
		return fmt.Errorf("match_threshold must be between 0 and 1, got %g", req.Threshold)
	}

	return nil
}

// HealthHandler reports service liveness.
type HealthHandler struct{}

func (HealthHandler) Routes() []string {
	return []string{"GET /health"}
}

func (HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

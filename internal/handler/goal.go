package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sakif/omi/internal/model"
	"github.com/sakif/omi/internal/service"
)

// GoalHandler exposes CRUD over the caller's goals.
type GoalHandler struct {
	svc      *service.GoalService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewGoalHandler(svc *service.GoalService, logger *slog.Logger) *GoalHandler {
	return &GoalHandler{
		svc:      svc,
		validate: newValidator(),
		logger:   logger,
	}
}

type goalRequest struct {
	Title       string  `json:"title"       validate:"max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Status      string  `json:"status"      validate:"omitempty,oneof=active paused completed"`
}

// HTTP: POST /api/goals
func (h *GoalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, validationError(err))
		return
	}

	goal, err := h.svc.Create(r.Context(), userID, model.Goal{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

// HTTP: GET /api/goals?status=active&orderBy=title
func (h *GoalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	q := r.URL.Query()
	goals, err := h.svc.List(r.Context(), userID, model.GoalFilter{Status: q.Get("status")}, q.Get("orderBy"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

// HTTP: GET /api/goals/{id}
func (h *GoalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	goal, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// HTTP: PUT /api/goals/{id}
func (h *GoalHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var patch model.GoalPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	goal, err := h.svc.Update(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// HTTP: DELETE /api/goals/{id}
func (h *GoalHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sakif/omi/internal/model"
	"github.com/sakif/omi/internal/service"
)

// ThoughtHandler exposes CRUD over the caller's thoughts. Every call is
// scoped to the authenticated user; another user's id behaves like a
// missing one.
type ThoughtHandler struct {
	svc      *service.ThoughtService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewThoughtHandler(svc *service.ThoughtService, logger *slog.Logger) *ThoughtHandler {
	return &ThoughtHandler{
		svc:      svc,
		validate: newValidator(),
		logger:   logger,
	}
}

// thoughtRequest is the create body. Server-owned fields (id, user_id,
// timestamps) are not part of it.
type thoughtRequest struct {
	Transcription  *string           `json:"transcription"`
	ProcessedText  string            `json:"processed_text"`
	Category       string            `json:"category"     validate:"max=50"`
	SubCategory    *string           `json:"sub_category" validate:"omitempty,max=50"`
	MoodScore      *float64          `json:"mood_score"   validate:"omitempty,gte=-1,lte=1"`
	Priority       string            `json:"priority"     validate:"omitempty,oneof=low medium high"`
	Tags           model.Tags        `json:"tags"`
	ActionSteps    model.ActionSteps `json:"action_steps"`
	Status         string            `json:"status"       validate:"omitempty,oneof=pending memory_banked actioned"`
	TaskStatus     *string           `json:"task_status"  validate:"omitempty,oneof=not_started in_progress on_hold completed"`
	RequiresTriage bool              `json:"requires_triage"`
}

func (req thoughtRequest) toModel() model.Thought {
	return model.Thought{
		Transcription:  req.Transcription,
		ProcessedText:  req.ProcessedText,
		Category:       req.Category,
		SubCategory:    req.SubCategory,
		MoodScore:      req.MoodScore,
		Priority:       req.Priority,
		Tags:           req.Tags,
		ActionSteps:    req.ActionSteps,
		Status:         req.Status,
		TaskStatus:     req.TaskStatus,
		RequiresTriage: req.RequiresTriage,
	}
}

// HandleCreate stores a manually entered thought.
//
// HTTP: POST /api/thoughts
func (h *ThoughtHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req thoughtRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, validationError(err))
		return
	}

	thought, err := h.svc.Create(r.Context(), userID, req.toModel())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, thought)
}

// HandleList returns the caller's thoughts.
//
// HTTP: GET /api/thoughts?status=pending&category=task&orderBy=-created_date
//
// Filters are exact matches; unknown orderBy columns are a 400.
func (h *ThoughtHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := model.ThoughtFilter{
		Status:     q.Get("status"),
		Category:   q.Get("category"),
		Priority:   q.Get("priority"),
		TaskStatus: q.Get("task_status"),
	}

	thoughts, err := h.svc.List(r.Context(), userID, filter, q.Get("orderBy"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, thoughts)
}

// HandleGet returns one thought.
//
// HTTP: GET /api/thoughts/{id}
func (h *ThoughtHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	thought, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, thought)
}

// HandleUpdate applies a partial update. Only the fields present in the body
// are written; explicit nulls clear nullable columns.
//
// HTTP: PUT /api/thoughts/{id}
func (h *ThoughtHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var patch model.ThoughtPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	thought, err := h.svc.Update(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, thought)
}

// HandleDelete removes a thought and answers 204.
//
// HTTP: DELETE /api/thoughts/{id}
func (h *ThoughtHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/omi/internal/apperror"
	"github.com/sakif/omi/internal/service"
)

// MaxAudioBytes caps a transcription upload. It matches the provider's own
// file limit.
const MaxAudioBytes = 25 << 20

// AIHandler fronts the language-model features. All routes require auth and
// sit behind the per-user rate limiter.
type AIHandler struct {
	svc      *service.AIService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAIHandler(svc *service.AIService, logger *slog.Logger) *AIHandler {
	return &AIHandler{
		svc:      svc,
		validate: newValidator(),
		logger:   logger,
	}
}

type invokeRequest struct {
	Prompt string          `json:"prompt"`
	Schema json.RawMessage `json:"response_json_schema"`
	Model  string          `json:"model" validate:"max=100"`
}

type imageRequest struct {
	Prompt  string `json:"prompt"  validate:"max=4000"`
	Size    string `json:"size"    validate:"omitempty,oneof=1024x1024 1792x1024 1024x1792"`
	Quality string `json:"quality" validate:"omitempty,oneof=standard hd"`
}

type textRequest struct {
	Text string `json:"text"`
}

type captureRequest struct {
	Text          string  `json:"text"`
	Transcription *string `json:"transcription"`
}

// HandleInvokeLLM sends a raw prompt to the model.
//
// HTTP: POST /api/ai/invoke-llm
// REQUEST BODY: {"prompt": "...", "response_json_schema": {...}, "model": "gpt-4o"}
//
// Without a schema the response body is the reply as a JSON string. With one
// it is the JSON document the model produced.
func (h *AIHandler) HandleInvokeLLM(w http.ResponseWriter, r *http.Request) {
	var req invokeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, validationError(err))
		return
	}

	// "response_json_schema": null means no schema.
	schema := req.Schema
	if bytes.Equal(bytes.TrimSpace(schema), []byte("null")) {
		schema = nil
	}

	result, err := h.svc.InvokeLLM(r.Context(), req.Prompt, schema, req.Model)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleTranscribe converts an uploaded recording to text.
//
// HTTP: POST /api/ai/transcribe (multipart/form-data, file field "audio")
// RESPONSE: {"text": "..."}
func (h *AIHandler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxAudioBytes+1<<20)
	if err := r.ParseMultipartForm(MaxAudioBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, h.logger, apperror.ValidationFailed("audio", "Audio file is too large"))
			return
		}
		writeError(w, h.logger, apperror.ValidationFailed("audio", "Audio file is required"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, h.logger, apperror.ValidationFailed("audio", "Audio file is required"))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, h.logger, apperror.ValidationFailed("audio", "Could not read audio file"))
		return
	}

	text, err := h.svc.Transcribe(r.Context(), audio, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// HandleGenerateImage renders an image for a prompt.
//
// HTTP: POST /api/ai/generate-image
// RESPONSE: {"url": "..."}
func (h *AIHandler) HandleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, validationError(err))
		return
	}

	url, err := h.svc.GenerateImage(r.Context(), req.Prompt, req.Size, req.Quality)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// HandleProcess classifies text without storing anything.
//
// HTTP: POST /api/ai/process
// REQUEST BODY: {"text": "I need to learn React and I feel great"}
// RESPONSE: {"thoughts": [...]}
func (h *AIHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	thoughts, err := h.svc.Process(r.Context(), userID, req.Text)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"thoughts": thoughts})
}

// HandleCapture classifies text and stores each resulting thought, routed
// to the todo list, the archive or triage.
//
// HTTP: POST /api/ai/capture
// RESPONSE: {"thoughts": [...], "summary": {"todo": 1, "archived": 0, "triage": 2}}
func (h *AIHandler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req captureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.svc.Capture(r.Context(), userID, req.Text, req.Transcription)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/omi/internal/ai"
	"github.com/sakif/omi/internal/apperror"
	"github.com/sakif/omi/internal/model"
	"github.com/sakif/omi/internal/repository"
)

// AIService proxies model calls and runs the capture pipeline.
//
// DEPENDENCIES (injected via NewAIService):
//   - provider  ai.Provider                    → OpenAI, the test-mode mock, or the unconfigured stub
//   - thoughts  repository.ThoughtRepository   → persists captured thoughts
//   - goals     *GoalService                   → active goal titles for prompt context
//   - logger    *slog.Logger
//
// Upstream failures never reach the client verbatim: the raw error is
// logged here and replaced with a generic apperror.Upstream.
type AIService struct {
	provider ai.Provider
	thoughts repository.ThoughtRepository
	goals    *GoalService
	logger   *slog.Logger
}

func NewAIService(
	provider ai.Provider,
	thoughts repository.ThoughtRepository,
	goals *GoalService,
	logger *slog.Logger,
) *AIService {
	return &AIService{
		provider: provider,
		thoughts: thoughts,
		goals:    goals,
		logger:   logger,
	}
}

// CaptureSummary counts where captured thoughts were routed.
type CaptureSummary struct {
	Todo     int `json:"todo"`
	Archived int `json:"archived"`
	Triage   int `json:"triage"`
}

type CaptureResult struct {
	Thoughts []model.Thought `json:"thoughts"`
	Summary  CaptureSummary  `json:"summary"`
}

// InvokeLLM forwards a prompt. With a schema the reply is parsed and
// returned as json.RawMessage; without one it is returned as a string.
func (s *AIService) InvokeLLM(ctx context.Context, prompt string, schema json.RawMessage, modelName string) (any, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperror.ValidationFailed("prompt", "Prompt is required")
	}
	if len(schema) > 0 && !json.Valid(schema) {
		return nil, apperror.ValidationFailed("response_json_schema", "response_json_schema must be valid JSON")
	}

	reply, err := s.provider.Complete(ctx, ai.CompletionRequest{
		Prompt:  prompt,
		Model:   modelName,
		Schema:  schema,
		Subject: prompt,
	})
	if err != nil {
		return nil, s.upstream(ctx, "invoke-llm", "Failed to process LLM request", err)
	}

	if len(schema) == 0 {
		return reply, nil
	}

	raw := json.RawMessage(strings.TrimSpace(reply))
	if !json.Valid(raw) {
		return nil, s.upstream(ctx, "invoke-llm", "Failed to process LLM request",
			errors.New("model returned invalid JSON for a structured request"))
	}
	return raw, nil
}

// Transcribe converts an uploaded recording to text.
func (s *AIService) Transcribe(ctx context.Context, audio []byte, filename, contentType string) (string, error) {
	if len(audio) == 0 {
		return "", apperror.ValidationFailed("audio", "Audio file is required")
	}

	text, err := s.provider.Transcribe(ctx, ai.TranscriptionRequest{
		Audio:       audio,
		Filename:    filename,
		ContentType: contentType,
	})
	if err != nil {
		return "", s.upstream(ctx, "transcribe", "Failed to transcribe audio", err)
	}
	return text, nil
}

// GenerateImage returns the URL of an image for prompt. Empty size and
// quality use the provider defaults.
func (s *AIService) GenerateImage(ctx context.Context, prompt, size, quality string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", apperror.ValidationFailed("prompt", "Prompt is required")
	}

	url, err := s.provider.GenerateImage(ctx, ai.ImageRequest{Prompt: prompt, Size: size, Quality: quality})
	if err != nil {
		return "", s.upstream(ctx, "generate-image", "Failed to generate image", err)
	}
	return url, nil
}

// Process classifies free text into one or more thoughts without storing
// them. Titles of the user's active goals are added to the prompt; a
// failure to load them only costs that context.
func (s *AIService) Process(ctx context.Context, userID, text string) ([]ai.Classification, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "Text is required")
	}

	var goals []string
	if s.goals != nil {
		titles, err := s.goals.ActiveTitles(ctx, userID)
		if err != nil {
			s.logger.WarnContext(ctx, "could not load active goals for prompt",
				slog.String("userID", userID),
				slog.String("error", err.Error()),
			)
		}
		goals = titles
	}

	reply, err := s.provider.Complete(ctx, ai.CompletionRequest{
		Prompt:  ai.RoutingPrompt(text, goals),
		Schema:  ai.RoutingSchema(),
		Subject: text,
	})
	if err != nil {
		return nil, s.upstream(ctx, "process", "Failed to process text", err)
	}

	classified, err := ai.ParseClassification(reply)
	if err != nil {
		return nil, s.upstream(ctx, "process", "Failed to process text", err)
	}
	return classified, nil
}

// Capture classifies text and stores every resulting thought, routed as
// follows:
//
//	no triage, destination "todo"      → actioned, task_status not_started
//	no triage, destination "thoughts"  → memory_banked
//	anything else                      → pending, requires_triage = true
//
// transcription, when given, is stored on every thought; otherwise the
// model's own transcription field is used. Thoughts are written one at a
// time; a storage failure part-way leaves the earlier ones in place.
func (s *AIService) Capture(ctx context.Context, userID, text string, transcription *string) (*CaptureResult, error) {
	classified, err := s.Process(ctx, userID, text)
	if err != nil {
		return nil, err
	}

	result := &CaptureResult{Thoughts: make([]model.Thought, 0, len(classified))}
	for _, c := range classified {
		t := thoughtFromClassification(userID, c, transcription)

		switch c.Destination() {
		case ai.DestinationTodo:
			notStarted := model.TaskNotStarted
			t.Status = model.StatusActioned
			t.TaskStatus = &notStarted
			result.Summary.Todo++
		case ai.DestinationThoughts:
			t.Status = model.StatusMemoryBanked
			result.Summary.Archived++
		default:
			t.Status = model.StatusPending
			t.RequiresTriage = true
			result.Summary.Triage++
		}

		if err := s.thoughts.Create(ctx, &t); err != nil {
			return nil, fmt.Errorf("service/ai: saving captured thought: %w", err)
		}
		result.Thoughts = append(result.Thoughts, t)
	}

	s.logger.InfoContext(ctx, "thoughts captured",
		slog.String("userID", userID),
		slog.Int("todo", result.Summary.Todo),
		slog.Int("archived", result.Summary.Archived),
		slog.Int("triage", result.Summary.Triage),
	)
	return result, nil
}

func thoughtFromClassification(userID string, c ai.Classification, transcription *string) model.Thought {
	t := model.Thought{
		UserID:        userID,
		ProcessedText: c.ProcessedText,
		Category:      c.Category,
		MoodScore:     c.MoodScore,
		Priority:      c.Priority,
		Tags:          c.Tags,
		ActionSteps:   c.ActionSteps,
	}
	if c.SubCategory != "" {
		sub := c.SubCategory
		t.SubCategory = &sub
	}
	if t.MoodScore != nil {
		m := clampMood(*t.MoodScore)
		t.MoodScore = &m
	}

	switch {
	case transcription != nil:
		t.Transcription = trimmedOrNil(transcription)
	case c.Transcription != "":
		tr := c.Transcription
		t.Transcription = &tr
	}
	return t
}

func clampMood(m float64) float64 {
	switch {
	case m < -1:
		return -1
	case m > 1:
		return 1
	}
	return m
}

// upstream logs the raw provider error and returns a client-safe one.
// ErrUnavailable passes through so an unconfigured provider reports 503.
func (s *AIService) upstream(ctx context.Context, op, message string, err error) error {
	if errors.Is(err, apperror.ErrUnavailable) {
		return err
	}
	s.logger.ErrorContext(ctx, "AI provider call failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperror.Upstream(message)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/omi/internal/apperror"
	"github.com/sakif/omi/internal/model"
	"github.com/sakif/omi/internal/repository"
)

const msgThoughtRequired = "Missing required fields: processed_text and category are required"

// ThoughtService owns validation and defaults for thoughts. Every method is
// scoped to the calling user.
type ThoughtService struct {
	thoughts repository.ThoughtRepository
	logger   *slog.Logger
}

func NewThoughtService(thoughts repository.ThoughtRepository, logger *slog.Logger) *ThoughtService {
	return &ThoughtService{thoughts: thoughts, logger: logger}
}

// Create validates t and stores it for userID. Priority defaults to medium
// and status to pending. Any ID or owner already on t is replaced.
func (s *ThoughtService) Create(ctx context.Context, userID string, t model.Thought) (*model.Thought, error) {
	if strings.TrimSpace(t.ProcessedText) == "" || strings.TrimSpace(t.Category) == "" {
		return nil, apperror.ValidationFailed("processed_text", msgThoughtRequired)
	}

	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}

	if err := validateThoughtFields(t.Priority, t.Status, t.TaskStatus, t.MoodScore); err != nil {
		return nil, err
	}

	t.ID = ""
	t.UserID = userID

	if err := s.thoughts.Create(ctx, &t); err != nil {
		return nil, fmt.Errorf("service/thought: creating thought: %w", err)
	}

	s.logger.Debug("thought created",
		slog.String("userID", userID),
		slog.String("thoughtID", t.ID),
		slog.String("status", t.Status),
	)
	return &t, nil
}

// Get returns a thought owned by userID. Thoughts owned by someone else are
// reported as not found.
func (s *ThoughtService) Get(ctx context.Context, userID, id string) (*model.Thought, error) {
	t, err := s.thoughts.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("service/thought: %w", err)
	}
	return t, nil
}

// List returns the caller's thoughts. orderBy is the raw client value; see
// repository.ParseSort for the accepted forms.
func (s *ThoughtService) List(ctx context.Context, userID string, filter model.ThoughtFilter, orderBy string) ([]model.Thought, error) {
	sort, err := repository.ParseSort(orderBy, repository.ThoughtSortColumns, repository.DefaultSort)
	if err != nil {
		return nil, err
	}

	thoughts, err := s.thoughts.List(ctx, userID, filter, sort)
	if err != nil {
		return nil, fmt.Errorf("service/thought: listing thoughts: %w", err)
	}
	if thoughts == nil {
		thoughts = []model.Thought{}
	}
	return thoughts, nil
}

// Update applies a partial patch. Only fields present in the patch are
// written; updated_at is always refreshed.
func (s *ThoughtService) Update(ctx context.Context, userID, id string, p model.ThoughtPatch) (*model.Thought, error) {
	if p.ProcessedText.Set && strings.TrimSpace(p.ProcessedText.Value) == "" {
		return nil, apperror.ValidationFailed("processed_text", "processed_text cannot be empty")
	}
	if p.Category.Set && strings.TrimSpace(p.Category.Value) == "" {
		return nil, apperror.ValidationFailed("category", "category cannot be empty")
	}

	var priority, status string
	if p.Priority.Set {
		priority = p.Priority.Value
		if priority == "" {
			return nil, apperror.ValidationFailed("priority", "priority cannot be empty")
		}
	}
	if p.Status.Set {
		status = p.Status.Value
		if status == "" {
			return nil, apperror.ValidationFailed("status", "status cannot be empty")
		}
	}
	var taskStatus *string
	if p.TaskStatus.Set {
		taskStatus = p.TaskStatus.Value
	}
	var mood *float64
	if p.MoodScore.Set {
		mood = p.MoodScore.Value
	}

	if err := validateThoughtFields(priority, status, taskStatus, mood); err != nil {
		return nil, err
	}

	t, err := s.thoughts.Update(ctx, userID, id, p)
	if err != nil {
		return nil, fmt.Errorf("service/thought: %w", err)
	}
	return t, nil
}

// Delete removes a thought owned by userID.
func (s *ThoughtService) Delete(ctx context.Context, userID, id string) error {
	deleted, err := s.thoughts.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("service/thought: deleting thought %s: %w", id, err)
	}
	if !deleted {
		return apperror.NotFound("thought", id)
	}
	return nil
}

// validateThoughtFields checks enum-like values. Empty strings and nil
// pointers mean "not supplied" and pass.
func validateThoughtFields(priority, status string, taskStatus *string, mood *float64) error {
	if priority != "" && !model.ValidPriority(priority) {
		return apperror.ValidationFailed("priority", "priority must be one of low, medium, high")
	}
	if status != "" && !model.ValidStatus(status) {
		return apperror.ValidationFailed("status", "status must be one of pending, memory_banked, actioned")
	}
	if taskStatus != nil && !model.ValidTaskStatus(*taskStatus) {
		return apperror.ValidationFailed("task_status",
			"task_status must be one of not_started, in_progress, on_hold, completed")
	}
	if mood != nil && (*mood < -1 || *mood > 1) {
		return apperror.ValidationFailed("mood_score", "mood_score must be between -1 and 1")
	}
	return nil
}

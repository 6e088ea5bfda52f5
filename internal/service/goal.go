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

type GoalService struct {
	goals  repository.GoalRepository
	logger *slog.Logger
}

func NewGoalService(goals repository.GoalRepository, logger *slog.Logger) *GoalService {
	return &GoalService{goals: goals, logger: logger}
}

func (s *GoalService) Create(ctx context.Context, userID string, g model.Goal) (*model.Goal, error) {
	g.Title = strings.TrimSpace(g.Title)
	if g.Title == "" {
		return nil, apperror.ValidationFailed("title", "Missing required field: title is required")
	}
	if g.Status == "" {
		g.Status = model.GoalActive
	}
	if !model.ValidGoalStatus(g.Status) {
		return nil, goalStatusError()
	}

	g.ID = ""
	g.UserID = userID

	if err := s.goals.Create(ctx, &g); err != nil {
		return nil, fmt.Errorf("service/goal: creating goal: %w", err)
	}
	return &g, nil
}

func (s *GoalService) Get(ctx context.Context, userID, id string) (*model.Goal, error) {
	g, err := s.goals.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("service/goal: %w", err)
	}
	return g, nil
}

func (s *GoalService) List(ctx context.Context, userID string, filter model.GoalFilter, orderBy string) ([]model.Goal, error) {
	sort, err := repository.ParseSort(orderBy, repository.GoalSortColumns, repository.DefaultSort)
	if err != nil {
		return nil, err
	}

	goals, err := s.goals.List(ctx, userID, filter, sort)
	if err != nil {
		return nil, fmt.Errorf("service/goal: listing goals: %w", err)
	}
	if goals == nil {
		goals = []model.Goal{}
	}
	return goals, nil
}

// ActiveTitles lists the titles of the user's active goals, oldest first.
func (s *GoalService) ActiveTitles(ctx context.Context, userID string) ([]string, error) {
	goals, err := s.goals.List(ctx, userID, model.GoalFilter{Status: model.GoalActive},
		repository.Sort{Column: "created_date"})
	if err != nil {
		return nil, fmt.Errorf("service/goal: listing active goals: %w", err)
	}

	titles := make([]string, 0, len(goals))
	for _, g := range goals {
		titles = append(titles, g.Title)
	}
	return titles, nil
}

func (s *GoalService) Update(ctx context.Context, userID, id string, p model.GoalPatch) (*model.Goal, error) {
	if p.Title.Set {
		p.Title.Value = strings.TrimSpace(p.Title.Value)
		if p.Title.Value == "" {
			return nil, apperror.ValidationFailed("title", "title cannot be empty")
		}
	}
	if p.Status.Set && !model.ValidGoalStatus(p.Status.Value) {
		return nil, goalStatusError()
	}

	g, err := s.goals.Update(ctx, userID, id, p)
	if err != nil {
		return nil, fmt.Errorf("service/goal: %w", err)
	}
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	deleted, err := s.goals.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("service/goal: deleting goal %s: %w", id, err)
	}
	if !deleted {
		return apperror.NotFound("goal", id)
	}
	return nil
}

func goalStatusError() error {
	return apperror.ValidationFailed("status", "status must be one of active, paused, completed")
}

package sqlstore

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/sakif/omi/internal/apperror"
	"github.com/sakif/omi/internal/model"
	"github.com/sakif/omi/internal/repository"
)

var _ repository.GoalRepository = (*GoalStore)(nil)

var goalColumns = []string{"id", "user_id", "title", "description", "status", "created_date", "updated_at"}

// GoalStore implements repository.GoalRepository.
type GoalStore struct {
	s *Store
}

func (s *Store) Goals() *GoalStore {
	return &GoalStore{s: s}
}

func (g *GoalStore) Create(ctx context.Context, goal *model.Goal) error {
	now := time.Now().UTC()
	goal.ID = xid.New().String()
	goal.CreatedDate = now
	goal.UpdatedAt = now

	_, err := g.s.exec(ctx, g.s.sb.Insert("goals").
		Columns(goalColumns...).
		Values(goal.ID, goal.UserID, goal.Title, goal.Description, goal.Status, goal.CreatedDate, goal.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%s: creating goal: %w", g.s.dialect.Name(), err)
	}
	return nil
}

func (g *GoalStore) GetByID(ctx context.Context, userID, id string) (*model.Goal, error) {
	var goal model.Goal
	found, err := g.s.selectOne(ctx, &goal, g.s.sb.Select(goalColumns...).
		From("goals").
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return nil, fmt.Errorf("%s: getting goal %s: %w", g.s.dialect.Name(), id, err)
	}
	if !found {
		return nil, apperror.NotFound("goal", id)
	}
	return &goal, nil
}

func (g *GoalStore) List(ctx context.Context, userID string, f model.GoalFilter, sort repository.Sort) ([]model.Goal, error) {
	q := g.s.sb.Select(goalColumns...).
		From("goals").
		Where(sq.Eq{"user_id": userID})
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	q = q.OrderBy(orderBy(sort, nil)...)

	goals := []model.Goal{}
	if err := g.s.selectAll(ctx, &goals, q); err != nil {
		return nil, fmt.Errorf("%s: listing goals: %w", g.s.dialect.Name(), err)
	}
	return goals, nil
}

func (g *GoalStore) Update(ctx context.Context, userID, id string, p model.GoalPatch) (*model.Goal, error) {
	set := map[string]any{"updated_at": time.Now().UTC()}
	if p.Title.Set {
		set["title"] = p.Title.Value
	}
	if p.Description.Set {
		set["description"] = p.Description.Value
	}
	if p.Status.Set {
		set["status"] = p.Status.Value
	}

	res, err := g.s.exec(ctx, g.s.sb.Update("goals").
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return nil, fmt.Errorf("%s: updating goal %s: %w", g.s.dialect.Name(), id, err)
	}
	if res.Changes == 0 {
		return nil, apperror.NotFound("goal", id)
	}

	return g.GetByID(ctx, userID, id)
}

func (g *GoalStore) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := g.s.exec(ctx, g.s.sb.Delete("goals").
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return false, fmt.Errorf("%s: deleting goal %s: %w", g.s.dialect.Name(), id, err)
	}
	return res.Changes > 0, nil
}

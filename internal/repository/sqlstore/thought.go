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

var _ repository.ThoughtRepository = (*ThoughtStore)(nil)

var thoughtColumns = []string{
	"id", "user_id", "transcription", "processed_text", "category", "sub_category",
	"mood_score", "priority", "tags", "action_steps", "status", "task_status",
	"requires_triage", "created_date", "updated_at",
}

// ThoughtStore implements repository.ThoughtRepository.
type ThoughtStore struct {
	s *Store
}

func (s *Store) Thoughts() *ThoughtStore {
	return &ThoughtStore{s: s}
}

// Create inserts a thought. The caller is expected to have applied defaults;
// ID and timestamps are always assigned here.
func (t *ThoughtStore) Create(ctx context.Context, th *model.Thought) error {
	now := time.Now().UTC()
	th.ID = xid.New().String()
	th.CreatedDate = now
	th.UpdatedAt = now
	if th.Tags == nil {
		th.Tags = model.Tags{}
	}
	if th.ActionSteps == nil {
		th.ActionSteps = model.ActionSteps{}
	}

	_, err := t.s.exec(ctx, t.s.sb.Insert("thoughts").
		Columns(thoughtColumns...).
		Values(
			th.ID, th.UserID, th.Transcription, th.ProcessedText, th.Category, th.SubCategory,
			th.MoodScore, th.Priority, th.Tags, th.ActionSteps, th.Status, th.TaskStatus,
			t.s.dialect.Bool(th.RequiresTriage), th.CreatedDate, th.UpdatedAt,
		))
	if err != nil {
		return fmt.Errorf("%s: creating thought: %w", t.s.dialect.Name(), err)
	}
	return nil
}

// GetByID returns the thought only if userID owns it.
func (t *ThoughtStore) GetByID(ctx context.Context, userID, id string) (*model.Thought, error) {
	var th model.Thought
	found, err := t.s.selectOne(ctx, &th, t.s.sb.Select(thoughtColumns...).
		From("thoughts").
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return nil, fmt.Errorf("%s: getting thought %s: %w", t.s.dialect.Name(), id, err)
	}
	if !found {
		return nil, apperror.NotFound("thought", id)
	}
	return &th, nil
}

func (t *ThoughtStore) List(ctx context.Context, userID string, f model.ThoughtFilter, sort repository.Sort) ([]model.Thought, error) {
	q := t.s.sb.Select(thoughtColumns...).
		From("thoughts").
		Where(sq.Eq{"user_id": userID})

	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	if f.Category != "" {
		q = q.Where(sq.Eq{"category": f.Category})
	}
	if f.Priority != "" {
		q = q.Where(sq.Eq{"priority": f.Priority})
	}
	if f.TaskStatus != "" {
		q = q.Where(sq.Eq{"task_status": f.TaskStatus})
	}

	q = q.OrderBy(orderBy(sort, thoughtSortExprs)...)

	thoughts := []model.Thought{}
	if err := t.s.selectAll(ctx, &thoughts, q); err != nil {
		return nil, fmt.Errorf("%s: listing thoughts: %w", t.s.dialect.Name(), err)
	}
	return thoughts, nil
}

// Update applies a partial patch and returns the stored row. updated_at is
// refreshed even when the patch is empty.
func (t *ThoughtStore) Update(ctx context.Context, userID, id string, p model.ThoughtPatch) (*model.Thought, error) {
	set := map[string]any{"updated_at": time.Now().UTC()}
	if p.Transcription.Set {
		set["transcription"] = p.Transcription.Value
	}
	if p.ProcessedText.Set {
		set["processed_text"] = p.ProcessedText.Value
	}
	if p.Category.Set {
		set["category"] = p.Category.Value
	}
	if p.SubCategory.Set {
		set["sub_category"] = p.SubCategory.Value
	}
	if p.MoodScore.Set {
		set["mood_score"] = p.MoodScore.Value
	}
	if p.Priority.Set {
		set["priority"] = p.Priority.Value
	}
	if p.Tags.Set {
		set["tags"] = p.Tags.Value
	}
	if p.ActionSteps.Set {
		set["action_steps"] = p.ActionSteps.Value
	}
	if p.Status.Set {
		set["status"] = p.Status.Value
	}
	if p.TaskStatus.Set {
		set["task_status"] = p.TaskStatus.Value
	}
	if p.RequiresTriage.Set {
		set["requires_triage"] = t.s.dialect.Bool(p.RequiresTriage.Value)
	}

	res, err := t.s.exec(ctx, t.s.sb.Update("thoughts").
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return nil, fmt.Errorf("%s: updating thought %s: %w", t.s.dialect.Name(), id, err)
	}
	if res.Changes == 0 {
		return nil, apperror.NotFound("thought", id)
	}

	return t.GetByID(ctx, userID, id)
}

func (t *ThoughtStore) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := t.s.exec(ctx, t.s.sb.Delete("thoughts").
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return false, fmt.Errorf("%s: deleting thought %s: %w", t.s.dialect.Name(), id, err)
	}
	return res.Changes > 0, nil
}

// thoughtSortExprs replaces a sort column with an expression. Priority
// sorts by rank (low < medium < high), not alphabetically.
var thoughtSortExprs = map[string]string{
	"priority": "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 0 END",
}

// orderBy renders sort, swapping in exprs[sort.Column] when present, and
// adds id as a tiebreaker so rows created in the same instant keep a stable
// order.
func orderBy(sort repository.Sort, exprs map[string]string) []string {
	dir, tie := " ASC", "id ASC"
	if sort.Desc {
		dir, tie = " DESC", "id DESC"
	}
	if expr, ok := exprs[sort.Column]; ok {
		return []string{expr + dir, tie}
	}
	return []string{sort.Clause(), tie}
}

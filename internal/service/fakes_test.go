package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sakif/omi/internal/ai"
	"github.com/sakif/omi/internal/apperror"
	"github.com/sakif/omi/internal/model"
	"github.com/sakif/omi/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// The fakes below are in-memory implementations of the repository
// interfaces. They enforce ownership the same way the SQL stores do.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int

	createErr error
	getErr    error
	updateErr error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.Conflict("user", u.Email)
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) Update(_ context.Context, id string, c model.UserChanges) (*model.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	if c.Email.Set {
		for otherID, other := range f.users {
			if otherID != id && other.Email == c.Email.Value {
				return nil, apperror.Conflict("user", c.Email.Value)
			}
		}
		u.Email = c.Email.Value
	}
	if c.Name.Set {
		u.Name = c.Name.Value
	}
	if c.PasswordHash.Set {
		u.PasswordHash = c.PasswordHash.Value
	}
	u.UpdatedAt = time.Now()
	copied := *u
	return &copied, nil
}

type fakeThoughtRepo struct {
	rows   map[string]*model.Thought
	nextID int

	createErr error
	lastSort  repository.Sort
}

var _ repository.ThoughtRepository = (*fakeThoughtRepo)(nil)

func newFakeThoughtRepo() *fakeThoughtRepo {
	return &fakeThoughtRepo{rows: make(map[string]*model.Thought)}
}

func (f *fakeThoughtRepo) Create(_ context.Context, t *model.Thought) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	t.ID = fmt.Sprintf("thought-%d", f.nextID)
	t.CreatedDate = time.Now()
	t.UpdatedAt = t.CreatedDate
	copied := *t
	f.rows[t.ID] = &copied
	return nil
}

func (f *fakeThoughtRepo) GetByID(_ context.Context, userID, id string) (*model.Thought, error) {
	t, ok := f.rows[id]
	if !ok || t.UserID != userID {
		return nil, apperror.NotFound("thought", id)
	}
	copied := *t
	return &copied, nil
}

func (f *fakeThoughtRepo) List(_ context.Context, userID string, filter model.ThoughtFilter, sort repository.Sort) ([]model.Thought, error) {
	f.lastSort = sort
	var out []model.Thought
	for _, t := range f.rows {
		if t.UserID != userID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeThoughtRepo) Update(_ context.Context, userID, id string, p model.ThoughtPatch) (*model.Thought, error) {
	t, ok := f.rows[id]
	if !ok || t.UserID != userID {
		return nil, apperror.NotFound("thought", id)
	}
	if p.ProcessedText.Set {
		t.ProcessedText = p.ProcessedText.Value
	}
	if p.Status.Set {
		t.Status = p.Status.Value
	}
	if p.TaskStatus.Set {
		t.TaskStatus = p.TaskStatus.Value
	}
	if p.Priority.Set {
		t.Priority = p.Priority.Value
	}
	t.UpdatedAt = time.Now()
	copied := *t
	return &copied, nil
}

func (f *fakeThoughtRepo) Delete(_ context.Context, userID, id string) (bool, error) {
	t, ok := f.rows[id]
	if !ok || t.UserID != userID {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

type fakeGoalRepo struct {
	rows    map[string]*model.Goal
	nextID  int
	listErr error
}

var _ repository.GoalRepository = (*fakeGoalRepo)(nil)

func newFakeGoalRepo() *fakeGoalRepo {
	return &fakeGoalRepo{rows: make(map[string]*model.Goal)}
}

func (f *fakeGoalRepo) Create(_ context.Context, g *model.Goal) error {
	f.nextID++
	g.ID = fmt.Sprintf("goal-%d", f.nextID)
	g.CreatedDate = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	g.UpdatedAt = g.CreatedDate
	copied := *g
	f.rows[g.ID] = &copied
	return nil
}

func (f *fakeGoalRepo) GetByID(_ context.Context, userID, id string) (*model.Goal, error) {
	g, ok := f.rows[id]
	if !ok || g.UserID != userID {
		return nil, apperror.NotFound("goal", id)
	}
	copied := *g
	return &copied, nil
}

// List returns rows in creation order, which is all the tests rely on.
func (f *fakeGoalRepo) List(_ context.Context, userID string, filter model.GoalFilter, _ repository.Sort) ([]model.Goal, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Goal
	for i := 1; i <= f.nextID; i++ {
		g, ok := f.rows[fmt.Sprintf("goal-%d", i)]
		if !ok || g.UserID != userID {
			continue
		}
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		out = append(out, *g)
	}
	return out, nil
}

func (f *fakeGoalRepo) Update(_ context.Context, userID, id string, p model.GoalPatch) (*model.Goal, error) {
	g, ok := f.rows[id]
	if !ok || g.UserID != userID {
		return nil, apperror.NotFound("goal", id)
	}
	if p.Title.Set {
		g.Title = p.Title.Value
	}
	if p.Description.Set {
		g.Description = p.Description.Value
	}
	if p.Status.Set {
		g.Status = p.Status.Value
	}
	copied := *g
	return &copied, nil
}

func (f *fakeGoalRepo) Delete(_ context.Context, userID, id string) (bool, error) {
	g, ok := f.rows[id]
	if !ok || g.UserID != userID {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

// fakeProvider records the last request and replies with canned values.
type fakeProvider struct {
	reply string
	err   error

	lastCompletion ai.CompletionRequest
	lastImage      ai.ImageRequest
	calls          int
}

var _ ai.Provider = (*fakeProvider)(nil)

func (f *fakeProvider) Complete(_ context.Context, req ai.CompletionRequest) (string, error) {
	f.calls++
	f.lastCompletion = req
	return f.reply, f.err
}

func (f *fakeProvider) Transcribe(context.Context, ai.TranscriptionRequest) (string, error) {
	f.calls++
	return f.reply, f.err
}

func (f *fakeProvider) GenerateImage(_ context.Context, req ai.ImageRequest) (string, error) {
	f.calls++
	f.lastImage = req
	return f.reply, f.err
}

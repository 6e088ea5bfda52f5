package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sakif/omi/internal/apperror"
	"github.com/sakif/omi/internal/model"
	"github.com/sakif/omi/internal/repository"
	"github.com/sakif/omi/internal/repository/sqlstore"
)

// newTestDB opens a fresh in-memory database with the schema applied.
func newTestDB(t *testing.T) *sqlstore.Store {
	t.Helper()
	db, err := Open(context.Background(), MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sqlstore.Store, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "hash"}
	if err := db.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func createTestThought(t *testing.T, db *sqlstore.Store, userID, text string) *model.Thought {
	t.Helper()
	th := &model.Thought{
		UserID:        userID,
		ProcessedText: text,
		Category:      "task",
		Priority:      model.PriorityMedium,
		Status:        model.StatusPending,
	}
	if err := db.Thoughts().Create(context.Background(), th); err != nil {
		t.Fatalf("failed to create test thought: %v", err)
	}
	return th
}

func strPtr(s string) *string { return &s }

// =========================================================================
// OPEN / SCHEMA TESTS
// =========================================================================

func TestOpen_FileBackedCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "omi.db")

	db, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if db.Backend() != "sqlite" {
		t.Errorf("Backend() = %q, want sqlite", db.Backend())
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// =========================================================================
// USER TESTS
// =========================================================================

func TestUserCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "a@x.com")

	if created.ID == "" {
		t.Fatal("Create() did not set ID")
	}
	if created.CreatedAt.IsZero() {
		t.Error("Create() did not set CreatedAt")
	}

	found, err := db.Users().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Email != "a@x.com" {
		t.Errorf("Email = %q, want a@x.com", found.Email)
	}
	if found.PasswordHash != "hash" {
		t.Errorf("PasswordHash = %q, want hash", found.PasswordHash)
	}
	if found.Name != nil {
		t.Errorf("Name = %v, want nil", *found.Name)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "dup@x.com")

	err := db.Users().Create(context.Background(), &model.User{Email: "dup@x.com", PasswordHash: "h"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() duplicate error = %v, want ErrConflict", err)
	}
}

func TestUserGetByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "find@x.com")

	found, err := db.Users().GetByEmail(context.Background(), "find@x.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatalf("GetByEmail() = %+v, want id %s", found, created.ID)
	}

	missing, err := db.Users().GetByEmail(context.Background(), "nobody@x.com")
	if err != nil {
		t.Fatalf("GetByEmail() missing error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetByEmail() missing = %+v, want nil", missing)
	}
}

func TestUserUpdate_PartialFields(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "old@x.com")

	updated, err := db.Users().Update(context.Background(), created.ID, model.UserChanges{
		Name: model.Some(strPtr("Ada")),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name == nil || *updated.Name != "Ada" {
		t.Errorf("Name = %v, want Ada", updated.Name)
	}
	if updated.Email != "old@x.com" {
		t.Errorf("Email changed to %q; it was not in the patch", updated.Email)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards")
	}
}

func TestUserUpdate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "taken@x.com")
	other := createTestUser(t, db, "other@x.com")

	_, err := db.Users().Update(context.Background(), other.ID, model.UserChanges{
		Email: model.Some("taken@x.com"),
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Update() error = %v, want ErrConflict", err)
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Users().Update(context.Background(), "missing", model.UserChanges{Name: model.Some(strPtr("x"))})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// THOUGHT TESTS
// =========================================================================

func TestThoughtCreate_ArraysAndBooleansRoundTrip(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "a@x.com")
	mood := 0.4

	th := &model.Thought{
		UserID:         u.ID,
		Transcription:  strPtr("raw words"),
		ProcessedText:  "buy milk",
		Category:       "task",
		MoodScore:      &mood,
		Priority:       model.PriorityHigh,
		Tags:           model.Tags{"errands", "home"},
		ActionSteps:    model.ActionSteps{{Step: "Go to shop", SuggestedTools: []string{"list"}}},
		Status:         model.StatusPending,
		RequiresTriage: true,
	}
	if err := db.Thoughts().Create(context.Background(), th); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := db.Thoughts().GetByID(context.Background(), u.ID, th.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if len(found.Tags) != 2 || found.Tags[0] != "errands" || found.Tags[1] != "home" {
		t.Errorf("Tags = %v, want [errands home] in order", found.Tags)
	}
	if len(found.ActionSteps) != 1 || found.ActionSteps[0].Step != "Go to shop" {
		t.Errorf("ActionSteps = %+v", found.ActionSteps)
	}
	if !found.RequiresTriage {
		t.Error("RequiresTriage = false, want true")
	}
	if found.MoodScore == nil || *found.MoodScore != 0.4 {
		t.Errorf("MoodScore = %v, want 0.4", found.MoodScore)
	}
	if found.Transcription == nil || *found.Transcription != "raw words" {
		t.Errorf("Transcription = %v", found.Transcription)
	}
	if found.TaskStatus != nil {
		t.Errorf("TaskStatus = %v, want nil", *found.TaskStatus)
	}
	if found.CreatedDate.IsZero() {
		t.Error("CreatedDate not persisted")
	}
}

func TestThoughtCreate_NilArraysReadBackEmpty(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "a@x.com")
	th := createTestThought(t, db, u.ID, "plain")

	found, err := db.Thoughts().GetByID(context.Background(), u.ID, th.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Tags == nil || len(found.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty non-nil slice", found.Tags)
	}
	if found.ActionSteps == nil || len(found.ActionSteps) != 0 {
		t.Errorf("ActionSteps = %#v, want empty non-nil slice", found.ActionSteps)
	}
}

func TestThoughtCreate_UnknownUserFailsForeignKey(t *testing.T) {
	db := newTestDB(t)
	err := db.Thoughts().Create(context.Background(), &model.Thought{
		UserID: "ghost", ProcessedText: "x", Category: "idea", Priority: "medium", Status: "pending",
	})
	if err == nil {
		t.Fatal("Create() should fail when user_id does not exist")
	}
}

func TestThought_CrossTenantIsolation(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "a@x.com")
	intruder := createTestUser(t, db, "b@x.com")
	th := createTestThought(t, db, owner.ID, "private")
	ctx := context.Background()

	if _, err := db.Thoughts().GetByID(ctx, intruder.ID, th.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() by other user error = %v, want ErrNotFound", err)
	}

	_, err := db.Thoughts().Update(ctx, intruder.ID, th.ID, model.ThoughtPatch{Status: model.Some(model.StatusActioned)})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() by other user error = %v, want ErrNotFound", err)
	}

	deleted, err := db.Thoughts().Delete(ctx, intruder.ID, th.ID)
	if err != nil || deleted {
		t.Errorf("Delete() by other user = (%v, %v), want (false, nil)", deleted, err)
	}

	list, err := db.Thoughts().List(ctx, intruder.ID, model.ThoughtFilter{}, repository.DefaultSort)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("List() for other user returned %d thoughts", len(list))
	}

	still, err := db.Thoughts().GetByID(ctx, owner.ID, th.ID)
	if err != nil {
		t.Fatalf("owner GetByID() error = %v", err)
	}
	if still.Status != model.StatusPending {
		t.Errorf("Status = %q; intruder update must not apply", still.Status)
	}
}

func TestThoughtList_FiltersAndSort(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "a@x.com")
	ctx := context.Background()

	first := createTestThought(t, db, u.ID, "first")
	time.Sleep(2 * time.Millisecond)
	second := createTestThought(t, db, u.ID, "second")
	if _, err := db.Thoughts().Update(ctx, u.ID, second.ID, model.ThoughtPatch{Status: model.Some(model.StatusMemoryBanked)}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	pending, err := db.Thoughts().List(ctx, u.ID, model.ThoughtFilter{Status: model.StatusPending}, repository.DefaultSort)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != first.ID {
		t.Errorf("List(status=pending) = %v, want only %s", ids(pending), first.ID)
	}

	newest, err := db.Thoughts().List(ctx, u.ID, model.ThoughtFilter{}, repository.DefaultSort)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(newest) != 2 || newest[0].ID != second.ID {
		t.Errorf("List(created_date DESC) = %v, want %s first", ids(newest), second.ID)
	}

	oldest, err := db.Thoughts().List(ctx, u.ID, model.ThoughtFilter{}, repository.Sort{Column: "created_date"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(oldest) != 2 || oldest[0].ID != first.ID {
		t.Errorf("List(created_date ASC) = %v, want %s first", ids(oldest), first.ID)
	}
}

func TestThoughtList_PriorityByRank(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "a@x.com")
	ctx := context.Background()

	byPriority := map[string]string{}
	for _, p := range []string{model.PriorityMedium, model.PriorityHigh, model.PriorityLow} {
		th := &model.Thought{UserID: u.ID, ProcessedText: p, Category: "task", Priority: p, Status: model.StatusPending}
		if err := db.Thoughts().Create(ctx, th); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		byPriority[th.ID] = p
	}

	tests := []struct {
		sort repository.Sort
		want []string
	}{
		{repository.Sort{Column: "priority"}, []string{"low", "medium", "high"}},
		{repository.Sort{Column: "priority", Desc: true}, []string{"high", "medium", "low"}},
	}
	for _, tt := range tests {
		got, err := db.Thoughts().List(ctx, u.ID, model.ThoughtFilter{}, tt.sort)
		if err != nil {
			t.Fatalf("List(%s) error = %v", tt.sort.Clause(), err)
		}
		var order []string
		for _, th := range got {
			order = append(order, byPriority[th.ID])
		}
		if strings.Join(order, ",") != strings.Join(tt.want, ",") {
			t.Errorf("List(%s) priorities = %v, want %v", tt.sort.Clause(), order, tt.want)
		}
	}
}

func TestThoughtUpdate_PartialPatch(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "a@x.com")
	th := createTestThought(t, db, u.ID, "buy milk")
	ctx := context.Background()

	updated, err := db.Thoughts().Update(ctx, u.ID, th.ID, model.ThoughtPatch{
		Status:     model.Some(model.StatusActioned),
		TaskStatus: model.Some(strPtr(model.TaskNotStarted)),
		Tags:       model.Some(model.Tags{"z", "a", "m"}),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Status != model.StatusActioned {
		t.Errorf("Status = %q", updated.Status)
	}
	if updated.TaskStatus == nil || *updated.TaskStatus != model.TaskNotStarted {
		t.Errorf("TaskStatus = %v", updated.TaskStatus)
	}
	if got := []string(updated.Tags); len(got) != 3 || got[0] != "z" || got[1] != "a" || got[2] != "m" {
		t.Errorf("Tags = %v, want order preserved [z a m]", got)
	}
	if updated.ProcessedText != "buy milk" {
		t.Errorf("ProcessedText = %q; untouched fields must survive", updated.ProcessedText)
	}

	cleared, err := db.Thoughts().Update(ctx, u.ID, th.ID, model.ThoughtPatch{
		TaskStatus: model.Some[*string](nil),
	})
	if err != nil {
		t.Fatalf("Update() clear error = %v", err)
	}
	if cleared.TaskStatus != nil {
		t.Errorf("TaskStatus = %v after explicit null, want nil", *cleared.TaskStatus)
	}
}

func TestThoughtUpdate_RequiresTriageToggle(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "a@x.com")
	th := createTestThought(t, db, u.ID, "maybe")

	updated, err := db.Thoughts().Update(context.Background(), u.ID, th.ID, model.ThoughtPatch{
		RequiresTriage: model.Some(true),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !updated.RequiresTriage {
		t.Error("RequiresTriage = false after setting true")
	}
}

func TestThoughtDelete(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "a@x.com")
	th := createTestThought(t, db, u.ID, "gone soon")
	ctx := context.Background()

	deleted, err := db.Thoughts().Delete(ctx, u.ID, th.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete() = (%v, %v), want (true, nil)", deleted, err)
	}

	again, err := db.Thoughts().Delete(ctx, u.ID, th.ID)
	if err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if again {
		t.Error("second Delete() reported a removed row")
	}

	if _, err := db.Thoughts().GetByID(ctx, u.ID, th.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// GOAL TESTS
// =========================================================================

func TestGoalCRUD(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "a@x.com")
	other := createTestUser(t, db, "b@x.com")
	ctx := context.Background()

	g := &model.Goal{UserID: u.ID, Title: "Run a marathon", Status: model.GoalActive}
	if err := db.Goals().Create(ctx, g); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := db.Goals().GetByID(ctx, other.ID, g.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() by other user error = %v, want ErrNotFound", err)
	}

	updated, err := db.Goals().Update(ctx, u.ID, g.ID, model.GoalPatch{
		Status:      model.Some(model.GoalPaused),
		Description: model.Some(strPtr("knees first")),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Status != model.GoalPaused || updated.Title != "Run a marathon" {
		t.Errorf("Update() = %+v", updated)
	}
	if updated.Description == nil || *updated.Description != "knees first" {
		t.Errorf("Description = %v", updated.Description)
	}

	active, err := db.Goals().List(ctx, u.ID, model.GoalFilter{Status: model.GoalActive}, repository.DefaultSort)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("List(status=active) returned %d goals, want 0", len(active))
	}

	deleted, err := db.Goals().Delete(ctx, u.ID, g.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete() = (%v, %v)", deleted, err)
	}
}

func ids(ts []model.Thought) []string {
	out := make([]string, len(ts))
	for i, th := range ts {
		out[i] = th.ID
	}
	return out
}

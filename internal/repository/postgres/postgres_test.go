package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/omi/internal/apperror"
	"github.com/sakif/omi/internal/model"
	"github.com/sakif/omi/internal/repository"
	"github.com/sakif/omi/internal/repository/sqlstore"
)

var thoughtCols = []string{
	"id", "user_id", "transcription", "processed_text", "category", "sub_category",
	"mood_score", "priority", "tags", "action_steps", "status", "task_status",
	"requires_triage", "created_date", "updated_at",
}

func newMockStore(t *testing.T) (*sqlstore.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return Wrap(sqlx.NewDb(db, "pgx")), mock
}

func TestDialect(t *testing.T) {
	d := Dialect{}
	assert.Equal(t, "postgres", d.Name())
	assert.Equal(t, true, d.Bool(true))
	assert.True(t, d.IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, d.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, d.IsUniqueViolation(errors.New("boom")))
	assert.NotEmpty(t, d.Schema())
}

func TestMigrate(t *testing.T) {
	store, mock := newMockStore(t)
	for range schema {
		mock.ExpectExec(`CREATE (TABLE|INDEX) IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreate_UniqueViolationIsConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO users \(id,email,name,password_hash,created_at,updated_at\) VALUES \(\$1,\$2,\$3,\$4,\$5,\$6\)`).
		WithArgs(sqlmock.AnyArg(), "a@x.com", nil, "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := store.Users().Create(context.Background(), &model.User{Email: "a@x.com", PasswordHash: "hash"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestThoughtGetByID_UsesOwnershipPredicate(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM thoughts WHERE id = \$1 AND user_id = \$2`).
		WithArgs("t1", "u1").
		WillReturnRows(sqlmock.NewRows(thoughtCols).
			AddRow("t1", "u1", nil, "buy milk", "task", nil, 0.2, "medium",
				`["errands"]`, `[{"step":"go"}]`, "pending", nil, true, now, now))

	th, err := store.Thoughts().GetByID(context.Background(), "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, model.Tags{"errands"}, th.Tags)
	assert.Equal(t, "go", th.ActionSteps[0].Step)
	assert.True(t, th.RequiresTriage)
	require.NotNil(t, th.MoodScore)
	assert.InDelta(t, 0.2, *th.MoodScore, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestThoughtGetByID_NoRowsIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .* FROM thoughts WHERE id = \$1 AND user_id = \$2`).
		WithArgs("t1", "intruder").
		WillReturnRows(sqlmock.NewRows(thoughtCols))

	_, err := store.Thoughts().GetByID(context.Background(), "intruder", "t1")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestThoughtList_FiltersAndOrder(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .* FROM thoughts WHERE user_id = \$1 AND status = \$2 AND priority = \$3 ORDER BY mood_score DESC, id DESC`).
		WithArgs("u1", "pending", "high").
		WillReturnRows(sqlmock.NewRows(thoughtCols))

	list, err := store.Thoughts().List(context.Background(), "u1",
		model.ThoughtFilter{Status: "pending", Priority: "high"},
		repository.Sort{Column: "mood_score", Desc: true})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Len(t, list, 0)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestThoughtUpdate_WritesOnlyPatchedColumns(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec(`UPDATE thoughts SET requires_triage = \$1, status = \$2, updated_at = \$3 WHERE id = \$4 AND user_id = \$5`).
		WithArgs(true, "actioned", sqlmock.AnyArg(), "t1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM thoughts WHERE id = \$1 AND user_id = \$2`).
		WithArgs("t1", "u1").
		WillReturnRows(sqlmock.NewRows(thoughtCols).
			AddRow("t1", "u1", nil, "x", "task", nil, nil, "medium",
				nil, nil, "actioned", nil, true, now, now))

	th, err := store.Thoughts().Update(context.Background(), "u1", "t1", model.ThoughtPatch{
		Status:         model.Some("actioned"),
		RequiresTriage: model.Some(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "actioned", th.Status)
	assert.Equal(t, model.Tags{}, th.Tags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestThoughtUpdate_NoRowsIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE thoughts SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.Thoughts().Update(context.Background(), "u1", "t1", model.ThoughtPatch{})
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalDelete(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM goals WHERE id = \$1 AND user_id = \$2`).
		WithArgs("g1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := store.Goals().Delete(context.Background(), "u1", "g1")
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExec_DriverErrorPropagates(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("connection reset")
	mock.ExpectExec(`DELETE FROM thoughts`).WillReturnError(boom)

	_, err := store.Thoughts().Delete(context.Background(), "u1", "t1")
	assert.ErrorIs(t, err, boom)
}

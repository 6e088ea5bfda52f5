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

var _ repository.UserRepository = (*UserStore)(nil)

var userColumns = []string{"id", "email", "name", "password_hash", "created_at", "updated_at"}

// UserStore implements repository.UserRepository.
type UserStore struct {
	s *Store
}

func (s *Store) Users() *UserStore {
	return &UserStore{s: s}
}

// Create inserts a user, filling in ID and timestamps. A duplicate email
// returns apperror.ErrConflict.
func (u *UserStore) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := u.s.exec(ctx, u.s.sb.Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt, user.UpdatedAt))
	if err != nil {
		if u.s.dialect.IsUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("%s: creating user: %w", u.s.dialect.Name(), err)
	}
	return nil
}

func (u *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	found, err := u.s.selectOne(ctx, &user, u.s.sb.Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("%s: getting user %s: %w", u.s.dialect.Name(), id, err)
	}
	if !found {
		return nil, apperror.NotFound("user", id)
	}
	return &user, nil
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	found, err := u.s.selectOne(ctx, &user, u.s.sb.Select(userColumns...).
		From("users").
		Where(sq.Eq{"email": email}))
	if err != nil {
		return nil, fmt.Errorf("%s: getting user by email: %w", u.s.dialect.Name(), err)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

// Update writes only the fields present in changes and returns the fresh row.
func (u *UserStore) Update(ctx context.Context, id string, changes model.UserChanges) (*model.User, error) {
	set := map[string]any{"updated_at": time.Now().UTC()}
	if changes.Name.Set {
		set["name"] = changes.Name.Value
	}
	if changes.Email.Set {
		set["email"] = changes.Email.Value
	}
	if changes.PasswordHash.Set {
		set["password_hash"] = changes.PasswordHash.Value
	}

	res, err := u.s.exec(ctx, u.s.sb.Update("users").
		SetMap(set).
		Where(sq.Eq{"id": id}))
	if err != nil {
		if u.s.dialect.IsUniqueViolation(err) {
			return nil, apperror.Conflict("user", changes.Email.Value)
		}
		return nil, fmt.Errorf("%s: updating user %s: %w", u.s.dialect.Name(), id, err)
	}
	if res.Changes == 0 {
		return nil, apperror.NotFound("user", id)
	}

	return u.GetByID(ctx, id)
}

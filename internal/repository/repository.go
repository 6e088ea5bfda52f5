// Package repository defines the storage contracts the service layer depends on.
//
// Two backends implement them (repository/sqlite and repository/postgres,
// both built on repository/sqlstore). Which one runs is decided once in
// main; services never branch on the backend.
//
// Every single-resource operation on thoughts and goals takes the owner's
// user id. Implementations must filter on it, so a row owned by someone else
// behaves exactly like a row that does not exist.
package repository

import (
	"context"

	"github.com/sakif/omi/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail returns (nil, nil) when no user has that email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, id string, changes model.UserChanges) (*model.User, error)
}

type ThoughtRepository interface {
	Create(ctx context.Context, thought *model.Thought) error
	GetByID(ctx context.Context, userID, id string) (*model.Thought, error)
	List(ctx context.Context, userID string, filter model.ThoughtFilter, sort Sort) ([]model.Thought, error)
	Update(ctx context.Context, userID, id string, patch model.ThoughtPatch) (*model.Thought, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, userID, id string) (bool, error)
}

type GoalRepository interface {
	Create(ctx context.Context, goal *model.Goal) error
	GetByID(ctx context.Context, userID, id string) (*model.Goal, error)
	List(ctx context.Context, userID string, filter model.GoalFilter, sort Sort) ([]model.Goal, error)
	Update(ctx context.Context, userID, id string, patch model.GoalPatch) (*model.Goal, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
}

// Pinger is satisfied by both backends and used by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

package repository

import (
	"context"

	"github.com/fluffy-dev/The-Loom/internal/domain"
)

// UserRepository stores user accounts.
type UserRepository interface {
	// FindByUsername returns ErrUserNotFound when no user has that name.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByID returns ErrUserNotFound when the id is unknown.
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// Save inserts or updates the user. A taken username yields ErrDuplicateEntry.
	Save(ctx context.Context, user *domain.User) error
}

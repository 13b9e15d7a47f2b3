package repository

import (
	"context"
	"time"

	"github.com/fluffy-dev/The-Loom/internal/domain"
)

// RoomRepository is the durable room store.
type RoomRepository interface {
	// FindByID returns ErrRoomNotFound when the room does not exist.
	FindByID(ctx context.Context, id uint) (*domain.Room, error)

	// FindByPublicID looks a room up by its human-readable id.
	FindByPublicID(ctx context.Context, publicID string) (*domain.Room, error)

	// Save creates or updates a room. A clashing PublicID yields ErrDuplicateEntry.
	Save(ctx context.Context, room *domain.Room) error

	// CountByOwnerID returns how many rooms ownerID currently owns.
	CountByOwnerID(ctx context.Context, ownerID uint) (int64, error)

	// IsPublicIDExists reports whether a human-readable id is already taken.
	IsPublicIDExists(ctx context.Context, publicID string) (bool, error)

	// AddParticipant records that userID joined the room. Joining twice is a no-op.
	AddParticipant(ctx context.Context, roomID, userID uint) error

	// FindCreatedBefore returns rooms created before t with Files and Archives loaded.
	FindCreatedBefore(ctx context.Context, t time.Time) ([]domain.Room, error)

	// FindByPublicIDs returns the rooms that exist among publicIDs, with Files and Archives loaded.
	FindByPublicIDs(ctx context.Context, publicIDs []string) ([]domain.Room, error)

	// Delete removes the room and its participants, files and archives in one transaction.
	// Deleting a room that no longer exists is not an error.
	Delete(ctx context.Context, id uint) error
}

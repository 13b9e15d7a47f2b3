package repository

import (
	"context"

	"github.com/fluffy-dev/The-Loom/internal/domain"
)

// StateRepository holds the latest document snapshot per room key and the time it was written.
// It is a cache of convergent client state, not a source of truth.
type StateRepository interface {
	// GetSnapshot returns the last stored bytes. A never-written key yields (nil, false, nil).
	GetSnapshot(ctx context.Context, key domain.RoomKey) ([]byte, bool, error)

	// PutSnapshot replaces the snapshot and refreshes the key's activity timestamp.
	PutSnapshot(ctx context.Context, key domain.RoomKey, data []byte) error

	// ListActiveRoomKeys enumerates every key with a recorded activity timestamp.
	ListActiveRoomKeys(ctx context.Context) ([]domain.RoomActivity, error)

	// DeleteRoom removes the snapshot and activity timestamp of key. Absent keys are not an error.
	DeleteRoom(ctx context.Context, key domain.RoomKey) error
}

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fluffy-dev/The-Loom/internal/domain"
)

// RoomRepository is a testify mock of repository.RoomRepository.
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	args := m.Called(ctx, id)
	room, _ := args.Get(0).(*domain.Room)
	return room, args.Error(1)
}

func (m *RoomRepository) FindByPublicID(ctx context.Context, publicID string) (*domain.Room, error) {
	args := m.Called(ctx, publicID)
	room, _ := args.Get(0).(*domain.Room)
	return room, args.Error(1)
}

func (m *RoomRepository) Save(ctx context.Context, room *domain.Room) error {
	return m.Called(ctx, room).Error(0)
}

func (m *RoomRepository) CountByOwnerID(ctx context.Context, ownerID uint) (int64, error) {
	args := m.Called(ctx, ownerID)
	count, _ := args.Get(0).(int64)
	return count, args.Error(1)
}

func (m *RoomRepository) IsPublicIDExists(ctx context.Context, publicID string) (bool, error) {
	args := m.Called(ctx, publicID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepository) AddParticipant(ctx context.Context, roomID, userID uint) error {
	return m.Called(ctx, roomID, userID).Error(0)
}

func (m *RoomRepository) FindCreatedBefore(ctx context.Context, t time.Time) ([]domain.Room, error) {
	args := m.Called(ctx, t)
	rooms, _ := args.Get(0).([]domain.Room)
	return rooms, args.Error(1)
}

func (m *RoomRepository) FindByPublicIDs(ctx context.Context, publicIDs []string) ([]domain.Room, error) {
	args := m.Called(ctx, publicIDs)
	rooms, _ := args.Get(0).([]domain.Room)
	return rooms, args.Error(1)
}

func (m *RoomRepository) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

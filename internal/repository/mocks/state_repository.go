package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fluffy-dev/The-Loom/internal/domain"
)

// StateRepository is a testify mock of repository.StateRepository.
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) GetSnapshot(ctx context.Context, key domain.RoomKey) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Bool(1), args.Error(2)
}

func (m *StateRepository) PutSnapshot(ctx context.Context, key domain.RoomKey, data []byte) error {
	return m.Called(ctx, key, data).Error(0)
}

func (m *StateRepository) ListActiveRoomKeys(ctx context.Context) ([]domain.RoomActivity, error) {
	args := m.Called(ctx)
	acts, _ := args.Get(0).([]domain.RoomActivity)
	return acts, args.Error(1)
}

func (m *StateRepository) DeleteRoom(ctx context.Context, key domain.RoomKey) error {
	return m.Called(ctx, key).Error(0)
}

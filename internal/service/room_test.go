package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fluffy-dev/The-Loom/internal/domain"
	"github.com/fluffy-dev/The-Loom/internal/repository"
	"github.com/fluffy-dev/The-Loom/internal/repository/mocks"
	"github.com/fluffy-dev/The-Loom/internal/service"
)

func TestRoomService_CreateRoom(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	roomService := service.NewRoomService(mockRoomRepo)
	ctx := context.Background()

	mockRoomRepo.On("CountByOwnerID", ctx, uint(3)).Return(int64(2), nil).Once()
	mockRoomRepo.On("IsPublicIDExists", ctx, mock.AnythingOfType("string")).Return(true, nil).Once()
	mockRoomRepo.On("IsPublicIDExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	mockRoomRepo.On("Save", ctx, mock.AnythingOfType("*domain.Room")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Room).ID = 9 }).
		Return(nil).Once()
	mockRoomRepo.On("AddParticipant", ctx, uint(9), uint(3)).Return(nil).Once()

	room, err := roomService.CreateRoom(ctx, 3)

	require.NoError(t, err)
	assert.Equal(t, uint(3), room.OwnerID)
	assert.Len(t, room.PublicID, 10)
	assert.Regexp(t, "^[a-z0-9]+$", room.PublicID)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomService_CreateRoom_SaveFails(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	roomService := service.NewRoomService(mockRoomRepo)
	ctx := context.Background()

	mockRoomRepo.On("CountByOwnerID", ctx, uint(3)).Return(int64(0), nil).Once()
	mockRoomRepo.On("IsPublicIDExists", ctx, mock.Anything).Return(false, nil).Once()
	mockRoomRepo.On("Save", ctx, mock.Anything).Return(errors.New("db down")).Once()

	_, err := roomService.CreateRoom(ctx, 3)

	assert.ErrorIs(t, err, service.ErrInternalServer)
	mockRoomRepo.AssertNotCalled(t, "AddParticipant", mock.Anything, mock.Anything, mock.Anything)
}

func TestRoomService_CreateRoom_LimitReached(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	roomService := service.NewRoomService(mockRoomRepo)
	ctx := context.Background()

	mockRoomRepo.On("CountByOwnerID", ctx, uint(3)).Return(int64(service.MaxRoomsPerUser), nil).Once()

	room, err := roomService.CreateRoom(ctx, 3)

	assert.Nil(t, room)
	assert.ErrorIs(t, err, service.ErrRoomLimitExceeded)
	mockRoomRepo.AssertNotCalled(t, "IsPublicIDExists", mock.Anything, mock.Anything)
	mockRoomRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomService_CreateRoom_CountFails(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	roomService := service.NewRoomService(mockRoomRepo)
	ctx := context.Background()

	mockRoomRepo.On("CountByOwnerID", ctx, uint(3)).Return(int64(0), errors.New("db down")).Once()

	_, err := roomService.CreateRoom(ctx, 3)

	assert.ErrorIs(t, err, service.ErrInternalServer)
	mockRoomRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRoomService_FindRoomByPublicID(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	roomService := service.NewRoomService(mockRoomRepo)
	ctx := context.Background()

	mockRoomRepo.On("FindByPublicID", ctx, "abc123").Return(&domain.Room{ID: 1, PublicID: "abc123"}, nil).Once()
	mockRoomRepo.On("FindByPublicID", ctx, "missing").Return(nil, repository.ErrRoomNotFound).Once()

	room, err := roomService.FindRoomByPublicID(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, uint(1), room.ID)

	_, err = roomService.FindRoomByPublicID(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}

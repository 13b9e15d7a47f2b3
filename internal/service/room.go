package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fluffy-dev/The-Loom/internal/domain"
	"github.com/fluffy-dev/The-Loom/internal/repository"
)

const (
	publicIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	publicIDLength   = 10
	maxIDAttempts    = 10

	// MaxRoomsPerUser caps how many rooms one user may own at a time.
	MaxRoomsPerUser = 3
)

// RoomService creates rooms and resolves them by public id.
type RoomService struct {
	roomRepo repository.RoomRepository
}

// NewRoomService creates a RoomService.
func NewRoomService(roomRepo repository.RoomRepository) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo}
}

// CreateRoom stores a new room owned by ownerID and adds the owner as its first participant.
// It returns ErrRoomLimitExceeded once the owner already has MaxRoomsPerUser rooms.
func (s *RoomService) CreateRoom(ctx context.Context, ownerID uint) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": ownerID, "operation": "create_room"})

	// 1. enforce the per-user limit
	owned, err := s.roomRepo.CountByOwnerID(ctx, ownerID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to count rooms of owner")
		return nil, ErrInternalServer
	}
	if owned >= MaxRoomsPerUser {
		logCtx.WithField("owned", owned).Info("Room limit reached")
		return nil, ErrRoomLimitExceeded
	}

	// 2. pick an unused public id
	publicID, err := s.generateUniquePublicID(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate room id")
		return nil, ErrInternalServer
	}
	logCtx = logCtx.WithField("room_id", publicID)

	// 3. persist the room, then the owner as its first participant
	room := &domain.Room{PublicID: publicID, OwnerID: ownerID}
	if err := s.roomRepo.Save(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to save new room")
		return nil, ErrInternalServer
	}
	if err := s.roomRepo.AddParticipant(ctx, room.ID, ownerID); err != nil {
		logCtx.WithError(err).Error("Failed to add owner as participant")
		return nil, ErrInternalServer
	}

	logCtx.Info("Room created")
	return room, nil
}

// FindRoomByPublicID returns ErrRoomNotFound for unknown ids.
func (s *RoomService) FindRoomByPublicID(ctx context.Context, publicID string) (*domain.Room, error) {
	logCtx := logrus.WithField("room_id", publicID)
	room, err := s.roomRepo.FindByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			logCtx.Debug("FindRoomByPublicID: room not found")
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("FindRoomByPublicID: repository error")
		return nil, ErrInternalServer
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (s *RoomService) generateUniquePublicID(ctx context.Context) (string, error) {
	b := make([]byte, publicIDLength)
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for i := range b {
			b[i] = publicIDAlphabet[int(b[i])%len(publicIDAlphabet)]
		}
		id := string(b)

		exists, err := s.roomRepo.IsPublicIDExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("database error checking room id: %w", err)
		}
		if !exists {
			return id, nil
		}
		logrus.WithField("room_id", id).Warnf("Generated room id already exists, retrying (attempt %d)", attempt+1)
	}
	return "", fmt.Errorf("failed to generate a unique room id after %d attempts", maxIDAttempts)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fluffy-dev/The-Loom/internal/domain"
	"github.com/fluffy-dev/The-Loom/internal/repository"
)

// DefaultStateWriteTimeout bounds a single snapshot write.
const DefaultStateWriteTimeout = 5 * time.Second

// DocumentService reads and writes document snapshots for relay sessions.
type DocumentService struct {
	stateRepo    repository.StateRepository
	writeTimeout time.Duration
}

// NewDocumentService creates a DocumentService. writeTimeout <= 0 uses DefaultStateWriteTimeout.
func NewDocumentService(stateRepo repository.StateRepository, writeTimeout time.Duration) *DocumentService {
	if stateRepo == nil {
		panic("StateRepository cannot be nil for DocumentService")
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultStateWriteTimeout
	}
	return &DocumentService{stateRepo: stateRepo, writeTimeout: writeTimeout}
}

// LoadSnapshot returns the latest snapshot for key, or ok=false if none was ever written.
func (s *DocumentService) LoadSnapshot(ctx context.Context, key domain.RoomKey) ([]byte, bool, error) {
	if err := key.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidRoomKey, err)
	}
	data, ok, err := s.stateRepo.GetSnapshot(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return data, ok, nil
}

// SaveSnapshot overwrites the snapshot for key. The write is cut off after the write timeout.
func (s *DocumentService) SaveSnapshot(ctx context.Context, key domain.RoomKey, data []byte) error {
	if err := key.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRoomKey, err)
	}
	// a slow store must not hold up the relay loop
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.stateRepo.PutSnapshot(ctx, key, data); err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fluffy-dev/The-Loom/internal/domain"
	"github.com/fluffy-dev/The-Loom/internal/repository"
)

// GormRoomRepository implements repository.RoomRepository.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a GormRoomRepository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

// FindByID looks a room up by primary key.
func (r *GormRoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %d: %w", id, err)
	}
	return &room, nil
}

// FindByPublicID looks a room up by its human-readable id, with files and archives loaded.
func (r *GormRoomRepository) FindByPublicID(ctx context.Context, publicID string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).
		Preload("Files").
		Preload("Archives", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Where("public_id = ?", publicID).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by public id '%s': %w", publicID, err)
	}
	return &room, nil
}

// Save creates or updates the room row only; associations are managed by their own methods.
func (r *GormRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	err := r.db.WithContext(ctx).Omit("Participants", "Files", "Archives").Save(room).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save room (id: %d, public_id: %s): %w", room.ID, room.PublicID, err)
	}
	return nil
}

// CountByOwnerID counts the rooms owned by ownerID.
func (r *GormRoomRepository) CountByOwnerID(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("owner_id = ?", ownerID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count rooms by owner %d: %w", ownerID, err)
	}
	return count, nil
}

// IsPublicIDExists counts rooms with the given public id.
func (r *GormRoomRepository) IsPublicIDExists(ctx context.Context, publicID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("public_id = ?", publicID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count rooms by public id '%s': %w", publicID, err)
	}
	return count > 0, nil
}

// AddParticipant inserts a participant row unless one already exists.
func (r *GormRoomRepository) AddParticipant(ctx context.Context, roomID, userID uint) error {
	participant := domain.RoomParticipant{RoomID: roomID, UserID: userID}
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		FirstOrCreate(&participant).Error
	if err != nil {
		return fmt.Errorf("gorm: add participant (room: %d, user: %d): %w", roomID, userID, err)
	}
	return nil
}

// FindCreatedBefore returns rooms past their lifetime, ready for artifact deletion.
func (r *GormRoomRepository) FindCreatedBefore(ctx context.Context, t time.Time) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Preload("Files").
		Preload("Archives").
		Where("created_at < ?", t).
		Order("id").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find rooms created before %s: %w", t.Format(time.RFC3339), err)
	}
	return rooms, nil
}

// FindByPublicIDs loads the rooms among publicIDs that still exist.
func (r *GormRoomRepository) FindByPublicIDs(ctx context.Context, publicIDs []string) ([]domain.Room, error) {
	var rooms []domain.Room
	if len(publicIDs) == 0 {
		return rooms, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Files").
		Preload("Archives").
		Where("public_id IN ?", publicIDs).
		Order("id").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find rooms by public ids: %w", err)
	}
	return rooms, nil
}

// Delete removes children then the room in one transaction. The FK cascade covers
// rows inserted by other writers between the child deletes and the parent delete.
func (r *GormRoomRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		children := []interface{}{&domain.RoomParticipant{}, &domain.File{}, &domain.SnapshotArchive{}}
		for _, child := range children {
			if err := tx.Where("room_id = ?", id).Delete(child).Error; err != nil {
				return fmt.Errorf("delete %T rows: %w", child, err)
			}
		}
		return tx.Delete(&domain.Room{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("gorm: delete room %d: %w", id, err)
	}
	return nil
}

package domain

import "time"

// Room is a collaboration room. Documents inside it are relayed per RoomKey.
type Room struct {
	ID        uint      `gorm:"primaryKey"`
	PublicID  string    `gorm:"uniqueIndex;size:16;not null"` // human-readable id used in URLs
	OwnerID   uint      `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"` // drives lifetime expiry
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Participants []RoomParticipant `gorm:"constraint:OnDelete:CASCADE"`
	Files        []File            `gorm:"constraint:OnDelete:CASCADE"`
	Archives     []SnapshotArchive `gorm:"constraint:OnDelete:CASCADE"`
}

// RoomParticipant records that a user joined a room.
type RoomParticipant struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uint      `gorm:"index;not null"`
	UserID    uint      `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Expired reports whether the room is older than lifetime at now.
func (r *Room) Expired(now time.Time, lifetime time.Duration) bool {
	return r.CreatedAt.Before(now.Add(-lifetime))
}

package domain

import (
	"strconv"
	"time"
)

// File is the metadata of an uploaded file. Each file is an independent relay channel
// inside its room; the file id on the wire is the decimal ID.
type File struct {
	ID           uint      `gorm:"primaryKey"`
	RoomID       uint      `gorm:"index;not null"`
	OriginalName string    `gorm:"size:255;not null"`
	DiskPath     string    `gorm:"size:512;uniqueIndex;not null"`
	SizeBytes    int64     `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// WireID is the file_id clients use when opening a session for this file.
func (f *File) WireID() string {
	return strconv.FormatUint(uint64(f.ID), 10)
}

// SnapshotArchive is a point-in-time zip of every file in a room.
type SnapshotArchive struct {
	ID          uint      `gorm:"primaryKey"`
	RoomID      uint      `gorm:"index;not null"`
	ArchivePath string    `gorm:"size:512;uniqueIndex;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

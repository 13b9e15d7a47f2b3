package domain

import (
	"errors"
	"strings"
	"time"
)

// RoomKey identifies one collaboratively edited document: a file inside a room.
type RoomKey struct {
	RoomID string
	FileID string
}

// ErrInvalidRoomKey is returned when a room key is empty or cannot be parsed.
var ErrInvalidRoomKey = errors.New("invalid room key")

// String renders the key as "room/file".
func (k RoomKey) String() string {
	return k.RoomID + "/" + k.FileID
}

// Validate rejects keys that could not have come from a URL path segment pair.
func (k RoomKey) Validate() error {
	if k.RoomID == "" || k.FileID == "" {
		return ErrInvalidRoomKey
	}
	if strings.Contains(k.RoomID, "/") || strings.Contains(k.FileID, "/") {
		return ErrInvalidRoomKey
	}
	return nil
}

// ParseRoomKey is the inverse of RoomKey.String.
func ParseRoomKey(s string) (RoomKey, error) {
	room, file, ok := strings.Cut(s, "/")
	key := RoomKey{RoomID: room, FileID: file}
	if !ok {
		return RoomKey{}, ErrInvalidRoomKey
	}
	if err := key.Validate(); err != nil {
		return RoomKey{}, err
	}
	return key, nil
}

// RoomActivity is the last write time recorded for a room key.
type RoomActivity struct {
	Key        RoomKey
	LastActive time.Time
}

// SyncFrameKind prefixes the bootstrap frame sent to a newly joined connection.
var SyncFrameKind = [2]byte{0x00, 0x00}

// SyncFrame wraps a stored document snapshot in the sync envelope.
func SyncFrame(snapshot []byte) []byte {
	frame := make([]byte, 0, len(SyncFrameKind)+len(snapshot))
	frame = append(frame, SyncFrameKind[:]...)
	return append(frame, snapshot...)
}

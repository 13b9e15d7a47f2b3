package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomLimitExceeded    = errors.New("room limit reached for this user")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrRegistrationFailed   = errors.New("registration failed: username already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidRoomKey       = errors.New("invalid room key")
	ErrInternalServer       = errors.New("internal server error")
)

package repository

import "context"

// FileStorage is where uploaded files and snapshot archives live.
type FileStorage interface {
	// Delete removes the object at path. A missing object is not an error.
	Delete(ctx context.Context, path string) error
}

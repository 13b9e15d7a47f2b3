package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// FileStorage is a testify mock of repository.FileStorage.
type FileStorage struct {
	mock.Mock
}

func (m *FileStorage) Delete(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

package gormpersistence_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fluffy-dev/The-Loom/internal/domain"
	gormpersistence "github.com/fluffy-dev/The-Loom/internal/infra/persistence/gorm"
	"github.com/fluffy-dev/The-Loom/internal/infra/setup"
	"github.com/fluffy-dev/The-Loom/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, setup.MigrateDB(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedRoom(t *testing.T, db *gorm.DB, publicID string, createdAt time.Time) *domain.Room {
	t.Helper()
	room := &domain.Room{PublicID: publicID, OwnerID: 1, CreatedAt: createdAt}
	require.NoError(t, db.Create(room).Error)
	require.NoError(t, db.Create(&domain.File{RoomID: room.ID, OriginalName: "a.txt", DiskPath: "/tmp/" + publicID + "/a.txt", SizeBytes: 3}).Error)
	require.NoError(t, db.Create(&domain.SnapshotArchive{RoomID: room.ID, ArchivePath: "/tmp/" + publicID + ".zip"}).Error)
	require.NoError(t, db.Create(&domain.RoomParticipant{RoomID: room.ID, UserID: 1}).Error)
	return room
}

func TestGormRoomRepository_FindCreatedBefore(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormRoomRepository(db)
	ctx := context.Background()
	now := time.Now()

	old := seedRoom(t, db, "old", now.Add(-8*24*time.Hour))
	seedRoom(t, db, "fresh", now.Add(-time.Hour))

	rooms, err := repo.FindCreatedBefore(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, old.ID, rooms[0].ID)
	assert.Len(t, rooms[0].Files, 1, "files should be preloaded")
	assert.Len(t, rooms[0].Archives, 1, "archives should be preloaded")
}

func TestGormRoomRepository_FindByPublicIDs(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormRoomRepository(db)
	ctx := context.Background()

	seedRoom(t, db, "r1", time.Now())
	seedRoom(t, db, "r2", time.Now())

	rooms, err := repo.FindByPublicIDs(ctx, []string{"r2", "ghost"})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "r2", rooms[0].PublicID)

	rooms, err = repo.FindByPublicIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestGormRoomRepository_DeleteCascadesAndIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormRoomRepository(db)
	ctx := context.Background()

	room := seedRoom(t, db, "gone", time.Now())
	keep := seedRoom(t, db, "keep", time.Now())

	require.NoError(t, repo.Delete(ctx, room.ID))
	require.NoError(t, repo.Delete(ctx, room.ID), "second delete must be a no-op")

	_, err := repo.FindByID(ctx, room.ID)
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)

	var files, archives, participants int64
	db.Model(&domain.File{}).Where("room_id = ?", room.ID).Count(&files)
	db.Model(&domain.SnapshotArchive{}).Where("room_id = ?", room.ID).Count(&archives)
	db.Model(&domain.RoomParticipant{}).Where("room_id = ?", room.ID).Count(&participants)
	assert.Zero(t, files)
	assert.Zero(t, archives)
	assert.Zero(t, participants)

	_, err = repo.FindByID(ctx, keep.ID)
	assert.NoError(t, err, "other rooms must survive")
}

func TestGormRoomRepository_FindByPublicIDLoadsFilesAndArchives(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormRoomRepository(db)
	seedRoom(t, db, "detail", time.Now())

	room, err := repo.FindByPublicID(context.Background(), "detail")
	require.NoError(t, err)
	assert.Len(t, room.Files, 1)
	require.Len(t, room.Archives, 1)
	assert.Equal(t, "/tmp/detail.zip", room.Archives[0].ArchivePath)
}

func TestGormRoomRepository_CountByOwnerID(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormRoomRepository(db)
	ctx := context.Background()

	seedRoom(t, db, "one", time.Now())
	seedRoom(t, db, "two", time.Now())
	require.NoError(t, repo.Save(ctx, &domain.Room{PublicID: "other", OwnerID: 2}))

	count, err := repo.CountByOwnerID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.CountByOwnerID(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGormRoomRepository_SaveDuplicatePublicID(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormRoomRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &domain.Room{PublicID: "dup", OwnerID: 1}))
	err := repo.Save(ctx, &domain.Room{PublicID: "dup", OwnerID: 2})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

	exists, err := repo.IsPublicIDExists(ctx, "dup")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGormRoomRepository_AddParticipantTwice(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormRoomRepository(db)
	ctx := context.Background()

	room := &domain.Room{PublicID: "party", OwnerID: 1}
	require.NoError(t, repo.Save(ctx, room))
	require.NoError(t, repo.AddParticipant(ctx, room.ID, 7))
	require.NoError(t, repo.AddParticipant(ctx, room.ID, 7))

	var count int64
	db.Model(&domain.RoomParticipant{}).Where("room_id = ?", room.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGormUserRepository(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Username: "ada", Password: "hash", Email: "ada@example.com"}
	require.NoError(t, repo.Save(ctx, user))
	require.NotZero(t, user.ID)

	found, err := repo.FindByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByID(ctx, user.ID+100)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	err = repo.Save(ctx, &domain.User{Username: "ada", Password: "x"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
}

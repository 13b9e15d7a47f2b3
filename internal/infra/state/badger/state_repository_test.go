package badgerstate

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluffy-dev/The-Loom/internal/domain"
)

func newTestRepository(t *testing.T) *BadgerStateRepository {
	t.Helper()
	db, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerStateRepository(db)
}

func TestBadgerStateRepository_RoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	key := domain.RoomKey{RoomID: "abc123", FileID: "doc1"}

	_, ok, err := repo.GetSnapshot(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.PutSnapshot(ctx, key, []byte{0x01}))
	require.NoError(t, repo.PutSnapshot(ctx, key, []byte{0x02, 0x03}))

	data, ok, err := repo.GetSnapshot(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{0x02, 0x03}, data)
}

func TestBadgerStateRepository_ListActiveRoomKeys(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	stamp := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	repo.now = func() time.Time { return stamp }

	keys := []domain.RoomKey{{RoomID: "a", FileID: "1"}, {RoomID: "b", FileID: "2"}}
	for _, k := range keys {
		require.NoError(t, repo.PutSnapshot(ctx, k, []byte("x")))
	}

	activities, err := repo.ListActiveRoomKeys(ctx)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	for _, act := range activities {
		assert.Contains(t, keys, act.Key)
		assert.True(t, act.LastActive.Equal(stamp))
	}
}

func TestBadgerStateRepository_ListActiveRoomKeys_SkipsCorruptEntries(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	good := domain.RoomKey{RoomID: "good", FileID: "1"}
	require.NoError(t, repo.PutSnapshot(ctx, good, []byte("x")))

	require.NoError(t, repo.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(activityKey(domain.RoomKey{RoomID: "short", FileID: "1"}), []byte{0x01, 0x02, 0x03}); err != nil {
			return err
		}
		return txn.Set([]byte(activityPrefix+"no-separator"), make([]byte, 8))
	}))

	activities, err := repo.ListActiveRoomKeys(ctx)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, good, activities[0].Key)
}

func TestBadgerStateRepository_DeleteRoom_Idempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	key := domain.RoomKey{RoomID: "a", FileID: "1"}

	require.NoError(t, repo.PutSnapshot(ctx, key, []byte("x")))
	require.NoError(t, repo.DeleteRoom(ctx, key))
	require.NoError(t, repo.DeleteRoom(ctx, key))

	_, ok, err := repo.GetSnapshot(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	activities, err := repo.ListActiveRoomKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, activities)
}

package badgerstate

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/fluffy-dev/The-Loom/internal/domain"
)

const (
	docPrefix      = "doc/"
	activityPrefix = "activity/"
)

// BadgerStateRepository implements repository.StateRepository on an embedded Badger
// database, for single-instance deployments without Redis.
type BadgerStateRepository struct {
	db  *badger.DB
	now func() time.Time
}

// NewBadgerStateRepository wraps an open Badger database.
func NewBadgerStateRepository(db *badger.DB) *BadgerStateRepository {
	if db == nil {
		panic("badger db cannot be nil for BadgerStateRepository")
	}
	return &BadgerStateRepository{db: db, now: time.Now}
}

// Open opens (or creates) a Badger database at path. An empty path means in-memory.
func Open(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %q: %w", path, err)
	}
	return db, nil
}

func documentKey(key domain.RoomKey) []byte {
	return []byte(docPrefix + key.String())
}

func activityKey(key domain.RoomKey) []byte {
	return []byte(activityPrefix + key.String())
}

// GetSnapshot returns a copy of the stored value; Badger values are only valid inside the txn.
func (r *BadgerStateRepository) GetSnapshot(ctx context.Context, key domain.RoomKey) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var data []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger: failed to get snapshot for %s: %w", key, err)
	}
	return data, true, nil
}

// PutSnapshot writes the document and its activity timestamp in one transaction.
func (r *BadgerStateRepository) PutSnapshot(ctx context.Context, key domain.RoomKey, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stamp := make([]byte, 8)
	binary.BigEndian.PutUint64(stamp, uint64(r.now().UnixNano()))

	err := r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(documentKey(key), data); err != nil {
			return err
		}
		return txn.Set(activityKey(key), stamp)
	})
	if err != nil {
		return fmt.Errorf("badger: failed to put snapshot for %s: %w", key, err)
	}
	return nil
}

// ListActiveRoomKeys walks the activity prefix.
func (r *BadgerStateRepository) ListActiveRoomKeys(ctx context.Context) ([]domain.RoomActivity, error) {
	var activities []domain.RoomActivity
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(activityPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			raw := strings.TrimPrefix(string(item.Key()), activityPrefix)
			key, err := domain.ParseRoomKey(raw)
			if err != nil {
				logrus.WithField("key", raw).Warn("badger: skipping malformed activity key")
				continue
			}
			err = item.Value(func(val []byte) error {
				// one bad value must not hide every other room from the reaper
				if len(val) != 8 {
					logrus.WithFields(logrus.Fields{"key": raw, "bytes": len(val)}).
						Warn("badger: skipping malformed activity value")
					return nil
				}
				activities = append(activities, domain.RoomActivity{
					Key:        key,
					LastActive: time.Unix(0, int64(binary.BigEndian.Uint64(val))),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: failed to list activity: %w", err)
	}
	return activities, nil
}

// DeleteRoom removes both keys; Badger deletes of missing keys succeed.
func (r *BadgerStateRepository) DeleteRoom(ctx context.Context, key domain.RoomKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(documentKey(key)); err != nil {
			return err
		}
		return txn.Delete(activityKey(key))
	})
	if err != nil {
		return fmt.Errorf("badger: failed to delete state for %s: %w", key, err)
	}
	return nil
}

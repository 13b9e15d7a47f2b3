package redisstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/fluffy-dev/The-Loom/internal/domain"
)

// RedisStateRepository implements repository.StateRepository on Redis.
//
// Snapshots live in plain string keys; activity timestamps share a single sorted set
// scored by unix milliseconds so the reaper can read all of them in one round trip.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewRedisStateRepository creates a RedisStateRepository.
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "loom:"
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

func (r *RedisStateRepository) documentKey(key domain.RoomKey) string {
	return fmt.Sprintf("%sdoc:%s:%s", r.keyPrefix, key.RoomID, key.FileID)
}

func (r *RedisStateRepository) activityKey() string {
	return r.keyPrefix + "activity"
}

// GetSnapshot returns the stored document bytes for key.
func (r *RedisStateRepository) GetSnapshot(ctx context.Context, key domain.RoomKey) ([]byte, bool, error) {
	docKey := r.documentKey(key)
	data, err := r.client.Get(ctx, docKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: failed to get snapshot for %s from %s: %w", key, docKey, err)
	}
	return data, true, nil
}

// PutSnapshot overwrites the snapshot and bumps the activity score in one MULTI/EXEC.
func (r *RedisStateRepository) PutSnapshot(ctx context.Context, key domain.RoomKey, data []byte) error {
	docKey := r.documentKey(key)
	score := float64(r.now().UnixMilli())
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, docKey, data, 0)
		pipe.ZAdd(ctx, r.activityKey(), &redis.Z{Score: score, Member: key.String()})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: failed to put snapshot for %s on %s: %w", key, docKey, err)
	}
	return nil
}

// ListActiveRoomKeys reads the whole activity index.
func (r *RedisStateRepository) ListActiveRoomKeys(ctx context.Context) ([]domain.RoomActivity, error) {
	entries, err := r.client.ZRangeWithScores(ctx, r.activityKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to list activity from %s: %w", r.activityKey(), err)
	}

	activities := make([]domain.RoomActivity, 0, len(entries))
	for _, entry := range entries {
		member, ok := entry.Member.(string)
		if !ok {
			continue
		}
		key, err := domain.ParseRoomKey(member)
		if err != nil {
			logrus.WithField("member", member).Warn("redis: skipping malformed activity member")
			continue
		}
		activities = append(activities, domain.RoomActivity{
			Key:        key,
			LastActive: time.UnixMilli(int64(entry.Score)),
		})
	}
	return activities, nil
}

// DeleteRoom drops the snapshot and its activity entry. DEL and ZREM tolerate absence.
func (r *RedisStateRepository) DeleteRoom(ctx context.Context, key domain.RoomKey) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.documentKey(key))
		pipe.ZRem(ctx, r.activityKey(), key.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: failed to delete state for %s: %w", key, err)
	}
	return nil
}

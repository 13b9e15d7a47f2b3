package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeRoomCleanup = "room:cleanup"
)

// RoomCleanupPayload carries the time the pass was scheduled, for logging only.
type RoomCleanupPayload struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

// NewRoomCleanupTask builds the periodic cleanup task. Uniqueness over the interval
// keeps concurrent schedulers from enqueuing the same pass twice.
func NewRoomCleanupTask(interval time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(RoomCleanupPayload{ScheduledAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.MaxRetry(0), asynq.Queue("default")}
	if interval > time.Second {
		opts = append(opts, asynq.Unique(interval-time.Second))
	}
	return asynq.NewTask(TypeRoomCleanup, payload, opts...), nil
}

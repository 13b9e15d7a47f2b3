package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/fluffy-dev/The-Loom/internal/service"
)

// Cleaner runs one cleanup pass.
type Cleaner interface {
	RunPass(ctx context.Context) (service.CleanupReport, error)
}

// RoomCleanupHandler processes tasks.TypeRoomCleanup.
type RoomCleanupHandler struct {
	cleaner Cleaner
}

func NewRoomCleanupHandler(cleaner Cleaner) *RoomCleanupHandler {
	if cleaner == nil {
		panic("Cleaner cannot be nil for RoomCleanupHandler")
	}
	return &RoomCleanupHandler{cleaner: cleaner}
}

// ProcessTask implements asynq.Handler. A failed pass is not retried; the next tick retries.
func (h *RoomCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	logCtx := logrus.WithFields(logrus.Fields{"task_id": taskID, "task_type": t.Type()})
	logCtx.Info("Processing room cleanup task")

	report, err := h.cleaner.RunPass(ctx)
	logReport(logCtx, report, err, ctx.Err())
	if err != nil {
		return fmt.Errorf("cleanup pass: %v: %w", err, asynq.SkipRetry)
	}
	return nil
}

func logReport(logCtx *logrus.Entry, report service.CleanupReport, err, ctxErr error) {
	logCtx = logCtx.WithFields(logrus.Fields{
		"expired":  report.ExpiredRooms,
		"inactive": report.InactiveRooms,
		"deleted":  report.DeletedRooms,
		"skipped":  report.SkippedRooms,
		"orphans":  report.OrphanKeys,
	})
	switch {
	case report.Interrupted || ctxErr != nil:
		logCtx.Warn("Cleanup pass interrupted")
	case err != nil:
		logCtx.WithError(err).Error("Cleanup pass finished with errors")
	default:
		logCtx.Info("Cleanup pass completed")
	}
}

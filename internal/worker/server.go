package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/fluffy-dev/The-Loom/internal/tasks"
)

// WorkerServer hosts the asynq server and scheduler for REAPER_MODE=asynq.
type WorkerServer struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	cleaner   Cleaner
	interval  time.Duration
	log       *logrus.Entry
}

func NewWorkerServer(redisOpt asynq.RedisClientOpt, cleaner Cleaner, interval time.Duration, logger *logrus.Logger) *WorkerServer {
	if cleaner == nil {
		panic("Cleaner cannot be nil for WorkerServer")
	}
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{"default": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			taskID := ""
			if rw := task.ResultWriter(); rw != nil {
				taskID = rw.TaskID()
			}
			logEntry.WithFields(logrus.Fields{"task_id": taskID, "task_type": task.Type()}).
				WithError(err).Error("Task failed")
		}),
		Logger:   newAsynqLogger(logEntry),
		LogLevel: asynq.WarnLevel,
	})
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   newAsynqLogger(logEntry.WithField("component", "scheduler")),
		LogLevel: asynq.WarnLevel,
	})

	return &WorkerServer{
		server:    server,
		scheduler: scheduler,
		cleaner:   cleaner,
		interval:  interval,
		log:       logEntry,
	}
}

// NewMux routes task types to their handlers.
func NewMux(cleaner Cleaner) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeRoomCleanup, NewRoomCleanupHandler(cleaner))
	return mux
}

// Start registers the periodic cleanup task and starts the server and scheduler.
func (ws *WorkerServer) Start() error {
	task, err := tasks.NewRoomCleanupTask(ws.interval)
	if err != nil {
		return fmt.Errorf("build cleanup task: %w", err)
	}
	schedule := fmt.Sprintf("@every %ds", int(ws.interval.Seconds()))
	entryID, err := ws.scheduler.Register(schedule, task)
	if err != nil {
		return fmt.Errorf("register periodic cleanup: %w", err)
	}
	ws.log.WithFields(logrus.Fields{"schedule": schedule, "entry_id": entryID}).Info("Periodic room cleanup registered")

	if err := ws.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := ws.server.Start(NewMux(ws.cleaner)); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
		ws.scheduler.Shutdown()
		return fmt.Errorf("start worker server: %w", err)
	}
	ws.log.Info("Worker server started")
	return nil
}

func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.scheduler.Shutdown()
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete")
}

// asynqLogger adapts logrus to asynq.Logger.
type asynqLogger struct {
	entry *logrus.Entry
}

func newAsynqLogger(entry *logrus.Entry) *asynqLogger { return &asynqLogger{entry: entry} }

func (l *asynqLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *asynqLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *asynqLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *asynqLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }

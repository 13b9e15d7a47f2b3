package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/fluffy-dev/The-Loom/internal/handler/http"
	wsHandler "github.com/fluffy-dev/The-Loom/internal/handler/websocket"
	"github.com/fluffy-dev/The-Loom/internal/hub"
	gormpersistence "github.com/fluffy-dev/The-Loom/internal/infra/persistence/gorm"
	"github.com/fluffy-dev/The-Loom/internal/infra/setup"
	badgerstate "github.com/fluffy-dev/The-Loom/internal/infra/state/badger"
	redisstate "github.com/fluffy-dev/The-Loom/internal/infra/state/redis"
	"github.com/fluffy-dev/The-Loom/internal/infra/storage"
	"github.com/fluffy-dev/The-Loom/internal/repository"
	"github.com/fluffy-dev/The-Loom/internal/service"
	"github.com/fluffy-dev/The-Loom/internal/worker"
)

// App holds every long-lived component of the relay process.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Badger      *badger.DB
	Hub         *hub.Hub
	Cleanup     *service.CleanupService
	HttpServer  *http.Server

	reaper       *worker.Reaper
	workerServer *worker.WorkerServer
	cancelReaper context.CancelFunc
	reaperDone   sync.WaitGroup
}

// OpenDB connects to and migrates the relational store.
func OpenDB(cfg *Config, log *logrus.Logger) (*gorm.DB, error) {
	db, err := setup.InitDB(cfg.DBOptions(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database migrated")
	return db, nil
}

// NewApp builds the application from cfg. Nothing is started.
func NewApp(ctx context.Context, cfg *Config, log *logrus.Logger) (*App, error) {
	app := &App{Config: cfg, Log: log}

	log.Info("Initializing infrastructure...")
	db, err := OpenDB(cfg, log)
	if err != nil {
		return nil, err
	}
	app.DB = db

	if cfg.NeedsRedis() {
		app.RedisClient, err = setup.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			app.closeStores()
			return nil, fmt.Errorf("failed to init Redis: %w", err)
		}
		log.Info("Redis client initialized")
	}

	stateRepo, err := app.newStateRepository()
	if err != nil {
		app.closeStores()
		return nil, err
	}
	fileStorage, err := newFileStorage(ctx, cfg)
	if err != nil {
		app.closeStores()
		return nil, err
	}
	log.WithFields(logrus.Fields{"state": cfg.StateBackend, "files": cfg.FileStorage}).Info("Infrastructure initialized")

	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormRoomRepository(db)

	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	roomService := service.NewRoomService(roomRepo)
	docService := service.NewDocumentService(stateRepo, cfg.StateWriteTimeout)
	app.Cleanup = service.NewCleanupService(roomRepo, stateRepo, fileStorage, cfg.CleanupConfig())

	app.Hub = hub.NewHub()
	ws := wsHandler.NewWebSocketHandler(app.Hub, docService, authService, roomService, wsHandler.Options{
		AllowedOrigin: cfg.CORSAllowedOrigin,
		Session: hub.SessionConfig{
			SendBuffer:      cfg.WSSendBuffer,
			WriteTimeout:    cfg.WSWriteTimeout,
			LoadTimeout:     cfg.StateWriteTimeout,
			MaxMessageBytes: cfg.WSMaxMessageBytes,
		},
	})

	switch cfg.ReaperMode {
	case "local":
		app.reaper = worker.NewReaper(app.Cleanup, cfg.CleanupInterval(), log)
	case "asynq":
		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		app.workerServer = worker.NewWorkerServer(redisOpt, app.Cleanup, cfg.CleanupInterval(), log)
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := NewRouter(RouterDeps{
		Config:      cfg,
		Log:         log,
		RedisClient: app.RedisClient,
		AuthService: authService,
		RoomService: roomService,
		WS:          ws,
		Health:      httpHandler.NewHealthHandler(app.healthChecks()),
	})
	app.HttpServer = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Application assembled successfully")
	return app, nil
}

func (a *App) newStateRepository() (repository.StateRepository, error) {
	switch a.Config.StateBackend {
	case "badger":
		db, err := badgerstate.Open(a.Config.BadgerPath)
		if err != nil {
			return nil, err
		}
		a.Badger = db
		return badgerstate.NewBadgerStateRepository(db), nil
	default:
		return redisstate.NewRedisStateRepository(a.RedisClient, a.Config.RedisKeyPrefix), nil
	}
}

func newFileStorage(ctx context.Context, cfg *Config) (repository.FileStorage, error) {
	if cfg.FileStorage == "s3" {
		return storage.NewS3Storage(ctx, storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	return storage.NewLocalStorage(cfg.UploadDir), nil
}

func (a *App) healthChecks() map[string]httpHandler.HealthCheck {
	checks := map[string]httpHandler.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.RedisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return a.RedisClient.Ping(ctx).Err() }
	}
	return checks
}

// Start launches the reaper and the HTTP server in the background.
func (a *App) Start(ctx context.Context) error {
	if a.reaper != nil {
		reaperCtx, cancel := context.WithCancel(ctx)
		a.cancelReaper = cancel
		a.reaperDone.Add(1)
		go func() {
			defer a.reaperDone.Done()
			a.reaper.Run(reaperCtx)
		}()
	}
	if a.workerServer != nil {
		if err := a.workerServer.Start(); err != nil {
			return err
		}
	}

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening")
	}()
	return nil
}

// RunCleanupOnce runs a single reaper pass in the foreground.
func (a *App) RunCleanupOnce(ctx context.Context) (service.CleanupReport, error) {
	return a.Cleanup.RunPass(ctx)
}

// Shutdown stops background work, drains sessions and closes the stores.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	if a.cancelReaper != nil {
		a.cancelReaper()
		a.reaperDone.Wait()
	}
	if a.workerServer != nil {
		a.workerServer.Shutdown()
	}

	if a.HttpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.HttpServer.Shutdown(ctx); err != nil {
			a.Log.Errorf("Error shutting down HTTP server: %v", err)
		}
	}
	// hijacked connections are not tracked by http.Server
	if a.Hub != nil {
		a.Hub.CloseAll()
	}

	a.closeStores()
	a.Log.Info("Application shutdown complete")
}

func (a *App) closeStores() {
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}
	if a.Badger != nil {
		if err := a.Badger.Close(); err != nil {
			a.Log.Errorf("Error closing badger: %v", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

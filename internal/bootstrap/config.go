package bootstrap

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	"github.com/fluffy-dev/The-Loom/internal/infra/setup"
	"github.com/fluffy-dev/The-Loom/internal/service"
)

// Config is the process configuration, read from the environment (and .env when present).
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development" validate:"oneof=development production test"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080" validate:"required,numeric"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	DBDriver   string `envconfig:"DB_DRIVER" default:"mysql" validate:"oneof=mysql postgres sqlite"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"loom"`
	DBDSN      string `envconfig:"DB_DSN"`

	StateBackend   string `envconfig:"STATE_BACKEND" default:"redis" validate:"oneof=redis badger"`
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"localhost:6379" validate:"required,hostname_port"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"loom:"`
	BadgerPath     string `envconfig:"BADGER_PATH" default:"./data/state"`

	JWTSecret      string `envconfig:"JWT_SECRET" required:"true" validate:"required"`
	JWTExpiryHours int    `envconfig:"JWT_EXPIRY_HOURS" default:"24" validate:"gt=0"`

	CleanupIntervalSeconds int    `envconfig:"CLEANUP_INTERVAL_SECONDS" default:"3600" validate:"gt=0"`
	RoomLifetimeDays       int    `envconfig:"ROOM_LIFETIME_DAYS" default:"7" validate:"gt=0"`
	RoomInactivityHours    int    `envconfig:"ROOM_INACTIVITY_HOURS" default:"3" validate:"gt=0"`
	ReaperMode             string `envconfig:"REAPER_MODE" default:"local" validate:"oneof=local asynq off"`

	FileStorage string `envconfig:"FILE_STORAGE" default:"local" validate:"oneof=local s3"`
	UploadDir   string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	S3Bucket    string `envconfig:"S3_BUCKET" validate:"required_if=FileStorage s3"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint  string `envconfig:"S3_ENDPOINT" validate:"omitempty,url"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`

	WSSendBuffer      int           `envconfig:"WS_SEND_BUFFER" default:"256" validate:"gt=0"`
	WSWriteTimeout    time.Duration `envconfig:"WS_WRITE_TIMEOUT" default:"10s" validate:"gt=0"`
	WSMaxMessageBytes int64         `envconfig:"WS_MAX_MESSAGE_BYTES" default:"1048576" validate:"gt=0"`
	StateWriteTimeout time.Duration `envconfig:"STATE_WRITE_TIMEOUT" default:"5s" validate:"gt=0"`

	RateLimitMax      int           `envconfig:"RATE_LIMIT_MAX" default:"100" validate:"gt=0"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1s" validate:"gt=0"`
	CORSAllowedOrigin string        `envconfig:"CORS_ALLOWED_ORIGIN" default:"http://localhost:3000"`
}

var validate = validator.New()

// LoadConfig reads .env (if any) then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	return ParseConfig()
}

// ParseConfig reads the environment only.
func ParseConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}

func (c *Config) DBOptions() setup.DBOptions {
	return setup.DBOptions{
		Driver:   c.DBDriver,
		DSN:      c.DBDSN,
		User:     c.DBUser,
		Password: c.DBPassword,
		Host:     c.DBHost,
		Port:     c.DBPort,
		Name:     c.DBName,
	}
}

func (c *Config) CleanupConfig() service.CleanupConfig {
	return service.CleanupConfig{
		Lifetime:   time.Duration(c.RoomLifetimeDays) * 24 * time.Hour,
		Inactivity: time.Duration(c.RoomInactivityHours) * time.Hour,
	}
}

func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.StateBackend == "redis" || c.ReaperMode == "asynq"
}

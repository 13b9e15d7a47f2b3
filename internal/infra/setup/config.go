package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DBOptions describes how to reach the relational store.
type DBOptions struct {
	Driver   string // mysql, postgres or sqlite
	DSN      string // used as-is when set
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// BuildDSN composes a driver-specific DSN from the discrete fields.
func (o DBOptions) BuildDSN() (string, error) {
	if o.DSN != "" {
		return o.DSN, nil
	}
	port := o.Port
	switch o.Driver {
	case "mysql":
		if port == "" {
			port = "3306"
		}
		if o.User == "" {
			return "", fmt.Errorf("DB_USER must be set for the mysql driver")
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			o.User, o.Password, o.Host, port, o.Name), nil
	case "postgres":
		if port == "" {
			port = "5432"
		}
		if o.User == "" {
			return "", fmt.Errorf("DB_USER must be set for the postgres driver")
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			o.Host, port, o.User, o.Password, o.Name), nil
	case "sqlite":
		return "loom.db", nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", o.Driver)
	}
}

// InitDB opens the relational store and configures its pool.
func InitDB(opts DBOptions, log *logrus.Logger) (*gorm.DB, error) {
	dsn, err := opts.BuildDSN()
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	log.WithField("driver", opts.Driver).Info("Database connected")
	return db, nil
}

// InitRedis creates the Redis client and checks the connection.
func InitRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxConnAge:   30 * time.Minute,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}

package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fluffy-dev/The-Loom/internal/domain"
)

// MigrateDB creates or updates every table. Child tables carry ON DELETE CASCADE
// foreign keys to rooms.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	err := db.AutoMigrate(
		&domain.User{},
		&domain.Room{},
		&domain.RoomParticipant{},
		&domain.File{},
		&domain.SnapshotArchive{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Debug("Database migration completed successfully")
	return nil
}

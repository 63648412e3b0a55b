package database

import (
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/teamforge/mentor-platform/internal/config"
	"github.com/teamforge/mentor-platform/internal/models"
)

var DB *gorm.DB

func Initialize(cfg *config.Config) error {
	var dialector gorm.Dialector

	switch cfg.DatabaseType {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	default:
		dialector = sqlite.Open(cfg.DatabaseURL)
	}

	logMode := logger.Warn
	if cfg.DevMode {
		logMode = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return err
	}

	DB = db

	return AutoMigrate(db)
}

// AutoMigrate creates or updates the schema for every entity. Shared with
// the test helpers so they stay in sync with production migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.TeamMember{},
		&models.Milestone{},
		&models.Task{},
		&models.TaskScreenshot{},
		&models.Sprint{},
		&models.Meeting{},
		&models.MeetingParticipant{},
		&models.Notification{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

package database

import (
	"fmt"
	"strings"
	"time"

	"prediction-frames/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Dialector picks a gorm driver from the connection string.
// postgres:// and key=value DSNs go to Postgres; sqlite:// and file: go to SQLite.
func Dialector(url string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"), strings.Contains(url, "host="):
		return postgres.New(postgres.Config{DSN: url, PreferSimpleProtocol: true}), nil
	case strings.HasPrefix(url, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(url, "sqlite://")), nil
	case strings.HasPrefix(url, "file:"):
		return sqlite.Open(url), nil
	}
	return nil, fmt.Errorf("unsupported DATABASE_URL scheme")
}

// Open opens a store handle without touching the package-level DB
func Open(url, env string) (*gorm.DB, error) {
	dialector, err := Dialector(url)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Error
	if env == "development" {
		logLevel = logger.Info
	} else if env == "staging" {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Connect establishes the shared connection used by the server and commands
func Connect(url, env string) error {
	db, err := Open(url, env)
	if err != nil {
		return err
	}
	DB = db
	log.Info().Str("dialect", db.Dialector.Name()).Msg("Database connection established")
	return nil
}

// AutoMigrate creates or updates the four core tables and their unique indexes
func AutoMigrate(db *gorm.DB) error {
	coreModels := []interface{}{
		&models.User{},
		&models.Market{},
		&models.Prediction{},
		&models.UserStats{},
	}

	for _, model := range coreModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	log.Info().Msg("Database migrations completed")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

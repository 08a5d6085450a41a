package orm

import (
	"fmt"
	"strings"

	"dealership-backend/config"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the explicitly constructed database handle passed into the server.
// It is opened once at process start and closed at shutdown; no package
// level connection state exists.
type DB struct {
	dbGorm *gorm.DB
}

// Open connects to postgres, runs migrations and returns the handle.
func Open(cfg *config.DatabaseConfig) (*DB, error) {
	dsn := fmt.Sprintf(
		"host='%s' port='%d' user='%s' password='%s' dbname='%s' sslmode='%s'",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	dsnRedacted := strings.ReplaceAll(dsn, cfg.Password, "*****")
	log.Debug().
		Msgf("Connecting to postgres using the following information: %s", dsnRedacted)

	dbGorm, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	log.Debug().Msg("Successfully connected to the database")

	return NewDB(dbGorm)
}

// NewDB wraps an existing gorm handle and runs migrations. Tests use it with
// an in-memory sqlite handle.
func NewDB(dbGorm *gorm.DB) (*DB, error) {
	err := dbGorm.AutoMigrate(
		&Make{},
		&Model{},
		&Tag{},
		&Feature{},
		&Vehicle{},
		&TagMapping{},
		&FeatureMapping{},
		&ImageSet{},
		&AuctionPurchase{},
		&Payment{},
		&Document{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &DB{dbGorm: dbGorm}, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.dbGorm.DB()
	if err != nil {
		return fmt.Errorf("failed to access connection pool: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close connection pool: %w", err)
	}

	return nil
}

// UseTransaction returns a handle bound to an open transaction so the
// lookup/writer helpers run inside the caller's unit of work.
func (db *DB) UseTransaction(tx *gorm.DB) *DB {
	return &DB{dbGorm: tx}
}

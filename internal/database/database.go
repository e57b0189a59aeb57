package database

import (
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

type Options struct {
	Logger   *slog.Logger
	LogLevel logger.LogLevel
}

func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func Connect(dsn string, opts Options) (*gorm.DB, error) {
	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	if IsPostgresDSN(dsn) {
		if opts.Logger != nil {
			opts.Logger.Info("connecting to PostgreSQL")
		}
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	if opts.Logger != nil {
		opts.Logger.Info("using SQLite for local development", "dsn", dsn)
	}

	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; serializing on one connection keeps
	// in-memory databases alive and transactions from tripping over each other.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate creates tables for models and then the constraints gorm tags cannot express.
func Migrate(db *gorm.DB, models ...any) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	stmts := commonConstraints
	if db.Dialector.Name() == "postgres" {
		stmts = append(stmts, postgresConstraints...)
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply constraint: %w", err)
		}
	}
	return nil
}

var commonConstraints = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_one_active_per_booking
		ON payments (booking_id) WHERE status IN ('pending', 'completed')`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_apartment_dates
		ON bookings (apartment_id, date_from, date_to)`,
}

var postgresConstraints = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,
	`DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_no_overlap') THEN
		ALTER TABLE bookings ADD CONSTRAINT bookings_no_overlap
			EXCLUDE USING gist (apartment_id WITH =, tstzrange(date_from, date_to, '[)') WITH &&);
	END IF;
END $$`,
	`DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_dates_ordered') THEN
		ALTER TABLE bookings ADD CONSTRAINT bookings_dates_ordered CHECK (date_to > date_from);
	END IF;
END $$`,
}

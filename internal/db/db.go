package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"appliance-billing-backend/config"
	"appliance-billing-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Msg("database initialization complete")
	return db, nil
}

// Migrate creates or updates every table, including the balance and
// occupancy CHECK constraints declared on the models, then applies the
// indexes gorm cannot express.
func Migrate(db *gorm.DB) error {
	log.Info().Str("dialect", db.Dialector.Name()).Msg("running database migrations")
	if err := db.AutoMigrate(
		&model.Room{},
		&model.RoomTOTP{},
		&model.Endpoint{},
		&model.Appliance{},
		&model.RunLog{},
		&model.EndpointApplianceState{},
		&model.ValidPayment{},
		&model.InvalidPayment{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	return applyIndexDDL(db)
}

func applyIndexDDL(db *gorm.DB) error {
	ddls := []string{
		// At most one RUNNING log per endpoint/appliance pair.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_run_logs_one_running " +
			"ON run_logs (endpoint_id, appliance_id) WHERE state = 1;",

		"CREATE INDEX IF NOT EXISTS idx_run_logs_room_created " +
			"ON run_logs (room_id, created_at DESC);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

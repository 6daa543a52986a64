package configs

import (
	"fmt"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

func DB() *gorm.DB {
	return db
}

// ConnectionDB opens the configured database and keeps it for DB().
func ConnectionDB(cfg *Config) error {
	database, err := Open(cfg.DBDriver, cfg.DBSource)
	if err != nil {
		return err
	}
	db = database
	log.WithField("driver", cfg.DBDriver).Info("database connected")
	return nil
}

// Open connects with driver "sqlite" or "postgres".
func Open(driver, source string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(source)
	case "postgres":
		dialector = postgres.Open(source)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if driver == "sqlite" {
		// one writer at a time; concurrent version guards then never see "database is locked"
		sqlDB, err := database.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return database, nil
}

// SetupDatabase migrates the schema.
func SetupDatabase(database *gorm.DB) error {
	return database.AutoMigrate(
		&entity.Staff{},
		&entity.Table{}, &entity.Dish{}, &entity.ModifierOption{},
		&entity.Order{}, &entity.OrderItem{}, &entity.OrderItemModifier{},
	)
}

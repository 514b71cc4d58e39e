package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"letterdesk/internal/model"
)

// NewMySQL returns a connected GORM DB instance.
func NewMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true, // duplicate keys surface as gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Office{},
		&model.Department{},
		&model.Staff{},
		&model.LetterType{},
		&model.LetterTemplate{},
		&model.Letter{},
		&model.LetterActivity{},
	}
}

// Migrate creates or updates all tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Reset drops every table in reverse dependency order. Missing tables are skipped.
func Reset(db *gorm.DB) error {
	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if !db.Migrator().HasTable(models[i]) {
			continue
		}
		if err := db.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}

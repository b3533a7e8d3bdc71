package utils

import (
	"fmt"

	"simulador/backend/config"
	"simulador/backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the Postgres connection. TranslateError is on so unique
// constraint violations surface as gorm.ErrDuplicatedKey, which the
// session service relies on to turn start-session races into 409s.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Subject{},
		&models.Competency{},
		&models.Question{},
		&models.SimulationTemplate{},
		&models.Session{},
		&models.SessionQuestion{},
		&models.Badge{},
		&models.UserBadge{},
	)
}

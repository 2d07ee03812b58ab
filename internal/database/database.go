package database

import (
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"relaychat/internal/models"
)

type Database struct {
	db *gorm.DB
}

// NewDatabase wraps an already-open gorm connection and runs migrations.
// Tests use this with an in-memory sqlite handle.
func NewDatabase(db *gorm.DB) (*Database, error) {
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

// Connect opens postgres at dsn and runs migrations.
func Connect(dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	return NewDatabase(db)
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.Participant{},
		&models.Message{},
		&models.UserSession{},
	)
}

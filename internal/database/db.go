package database

import (
	"invoicing-backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM.
// TranslateError maps driver-level unique violations to
// gorm.ErrDuplicatedKey, which the invoice numbering retry depends on.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Client{},
		&model.Product{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.Payment{},
		&model.Notification{},
		&model.EventLog{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

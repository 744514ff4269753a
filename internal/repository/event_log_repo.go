package repository

import (
	"context"

	"invoicing-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventLogRepository interface {
	Create(ctx context.Context, entry *model.EventLog) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.EventLog, error)
}

type eventLogRepository struct {
	db *gorm.DB
}

func NewEventLogRepository(db *gorm.DB) EventLogRepository {
	return &eventLogRepository{db: db}
}

func (r *eventLogRepository) Create(ctx context.Context, entry *model.EventLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *eventLogRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.EventLog, error) {
	var entries []model.EventLog
	err := GetDB(ctx, r.db).
		Where("invoice_id = ?", invoiceID).
		Order("created_at asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

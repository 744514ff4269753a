package repository

import (
	"context"

	"invoicing-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	Update(ctx context.Context, payment *model.Payment) error
	FindPendingByInvoice(ctx context.Context, invoiceID uuid.UUID) (*model.Payment, error)
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Save(payment).Error
}

func (r *paymentRepository) FindPendingByInvoice(ctx context.Context, invoiceID uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	err := GetDB(ctx, r.db).
		Where("invoice_id = ? AND status = ?", invoiceID, model.PaymentPending).
		Order("created_at asc").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	err := GetDB(ctx, r.db).
		Where("invoice_id = ?", invoiceID).
		Order("created_at asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoicing-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceListFilter narrows List results.
type InvoiceListFilter struct {
	Status        string
	ClientID      string
	InvoiceNumber string // partial match
	Page          int
	Limit         int
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	Save(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	// FindByIDForUpdate takes a row-level lock on the invoice so concurrent
	// recomputes and transitions on the same invoice serialize.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CreateItem(ctx context.Context, item *model.InvoiceItem) error
	ItemsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.InvoiceItem, error)
	ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error

	// LastNumberForYear returns the most recently created invoice number for
	// the prefix and year, including soft-deleted invoices so a reused
	// number cannot collide with a tombstoned one. Empty string means none.
	LastNumberForYear(ctx context.Context, prefix string, year int) (string, error)
	CountForYear(ctx context.Context, prefix string, year int) (int64, error)

	// MarkOverdue persists sent -> overdue for every invoice past its due
	// date, returning the number of rows updated.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) Save(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Omit("Items", "Client").Save(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("Client").
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Invoice{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.InvoiceNumber != "" {
		query = query.Where("invoice_number ILIKE ?", "%"+filter.InvoiceNumber+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Preload("Client").Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := GetDB(ctx, r.db).Delete(&model.Invoice{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invoiceRepository) CreateItem(ctx context.Context, item *model.InvoiceItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *invoiceRepository) ItemsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.InvoiceItem, error) {
	var items []model.InvoiceItem
	err := GetDB(ctx, r.db).
		Where("invoice_id = ?", invoiceID).
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *invoiceRepository) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("invoice_id = ?", invoiceID).Delete(&model.InvoiceItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].InvoiceID = invoiceID
		if err := db.Create(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *invoiceRepository) LastNumberForYear(ctx context.Context, prefix string, year int) (string, error) {
	var invoice model.Invoice
	pattern := fmt.Sprintf("%s-%d-%%", prefix, year)
	err := GetDB(ctx, r.db).
		Unscoped().
		Where("invoice_number LIKE ?", pattern).
		Order("created_at desc").
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return invoice.InvoiceNumber, nil
}

func (r *invoiceRepository) CountForYear(ctx context.Context, prefix string, year int) (int64, error) {
	var count int64
	pattern := fmt.Sprintf("%s-%d-%%", prefix, year)
	err := GetDB(ctx, r.db).
		Unscoped().
		Model(&model.Invoice{}).
		Where("invoice_number LIKE ?", pattern).
		Count(&count).Error
	return count, err
}

func (r *invoiceRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := GetDB(ctx, r.db).
		Model(&model.Invoice{}).
		Where("status = ? AND due_at IS NOT NULL AND due_at < ?", model.StatusSent, now).
		Update("status", model.StatusOverdue)
	return result.RowsAffected, result.Error
}

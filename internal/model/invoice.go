package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is the aggregate root of the billing domain. Its monetary columns
// (subtotal, tax_total, discount_total, total) are always derived from the
// current item set by the totals recalculation and never edited by hand.
type Invoice struct {
	ID            uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNumber string        `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"`
	ClientID      uuid.UUID     `gorm:"type:uuid;not null;index" json:"client_id"`
	Client        *Client       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Status        InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`

	IssuedAt *time.Time `json:"issued_at"`
	DueAt    *time.Time `gorm:"index" json:"due_at"`

	Currency      string          `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"subtotal"`
	TaxTotal      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax_total"`
	DiscountTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_total"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`

	Notes string `gorm:"type:text" json:"notes"`
	Terms string `gorm:"type:text" json:"terms"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsOverdue is a read-time check for display purposes. The persisted overdue
// status is set by the background sweep, which is the source of truth.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	return inv.Status == StatusSent && inv.DueAt != nil && inv.DueAt.Before(now)
}

// InvoiceItem is an owned child of an invoice; it never outlives it.
// line_total is a cached value computed from the other fields.
type InvoiceItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID uuid.UUID  `gorm:"type:uuid;not null;index" json:"-"`
	ProductID *uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	Product   *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Description    string          `gorm:"type:varchar(500);not null" json:"description"`
	Quantity       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"quantity"`          // >= 0.01
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`        // >= 0
	TaxRate        decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"` // percent, 0-100
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

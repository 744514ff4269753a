package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus enum constants
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
)

// Payment tracks the money owed for an invoice. One payment record is
// opened in pending state when the invoice is created and completed when
// the invoice is marked paid.
type Payment struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Invoice   *Invoice        `gorm:"foreignKey:InvoiceID" json:"-"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency  string          `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Status    string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Method    string          `gorm:"type:varchar(50)" json:"method"`
	Reference string          `gorm:"type:varchar(100)" json:"reference"`
	PaidAt    *time.Time      `json:"paid_at"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

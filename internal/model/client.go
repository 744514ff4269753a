package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client represents a billable customer. Invoices reference it by ID only.
type Client struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	CompanyName    string         `gorm:"type:varchar(255)" json:"company_name"`
	TaxCode        string         `gorm:"type:varchar(50)" json:"tax_code"`
	Email          string         `gorm:"type:varchar(255)" json:"email"`
	Phone          string         `gorm:"type:varchar(50)" json:"phone"`
	BillingAddress string         `gorm:"type:text" json:"billing_address"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
